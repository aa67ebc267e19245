// Package objstore 封装 MinIO 对象存储客户端（图片上传中转）
package objstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"tragic-bricks/internal/config"
	"tragic-bricks/pkg/logging"
)

// publicReadPolicy 匿名只读，上传后的 URL 可直接被浏览器引用
const publicReadPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`

// Client MinIO 客户端封装
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
	log       *logging.Logger
}

// NewClient 创建 MinIO 客户端
func NewClient(cfg config.MinIOConfig, log *logging.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access_key and secret_key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "tragic-bricks"
	}
	if log == nil {
		log = logging.Default("objstore")
	}

	return &Client{
		mc:        mc,
		bucket:    bucket,
		publicURL: publicBase(cfg),
		log:       log,
	}, nil
}

// publicBase 未配置 public_url 时按 endpoint 推导
func publicBase(cfg config.MinIOConfig) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint
}

// Bucket 当前 bucket 名称
func (c *Client) Bucket() string { return c.bucket }

// EnsureBucket 确保 bucket 存在并允许匿名读取
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		c.log.Info("created bucket", "bucket", c.bucket)
	}
	if err := c.mc.SetBucketPolicy(ctx, c.bucket, fmt.Sprintf(publicReadPolicy, c.bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

// Upload 上传对象，返回公开访问 URL
func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.mc.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return c.PublicURL(key), nil
}

// PublicURL <public_url>/<bucket>/<key>
func (c *Client) PublicURL(key string) string {
	return c.publicURL + "/" + c.bucket + "/" + strings.TrimLeft(key, "/")
}
