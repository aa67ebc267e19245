package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingJWTSecret JWT_SECRET 未设置
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// Load 加载配置
//  1. 解析 APP_ENV，加载 .env.{env}
//  2. 加载 {env}.yaml（默认值之上）
//  3. 环境变量覆盖，凭据只从环境变量读取
func Load() *Config {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)

	yc := loadYAMLConfig(env)
	applyEnvOverrides(&yc.YAMLConfig)

	cfg := &Config{
		Env:            env,
		DatabaseURL:    getEnv("MONGO_URI", buildDatabaseURL(yc.Database)),
		DatabaseName:   yc.Database.Name,
		RedisURL:       buildRedisURL(yc.Redis),
		APIServer:      yc.APIServer,
		MinIO:          yc.MinIO,
		Auth:           yc.Auth,
		Upload:         yc.Upload,
		Ledger:         yc.Ledger,
		Log:            yc.Log,
		ConfigFilePath: yc.loadedFrom,
	}
	cfg.applyDefaults()
	return cfg
}

// defaultYAMLConfig 硬编码默认值
func defaultYAMLConfig() YAMLConfig {
	return YAMLConfig{
		APIServer: APIServerConfig{Port: "5000", ShutdownTimeout: 10 * time.Second},
		Database:  DatabaseConfig{Host: "localhost", Port: 27017, Name: "tragic_bricks"},
		Redis:     RedisConfig{Host: "localhost", Port: 6379, DB: 0},
		MinIO: MinIOConfig{
			Endpoint:  "localhost:9000",
			Bucket:    "tragic-bricks",
			PublicURL: "http://localhost:9000",
		},
		Upload: UploadConfig{MaxSize: 10 << 20},
		Ledger: LedgerConfig{LockTTL: 10 * time.Second, LockTimeout: 5 * time.Second},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → {env}.yaml
func loadYAMLConfig(env Environment) *yamlConfigInternal {
	cfg := &yamlConfigInternal{YAMLConfig: defaultYAMLConfig()}

	path := findConfigFile(env)
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg.YAMLConfig); err != nil {
		fmt.Fprintf(os.Stderr, "config: ignoring %s: %v\n", path, err)
		return cfg
	}
	cfg.loadedFrom = path
	return cfg
}

// applyEnvOverrides 环境变量覆盖 YAML
func applyEnvOverrides(y *YAMLConfig) {
	overrideString(&y.APIServer.Port, "PORT", "API_PORT")
	overrideDuration(&y.APIServer.ShutdownTimeout, "SHUTDOWN_TIMEOUT")

	overrideString(&y.Database.URI, "DATABASE_URL")
	overrideString(&y.Database.Host, "MONGO_HOST")
	overrideInt(&y.Database.Port, "MONGO_PORT")
	overrideString(&y.Database.User, "MONGO_USER")
	overrideString(&y.Database.Name, "MONGO_DB")
	y.Database.Password = firstEnv("MONGO_PASSWORD", "MONGO_ROOT_PASSWORD")

	overrideBool(&y.Redis.Enabled, "REDIS_ENABLED")
	overrideString(&y.Redis.URL, "REDIS_URL")
	overrideString(&y.Redis.Host, "REDIS_HOST")
	overrideInt(&y.Redis.Port, "REDIS_PORT")
	y.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if y.Redis.URL != "" && os.Getenv("REDIS_URL") != "" {
		y.Redis.Enabled = true
	}

	overrideString(&y.MinIO.Endpoint, "MINIO_ENDPOINT")
	overrideString(&y.MinIO.Bucket, "MINIO_BUCKET")
	overrideString(&y.MinIO.PublicURL, "MINIO_PUBLIC_URL")
	overrideBool(&y.MinIO.UseSSL, "MINIO_USE_SSL")
	y.MinIO.AccessKey = os.Getenv("MINIO_ROOT_USER")
	y.MinIO.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")

	y.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	y.Auth.AdminEmail = os.Getenv("ADMIN_EMAIL")
	y.Auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	overrideInt64(&y.Upload.MaxSize, "UPLOAD_MAX_SIZE")

	overrideString(&y.Log.Level, "LOG_LEVEL")
	overrideString(&y.Log.Format, "LOG_FORMAT")
}

// applyDefaults YAML 中写了零值时回退到默认值
func (c *Config) applyDefaults() {
	d := defaultYAMLConfig()
	if c.APIServer.Port == "" {
		c.APIServer.Port = d.APIServer.Port
	}
	if c.APIServer.ShutdownTimeout <= 0 {
		c.APIServer.ShutdownTimeout = d.APIServer.ShutdownTimeout
	}
	if c.DatabaseName == "" {
		c.DatabaseName = d.Database.Name
	}
	if c.MinIO.Bucket == "" {
		c.MinIO.Bucket = d.MinIO.Bucket
	}
	if c.Upload.MaxSize <= 0 {
		c.Upload.MaxSize = d.Upload.MaxSize
	}
	if c.Ledger.LockTTL <= 0 {
		c.Ledger.LockTTL = d.Ledger.LockTTL
	}
	if c.Ledger.LockTimeout <= 0 {
		c.Ledger.LockTimeout = d.Ledger.LockTimeout
	}
}

// Validate 启动前校验；JWT_SECRET 缺失时拒绝启动
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.DatabaseURL == "" {
		return errors.New("database url is required")
	}
	if c.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	return nil
}
