// Package mongostore 实现基于 MongoDB 的 PersistentStore
//
// 使用 mongo-go-driver v2，通过 bson tag 实现 model 结构体的序列化/反序列化。
// 所有 Collection 名称和索引在 ensureIndexes 中统一管理。
//
// WithTx 依赖多文档事务，MongoDB 需以副本集（可为单节点副本集）方式运行。
package mongostore

import (
	"context"
	"fmt"
	"time"

	"tragic-bricks/internal/shared/storage"
	"tragic-bricks/pkg/logging"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection 名称常量
const (
	ColUsers     = "users"
	ColLocations = "locations"
	ColReviews   = "reviews"
	ColReports   = "reports"
)

// Store 实现 storage.PersistentStore 接口的 MongoDB 驱动
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logging.Logger
}

var _ storage.PersistentStore = (*Store)(nil)

// NewStore 创建 MongoDB 存储实例
//
// uri: MongoDB 连接 URI，如 "mongodb://localhost:27017/?replicaSet=rs0"
// dbName: 数据库名称，如 "tragic_bricks"
func NewStore(uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName), log: logging.Default("mongostore")}

	// 唯一索引是 (location, user) 评价唯一性的最终保障，创建失败必须中止启动
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ensure indexes failed: %w", err)
	}

	return s, nil
}

// SetLogger 替换默认日志器
func (s *Store) SetLogger(log *logging.Logger) {
	if log != nil {
		s.log = log
	}
}

// Close 关闭 MongoDB 连接
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping 检查连接
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// WithTx 在一个多文档事务中执行 fn
//
// fn 收到的 ctx 绑定了会话，fn 内的读写都属于该事务；fn 返回错误时事务回滚。
// 驱动会对 TransientTransactionError 自动重试整个回调。
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongostore: start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	start := time.Now()
	_, err = sess.WithTransaction(ctx, func(txCtx context.Context) (interface{}, error) {
		return nil, fn(txCtx)
	})
	s.log.DBQueryLog(ctx, "transaction", "-", time.Since(start), err)
	return err
}

// col 获取指定 Collection
func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// ensureIndexes 创建所有必要的索引
func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		keys   bson.D
		unique bool
	}

	indexes := []idx{
		// users
		{ColUsers, bson.D{{Key: "email", Value: 1}}, true},
		{ColUsers, bson.D{{Key: "username", Value: 1}}, true},

		// locations
		{ColLocations, bson.D{{Key: "created_at", Value: -1}}, false},
		{ColLocations, bson.D{{Key: "type", Value: 1}}, false},
		{ColLocations, bson.D{{Key: "discovered_by", Value: 1}}, false},
		{ColLocations, bson.D{{Key: "average_rating", Value: -1}}, false},
		{ColLocations, bson.D{{Key: "review_count", Value: -1}}, false},

		// reviews
		{ColReviews, bson.D{{Key: "location_id", Value: 1}, {Key: "user_id", Value: 1}}, true},
		{ColReviews, bson.D{{Key: "user_id", Value: 1}}, false},
		{ColReviews, bson.D{{Key: "location_id", Value: 1}, {Key: "created_at", Value: -1}}, false},

		// reports
		{ColReports, bson.D{{Key: "created_at", Value: -1}}, false},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		if i.unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}

	s.log.Info("indexes ensured", "database", s.db.Name())
	return nil
}
