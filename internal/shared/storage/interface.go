// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：mongostore/（生产）、memstore/（测试与本地开发）
//   - 初始化时通过依赖注入传入实现
//
// Get 方法在实体不存在时返回 (nil, nil)；Update/Delete 方法返回 ErrNotFound。
package storage

import (
	"context"

	"tragic-bricks/internal/shared/model"
)

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	UpdateUserProfile(ctx context.Context, user *model.User) error
}

// LocationStore 地点存储接口
type LocationStore interface {
	CreateLocation(ctx context.Context, loc *model.Location) error
	GetLocation(ctx context.Context, id string) (*model.Location, error)
	GetLocationsByIDs(ctx context.Context, ids []string) ([]*model.Location, error)
	ListLocations(ctx context.Context, filter model.LocationFilter) ([]*model.Location, error)
	// SetLocationRating 写入派生的聚合字段
	SetLocationRating(ctx context.Context, id string, average float64, count int) error
	// MigrateLegacyLocationTypes 改写已废弃的类型值，返回修改的文档数
	MigrateLegacyLocationTypes(ctx context.Context) (int64, error)
}

// ReviewStore 评价存储接口
//
// CreateReview 必须在持久化层强制 (location, user) 唯一，冲突时返回 ErrDuplicate。
type ReviewStore interface {
	CreateReview(ctx context.Context, review *model.Review) error
	GetReview(ctx context.Context, id string) (*model.Review, error)
	UpdateReview(ctx context.Context, review *model.Review) error
	DeleteReview(ctx context.Context, id string) error
	ListReviewsByLocation(ctx context.Context, locationID string) ([]*model.Review, error)
	ListReviewsByUser(ctx context.Context, userID string) ([]*model.Review, error)
	ListRatings(ctx context.Context, locationID string) ([]int, error)
}

// ReportStore 举报存储接口
type ReportStore interface {
	CreateReport(ctx context.Context, report *model.Report) error
	ListReports(ctx context.Context, limit int) ([]*model.Report, error)
}

// TxRunner 事务执行器
//
// fn 内使用传入的 ctx 执行的所有写操作要么全部提交，要么全部回滚。
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PersistentStore 持久化存储（聚合所有子接口）
type PersistentStore interface {
	UserStore
	LocationStore
	ReviewStore
	ReportStore
	TxRunner

	Ping(ctx context.Context) error
	Close() error
}
