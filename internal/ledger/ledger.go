// Package ledger 地点与评价的领域服务
//
// 所有评价写操作（新增、修改、删除）都在一个存储事务内完成：
// 写评价 -> RecomputeAggregate 重新读取全部评分并写回 averageRating/reviewCount。
// 事务外层持有按地点的锁，串行化同一地点的并发写。
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tragic-bricks/internal/shared/apperr"
	"tragic-bricks/internal/shared/locker"
	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage"
	"tragic-bricks/internal/shared/validate"
	"tragic-bricks/pkg/logging"
)

// Store Ledger 依赖的存储接口
type Store interface {
	storage.LocationStore
	storage.ReviewStore
	storage.TxRunner
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]*model.User, error)
}

// Recorder 评价写操作指标
type Recorder interface {
	ReviewMutation(op, outcome string)
	AggregateRecomputed(d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ReviewMutation(string, string)     {}
func (noopRecorder) AggregateRecomputed(time.Duration) {}

// Actor 发起操作的已认证用户
type Actor struct {
	ID   string
	Role model.UserRole
}

// IsAdmin 是否管理员
func (a Actor) IsAdmin() bool {
	return a.Role == model.UserRoleAdmin
}

// Ledger 地点与评价服务
type Ledger struct {
	store     Store
	locker    locker.Locker
	validator *validate.Validator
	recorder  Recorder
	log       *logging.Logger

	lockTimeout time.Duration
	now         func() time.Time
}

// Option 可选配置
type Option func(*Ledger)

// WithLocker 设置按地点的锁
func WithLocker(l locker.Locker) Option {
	return func(lg *Ledger) { lg.locker = l }
}

// WithRecorder 设置指标记录器
func WithRecorder(r Recorder) Option {
	return func(lg *Ledger) { lg.recorder = r }
}

// WithLockTimeout 设置获取锁的超时
func WithLockTimeout(d time.Duration) Option {
	return func(lg *Ledger) { lg.lockTimeout = d }
}

// New 创建 Ledger
func New(store Store, log *logging.Logger, opts ...Option) *Ledger {
	lg := &Ledger{
		store:       store,
		locker:      locker.NoOp{},
		validator:   validate.New(),
		recorder:    noopRecorder{},
		log:         log,
		lockTimeout: 5 * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(lg)
	}
	return lg
}

// ============================================================================
// 聚合
// ============================================================================

// RecomputeAggregate 从最新读取的全部评分重算地点的 averageRating 与 reviewCount
//
// 评价写操作必须在同一事务内调用它；这是写聚合字段的唯一入口。
func (l *Ledger) RecomputeAggregate(ctx context.Context, locationID string) (float64, int, error) {
	start := time.Now()
	ratings, err := l.store.ListRatings(ctx, locationID)
	if err != nil {
		return 0, 0, fmt.Errorf("list ratings: %w", err)
	}
	avg := model.AverageRating(ratings)
	if err := l.store.SetLocationRating(ctx, locationID, avg, len(ratings)); err != nil {
		return 0, 0, fmt.Errorf("set location rating: %w", err)
	}
	l.recorder.AggregateRecomputed(time.Since(start))
	return avg, len(ratings), nil
}

// mutateReviews 在地点锁与事务内执行 fn，随后重算聚合
func (l *Ledger) mutateReviews(ctx context.Context, op, locationID string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		l.recorder.ReviewMutation(op, outcome(err))
	}()
	ctx = logging.WithLocationID(ctx, locationID)

	lockCtx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()
	unlock, err := l.locker.Acquire(lockCtx, "location:"+locationID)
	if err != nil {
		return apperr.Wrap(err, apperr.KindInternal, "internal error")
	}
	defer func() {
		if uerr := unlock(context.Background()); uerr != nil {
			l.log.WithContext(ctx).Warn("release location lock failed", "error", uerr)
		}
	}()

	return l.store.WithTx(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		avg, count, err := l.RecomputeAggregate(ctx, locationID)
		if err != nil {
			return apperr.Internal(err)
		}
		l.log.WithContext(ctx).Debug("aggregate recomputed",
			"average_rating", avg, "review_count", count)
		return nil
	})
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.KindOf(err).String()
}

// ============================================================================
// 关联填充
// ============================================================================

// userSummaries 批量读取用户公开字段
func (l *Ledger) userSummaries(ctx context.Context, ids []string) (map[string]*model.UserSummary, error) {
	out := make(map[string]*model.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := l.store.GetUsersByIDs(ctx, unique(ids))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

// summaryOr 用户已不存在时仍返回 ID
func summaryOr(m map[string]*model.UserSummary, id string) *model.UserSummary {
	if s, ok := m[id]; ok {
		return s
	}
	return &model.UserSummary{ID: id}
}

func (l *Ledger) populateLocations(ctx context.Context, locs []*model.Location) error {
	ids := make([]string, 0, len(locs))
	for _, loc := range locs {
		ids = append(ids, loc.DiscoveredByID)
	}
	users, err := l.userSummaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, loc := range locs {
		loc.DiscoveredBy = summaryOr(users, loc.DiscoveredByID)
	}
	return nil
}

func (l *Ledger) populateReviews(ctx context.Context, reviews []*model.Review) error {
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.UserID)
	}
	users, err := l.userSummaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, r := range reviews {
		r.User = summaryOr(users, r.UserID)
	}
	return nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ============================================================================
// 工具函数
// ============================================================================

func newID() string {
	return uuid.NewString()
}

// storeErr 将存储层错误转换为应用错误
func storeErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound(notFound)
	default:
		return apperr.Internal(err)
	}
}
