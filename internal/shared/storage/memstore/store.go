// Package memstore 实现基于内存的 PersistentStore
//
// 用于单元测试与无数据库的本地开发。语义与 mongostore 保持一致：
//   - email / username 唯一
//   - (location, user) 评价唯一，冲突返回 storage.ErrDuplicate
//   - WithTx 通过快照回滚实现原子性；事务之间、事务与事务外的写入之间串行执行
//
// 所有读写都复制实体，调用方修改返回值不会影响存储内容。
package memstore

import (
	"context"
	"errors"
	"sync"

	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage"
)

type reviewKey struct {
	locationID string
	userID     string
}

type state struct {
	users     map[string]model.User
	locations map[string]model.Location
	reviews   map[string]model.Review
	reports   map[string]model.Report
}

func newState() state {
	return state{
		users:     make(map[string]model.User),
		locations: make(map[string]model.Location),
		reviews:   make(map[string]model.Review),
		reports:   make(map[string]model.Report),
	}
}

func (st state) clone() state {
	c := newState()
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.locations {
		c.locations[k] = v
	}
	for k, v := range st.reviews {
		c.reviews[k] = v
	}
	for k, v := range st.reports {
		c.reports[k] = v
	}
	return c
}

// Store 内存存储
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   state

	closed bool
}

var _ storage.PersistentStore = (*Store)(nil)

// New 创建空的内存存储
func New() *Store {
	return &Store{st: newState()}
}

var errClosed = errors.New("memstore: store closed")

// txKey 标记 ctx 属于哪个 Store 的事务
type txKey struct{}

// beginWrite 事务外的写入等待进行中的事务结束，事务内的写入直接执行
func (s *Store) beginWrite(ctx context.Context) func() {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return ctx.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// WithTx 执行 fn；fn 返回错误时恢复到执行前的快照
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, s)

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}
