package memstore

import (
	"context"
	"sort"

	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage"
)

func (s *Store) CreateReport(ctx context.Context, report *model.Report) error {
	defer s.beginWrite(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.reports[report.ID]; ok {
		return storage.ErrDuplicate
	}
	s.st.reports[report.ID] = *report
	return nil
}

func (s *Store) ListReports(ctx context.Context, limit int) ([]*model.Report, error) {
	s.mu.RLock()
	out := make([]*model.Report, 0, len(s.st.reports))
	for _, r := range s.st.reports {
		r := r
		out = append(out, &r)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
