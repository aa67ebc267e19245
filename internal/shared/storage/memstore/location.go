package memstore

import (
	"context"
	"sort"
	"strings"

	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage"
)

func (s *Store) CreateLocation(ctx context.Context, loc *model.Location) error {
	defer s.beginWrite(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.locations[loc.ID]; ok {
		return storage.ErrDuplicate
	}
	s.st.locations[loc.ID] = stripLocation(*loc)
	return nil
}

func (s *Store) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.st.locations[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *Store) GetLocationsByIDs(ctx context.Context, ids []string) ([]*model.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Location, 0, len(ids))
	for _, id := range ids {
		if l, ok := s.st.locations[id]; ok {
			out = append(out, &l)
		}
	}
	return out, nil
}

func (s *Store) ListLocations(ctx context.Context, f model.LocationFilter) ([]*model.Location, error) {
	s.mu.RLock()
	out := make([]*model.Location, 0)
	for _, l := range s.st.locations {
		if matchLocation(l, f) {
			l := l
			out = append(out, &l)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, locationLess(out, f.Sort))
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) SetLocationRating(ctx context.Context, id string, average float64, count int) error {
	defer s.beginWrite(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.st.locations[id]
	if !ok {
		return storage.ErrNotFound
	}
	l.AverageRating = average
	l.ReviewCount = count
	s.st.locations[id] = l
	return nil
}

func (s *Store) MigrateLegacyLocationTypes(ctx context.Context) (int64, error) {
	defer s.beginWrite(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, l := range s.st.locations {
		if string(l.Type) == model.LegacyLocationTypeUnknown {
			l.Type = model.LocationTypeMysterious
			s.st.locations[id] = l
			n++
		}
	}
	return n, nil
}

// stripLocation 去掉读取时填充的关联字段
func stripLocation(l model.Location) model.Location {
	l.DiscoveredBy = nil
	l.Reviews = nil
	return l
}

func matchLocation(l model.Location, f model.LocationFilter) bool {
	if f.Type != "" && l.Type != f.Type {
		return false
	}
	if f.DiscoveredBy != "" && l.DiscoveredByID != f.DiscoveredBy {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, field := range []string{l.Name, l.Description, l.Address.Street, l.Address.City, l.Address.State, l.Address.Country} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func locationLess(ls []*model.Location, by model.LocationSort) func(i, j int) bool {
	newer := func(i, j int) bool { return ls[i].CreatedAt.After(ls[j].CreatedAt) }
	switch by {
	case model.SortRating:
		return func(i, j int) bool {
			if ls[i].AverageRating != ls[j].AverageRating {
				return ls[i].AverageRating > ls[j].AverageRating
			}
			return newer(i, j)
		}
	case model.SortReviews:
		return func(i, j int) bool {
			if ls[i].ReviewCount != ls[j].ReviewCount {
				return ls[i].ReviewCount > ls[j].ReviewCount
			}
			return newer(i, j)
		}
	case model.SortOldest:
		return func(i, j int) bool { return ls[i].CreatedAt.Before(ls[j].CreatedAt) }
	default:
		return newer
	}
}
