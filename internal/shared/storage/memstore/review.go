package memstore

import (
	"context"
	"sort"
	"time"

	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage"
)

func (s *Store) CreateReview(ctx context.Context, review *model.Review) error {
	defer s.beginWrite(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.reviews[review.ID]; ok {
		return storage.ErrDuplicate
	}
	key := reviewKey{review.LocationID, review.UserID}
	for _, r := range s.st.reviews {
		if (reviewKey{r.LocationID, r.UserID}) == key {
			return storage.ErrDuplicate
		}
	}
	r := *review
	r.User = nil
	r.LocationName = ""
	s.st.reviews[r.ID] = r
	return nil
}

func (s *Store) GetReview(ctx context.Context, id string) (*model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.st.reviews[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) UpdateReview(ctx context.Context, review *model.Review) error {
	defer s.beginWrite(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.st.reviews[review.ID]
	if !ok {
		return storage.ErrNotFound
	}
	r.Rating = review.Rating
	r.Comment = review.Comment
	r.Images = review.Images
	r.UpdatedAt = time.Now()
	s.st.reviews[r.ID] = r
	return nil
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	defer s.beginWrite(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.reviews[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.st.reviews, id)
	return nil
}

func (s *Store) ListReviewsByLocation(ctx context.Context, locationID string) ([]*model.Review, error) {
	return s.listReviews(func(r model.Review) bool { return r.LocationID == locationID }), nil
}

func (s *Store) ListReviewsByUser(ctx context.Context, userID string) ([]*model.Review, error) {
	return s.listReviews(func(r model.Review) bool { return r.UserID == userID }), nil
}

func (s *Store) ListRatings(ctx context.Context, locationID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratings := make([]int, 0)
	for _, r := range s.st.reviews {
		if r.LocationID == locationID {
			ratings = append(ratings, r.Rating)
		}
	}
	return ratings, nil
}

// listReviews 按创建时间倒序返回匹配的评价
func (s *Store) listReviews(match func(model.Review) bool) []*model.Review {
	s.mu.RLock()
	out := make([]*model.Review, 0)
	for _, r := range s.st.reviews {
		if match(r) {
			r := r
			out = append(out, &r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
