package mongostore

import (
	"context"
	"time"

	"tragic-bricks/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// ReviewStore
// ============================================================================

// CreateReview 插入评价；(location_id, user_id) 唯一索引冲突时返回 storage.ErrDuplicate
func (s *Store) CreateReview(ctx context.Context, review *model.Review) error {
	return s.insertOne(ctx, ColReviews, review)
}

func (s *Store) GetReview(ctx context.Context, id string) (*model.Review, error) {
	return findOne[model.Review](ctx, s, ColReviews, byID(id))
}

func (s *Store) UpdateReview(ctx context.Context, review *model.Review) error {
	return s.setFields(ctx, ColReviews, review.ID, bson.D{
		{Key: "rating", Value: review.Rating},
		{Key: "comment", Value: review.Comment},
		{Key: "images", Value: review.Images},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	return s.deleteByID(ctx, ColReviews, id)
}

func (s *Store) ListReviewsByLocation(ctx context.Context, locationID string) ([]*model.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Review](ctx, s, ColReviews, bson.D{{Key: "location_id", Value: locationID}}, opts)
}

func (s *Store) ListReviewsByUser(ctx context.Context, userID string) ([]*model.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Review](ctx, s, ColReviews, bson.D{{Key: "user_id", Value: userID}}, opts)
}

// ListRatings 只读取评分字段，用于聚合重算
func (s *Store) ListRatings(ctx context.Context, locationID string) ([]int, error) {
	type ratingDoc struct {
		Rating int `bson:"rating"`
	}
	opts := options.Find().SetProjection(bson.D{{Key: "rating", Value: 1}})
	docs, err := findMany[ratingDoc](ctx, s, ColReviews, bson.D{{Key: "location_id", Value: locationID}}, opts)
	if err != nil {
		return nil, err
	}
	ratings := make([]int, 0, len(docs))
	for _, d := range docs {
		ratings = append(ratings, d.Rating)
	}
	return ratings, nil
}
