package mongostore

import (
	"context"
	"time"

	"tragic-bricks/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return s.insertOne(ctx, ColUsers, user)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return findOne[model.User](ctx, s, ColUsers, byID(id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, s, ColUsers, bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return findOne[model.User](ctx, s, ColUsers, bson.D{{Key: "username", Value: username}})
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	return findMany[model.User](ctx, s, ColUsers, byIDs(ids))
}

func (s *Store) UpdateUserProfile(ctx context.Context, user *model.User) error {
	return s.setFields(ctx, ColUsers, user.ID, bson.D{
		{Key: "username", Value: user.Username},
		{Key: "email", Value: user.Email},
		{Key: "profile_picture", Value: user.ProfilePicture},
		{Key: "updated_at", Value: time.Now()},
	})
}
