package ledger

import (
	"context"
	"errors"
	"strings"

	"tragic-bricks/internal/shared/apperr"
	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage"
)

// ErrAlreadyReviewed 同一用户对同一地点的第二条评价
var ErrAlreadyReviewed = apperr.Conflict("you have already reviewed this location")

// AddReviewCommand 新增评价
type AddReviewCommand struct {
	Rating  int      `json:"rating" validate:"gte=1,lte=5"`
	Comment string   `json:"comment" validate:"required,min=10"`
	Images  []string `json:"images" validate:"omitempty,dive,required,httpurl"`
}

func (c *AddReviewCommand) normalize() {
	c.Comment = strings.TrimSpace(c.Comment)
	c.Images = trimAll(c.Images)
}

// UpdateReviewCommand 修改评价；nil 字段保持不变
type UpdateReviewCommand struct {
	Rating  *int     `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment *string  `json:"comment" validate:"omitempty,min=10"`
	Images  []string `json:"images" validate:"omitempty,dive,required,httpurl"`
}

func (c *UpdateReviewCommand) normalize() {
	if c.Comment != nil {
		s := strings.TrimSpace(*c.Comment)
		c.Comment = &s
	}
	c.Images = trimAll(c.Images)
}

// UserReview 用户评价列表条目
type UserReview struct {
	*model.Review
	LocationRef string `json:"locationId"`
}

// ListReviews 地点的全部评价，新的在前
func (l *Ledger) ListReviews(ctx context.Context, locationID string) ([]*model.Review, error) {
	if _, err := l.findLocation(ctx, locationID); err != nil {
		return nil, err
	}
	reviews, err := l.store.ListReviewsByLocation(ctx, locationID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if reviews == nil {
		reviews = []*model.Review{}
	}
	if err := l.populateReviews(ctx, reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// AddReview 新增评价并重算聚合
//
// (location, user) 唯一性由存储层唯一索引在插入时保证，不做先查后写。
func (l *Ledger) AddReview(ctx context.Context, actor Actor, locationID string, cmd AddReviewCommand) (*model.Review, error) {
	cmd.normalize()
	if err := l.validator.Struct(cmd); err != nil {
		return nil, err
	}
	if _, err := l.findLocation(ctx, locationID); err != nil {
		return nil, err
	}

	now := l.now()
	review := &model.Review{
		ID:         newID(),
		LocationID: locationID,
		UserID:     actor.ID,
		Rating:     cmd.Rating,
		Comment:    cmd.Comment,
		Images:     nonNil(cmd.Images),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := l.mutateReviews(ctx, "add", locationID, func(ctx context.Context) error {
		if err := l.store.CreateReview(ctx, review); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return ErrAlreadyReviewed
			}
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := l.populateReviews(ctx, []*model.Review{review}); err != nil {
		return nil, err
	}
	l.log.WithContext(ctx).Info("review added", "location_id", locationID, "review_id", review.ID, "rating", review.Rating)
	return review, nil
}

// UpdateReview 仅作者可修改
func (l *Ledger) UpdateReview(ctx context.Context, actor Actor, locationID, reviewID string, cmd UpdateReviewCommand) (*model.Review, error) {
	cmd.normalize()
	if err := l.validator.Struct(cmd); err != nil {
		return nil, err
	}
	if _, err := l.findLocation(ctx, locationID); err != nil {
		return nil, err
	}

	var updated *model.Review
	err := l.mutateReviews(ctx, "update", locationID, func(ctx context.Context) error {
		review, err := l.findReview(ctx, locationID, reviewID)
		if err != nil {
			return err
		}
		if review.UserID != actor.ID {
			return apperr.Forbidden("not authorized to update this review")
		}

		if cmd.Rating != nil {
			review.Rating = *cmd.Rating
		}
		if cmd.Comment != nil {
			review.Comment = *cmd.Comment
		}
		if cmd.Images != nil {
			review.Images = cmd.Images
		}
		review.UpdatedAt = l.now()

		if err := l.store.UpdateReview(ctx, review); err != nil {
			return storeErr(err, "review not found")
		}
		updated = review
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := l.populateReviews(ctx, []*model.Review{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteReview 作者或管理员可删除；删除最后一条评价后聚合归零
func (l *Ledger) DeleteReview(ctx context.Context, actor Actor, locationID, reviewID string) error {
	if _, err := l.findLocation(ctx, locationID); err != nil {
		return err
	}

	err := l.mutateReviews(ctx, "delete", locationID, func(ctx context.Context) error {
		review, err := l.findReview(ctx, locationID, reviewID)
		if err != nil {
			return err
		}
		if review.UserID != actor.ID && !actor.IsAdmin() {
			return apperr.Forbidden("not authorized to delete this review")
		}
		return storeErr(l.store.DeleteReview(ctx, review.ID), "review not found")
	})
	if err != nil {
		return err
	}

	l.log.WithContext(ctx).Info("review deleted", "location_id", locationID, "review_id", reviewID, "by_admin", actor.IsAdmin())
	return nil
}

// ListUserReviews 调用者写过的评价，附带地点名称
func (l *Ledger) ListUserReviews(ctx context.Context, actor Actor) ([]*UserReview, error) {
	reviews, err := l.store.ListReviewsByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.LocationID)
	}
	locs, err := l.store.GetLocationsByIDs(ctx, unique(ids))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	names := make(map[string]string, len(locs))
	for _, loc := range locs {
		names[loc.ID] = loc.Name
	}

	if err := l.populateReviews(ctx, reviews); err != nil {
		return nil, err
	}

	out := make([]*UserReview, 0, len(reviews))
	for _, r := range reviews {
		r.LocationName = names[r.LocationID]
		out = append(out, &UserReview{Review: r, LocationRef: r.LocationID})
	}
	return out, nil
}

// findReview 评价必须属于该地点
func (l *Ledger) findReview(ctx context.Context, locationID, reviewID string) (*model.Review, error) {
	review, err := l.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if review == nil || review.LocationID != locationID {
		return nil, apperr.NotFound("review not found")
	}
	return review, nil
}

func trimAll(ss []string) []string {
	for i := range ss {
		ss[i] = strings.TrimSpace(ss[i])
	}
	return ss
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
