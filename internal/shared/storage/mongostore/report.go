package mongostore

import (
	"context"

	"tragic-bricks/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// ReportStore
// ============================================================================

func (s *Store) CreateReport(ctx context.Context, report *model.Report) error {
	return s.insertOne(ctx, ColReports, report)
}

func (s *Store) ListReports(ctx context.Context, limit int) ([]*model.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findMany[model.Report](ctx, s, ColReports, bson.D{}, opts)
}
