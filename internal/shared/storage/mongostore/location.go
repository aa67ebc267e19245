package mongostore

import (
	"context"
	"regexp"

	"tragic-bricks/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// searchFields 自由文本搜索覆盖的字段
var searchFields = []string{
	"name",
	"description",
	"address.street",
	"address.city",
	"address.state",
	"address.country",
}

// ============================================================================
// LocationStore
// ============================================================================

func (s *Store) CreateLocation(ctx context.Context, loc *model.Location) error {
	return s.insertOne(ctx, ColLocations, loc)
}

func (s *Store) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	return findOne[model.Location](ctx, s, ColLocations, byID(id))
}

func (s *Store) GetLocationsByIDs(ctx context.Context, ids []string) ([]*model.Location, error) {
	if len(ids) == 0 {
		return []*model.Location{}, nil
	}
	return findMany[model.Location](ctx, s, ColLocations, byIDs(ids))
}

func (s *Store) ListLocations(ctx context.Context, filter model.LocationFilter) ([]*model.Location, error) {
	opts := options.Find().SetSort(locationSort(filter.Sort))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return findMany[model.Location](ctx, s, ColLocations, locationFilter(filter), opts)
}

func (s *Store) SetLocationRating(ctx context.Context, id string, average float64, count int) error {
	return s.setFields(ctx, ColLocations, id, bson.D{
		{Key: "average_rating", Value: average},
		{Key: "review_count", Value: count},
	})
}

func (s *Store) MigrateLegacyLocationTypes(ctx context.Context) (int64, error) {
	res, err := s.col(ColLocations).UpdateMany(ctx,
		bson.D{{Key: "type", Value: model.LegacyLocationTypeUnknown}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "type", Value: string(model.LocationTypeMysterious)}}}},
	)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.ModifiedCount, nil
}

// locationFilter 将 LocationFilter 转换为 MongoDB 查询
func locationFilter(f model.LocationFilter) bson.D {
	filter := bson.D{}
	if f.Type != "" {
		filter = append(filter, bson.E{Key: "type", Value: string(f.Type)})
	}
	if f.DiscoveredBy != "" {
		filter = append(filter, bson.E{Key: "discovered_by", Value: f.DiscoveredBy})
	}
	if f.Search != "" {
		// 用户输入按字面量匹配，不允许注入正则
		rx := bson.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		or := bson.A{}
		for _, field := range searchFields {
			or = append(or, bson.D{{Key: field, Value: rx}})
		}
		filter = append(filter, bson.E{Key: "$or", Value: or})
	}
	return filter
}

// locationSort 排序规则，created_at 作为次级键保证结果稳定
func locationSort(sort model.LocationSort) bson.D {
	switch sort {
	case model.SortRating:
		return bson.D{{Key: "average_rating", Value: -1}, {Key: "created_at", Value: -1}}
	case model.SortReviews:
		return bson.D{{Key: "review_count", Value: -1}, {Key: "created_at", Value: -1}}
	case model.SortOldest:
		return bson.D{{Key: "created_at", Value: 1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}}
	}
}
