package ledger

import (
	"context"
	"strings"

	"tragic-bricks/internal/shared/apperr"
	"tragic-bricks/internal/shared/model"
)

// SearchLimit /search 返回数量上限
const SearchLimit = 20

// AddressInput 地址输入
type AddressInput struct {
	Street  string `json:"street"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Country string `json:"country" validate:"required"`
}

// CoordinatesInput 坐标输入；指针用于区分缺省与 0
type CoordinatesInput struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// CreateLocationCommand 新建地点
type CreateLocationCommand struct {
	Name        string           `json:"name" validate:"required,min=3"`
	Description string           `json:"description" validate:"required,min=20"`
	Type        string           `json:"type" validate:"required,location_type"`
	Address     AddressInput     `json:"address"`
	Coordinates CoordinatesInput `json:"coordinates"`
	Images      []string         `json:"images" validate:"min=1,dive,required,httpurl"`
}

func (c *CreateLocationCommand) normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	c.Type = strings.TrimSpace(c.Type)
	c.Address.Street = strings.TrimSpace(c.Address.Street)
	c.Address.City = strings.TrimSpace(c.Address.City)
	c.Address.State = strings.TrimSpace(c.Address.State)
	c.Address.Country = strings.TrimSpace(c.Address.Country)
	for i := range c.Images {
		c.Images[i] = strings.TrimSpace(c.Images[i])
	}
}

// LocationQuery 列表与搜索参数（原始查询字符串值）
type LocationQuery struct {
	Type         string
	Search       string
	Sort         string
	DiscoveredBy string
	Limit        int
}

func (q LocationQuery) filter() (model.LocationFilter, error) {
	f := model.LocationFilter{
		Search:       strings.TrimSpace(q.Search),
		DiscoveredBy: q.DiscoveredBy,
		Sort:         model.ParseLocationSort(q.Sort),
		Limit:        q.Limit,
	}
	if strings.TrimSpace(q.Type) != "" {
		t, err := model.ParseLocationType(q.Type)
		if err != nil {
			return f, apperr.ValidationFields("invalid location type", map[string]string{
				"type": "must be one of: haunted, abandoned, historical, mysterious",
			})
		}
		f.Type = t
	}
	return f, nil
}

// SearchResult /search 结果
type SearchResult struct {
	Locations []*model.Location `json:"locations"`
	Total     int               `json:"total"`
}

// CreateLocation 新建地点；发现者取自 actor，不接受客户端指定
func (l *Ledger) CreateLocation(ctx context.Context, actor Actor, cmd CreateLocationCommand) (*model.Location, error) {
	cmd.normalize()
	if err := l.validator.Struct(cmd); err != nil {
		return nil, err
	}
	typ, err := model.ParseLocationType(cmd.Type)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	loc := &model.Location{
		ID:          newID(),
		Name:        cmd.Name,
		Description: cmd.Description,
		Type:        typ,
		Address: model.Address{
			Street:  cmd.Address.Street,
			City:    cmd.Address.City,
			State:   cmd.Address.State,
			Country: cmd.Address.Country,
		},
		Coordinates: model.Coordinates{
			Latitude:  *cmd.Coordinates.Latitude,
			Longitude: *cmd.Coordinates.Longitude,
		},
		Images:         cmd.Images,
		DiscoveredByID: actor.ID,
		AverageRating:  0,
		Verified:       false,
		CreatedAt:      l.now(),
	}
	if err := l.store.CreateLocation(ctx, loc); err != nil {
		return nil, apperr.Internal(err)
	}

	if err := l.populateLocations(ctx, []*model.Location{loc}); err != nil {
		return nil, err
	}
	l.log.WithContext(ctx).Info("location created", "location_id", loc.ID, "type", loc.Type)
	return loc, nil
}

// ListLocations 按条件列出地点；每次调用都重新查询
func (l *Ledger) ListLocations(ctx context.Context, q LocationQuery) ([]*model.Location, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	locs, err := l.store.ListLocations(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if locs == nil {
		locs = []*model.Location{}
	}
	if err := l.populateLocations(ctx, locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// SearchLocations 需要 q 或 type 之一，最多返回 SearchLimit 条
func (l *Ledger) SearchLocations(ctx context.Context, q LocationQuery) (*SearchResult, error) {
	if strings.TrimSpace(q.Search) == "" && strings.TrimSpace(q.Type) == "" {
		return nil, apperr.Validation("search query or type is required")
	}
	q.Limit = SearchLimit
	q.DiscoveredBy = ""
	locs, err := l.ListLocations(ctx, q)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Locations: locs, Total: len(locs)}, nil
}

// GetLocation 读取地点，填充发现者与全部评价作者
func (l *Ledger) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	loc, err := l.findLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := l.store.ListReviewsByLocation(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if reviews == nil {
		reviews = []*model.Review{}
	}
	if err := l.populateReviews(ctx, reviews); err != nil {
		return nil, err
	}
	if err := l.populateLocations(ctx, []*model.Location{loc}); err != nil {
		return nil, err
	}
	loc.Reviews = reviews
	return loc, nil
}

func (l *Ledger) findLocation(ctx context.Context, id string) (*model.Location, error) {
	loc, err := l.store.GetLocation(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if loc == nil {
		return nil, apperr.NotFound("location not found")
	}
	return loc, nil
}
