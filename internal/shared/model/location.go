package model

import (
	"fmt"
	"strings"
	"time"
)

// LocationType 地点类型
type LocationType string

const (
	LocationTypeHaunted    LocationType = "haunted"
	LocationTypeAbandoned  LocationType = "abandoned"
	LocationTypeHistorical LocationType = "historical"
	LocationTypeMysterious LocationType = "mysterious"
)

// LegacyLocationTypeUnknown 早期记录使用的类型值，迁移为 mysterious
const LegacyLocationTypeUnknown = "unknown"

// LocationTypes 合法的地点类型
var LocationTypes = []LocationType{
	LocationTypeHaunted,
	LocationTypeAbandoned,
	LocationTypeHistorical,
	LocationTypeMysterious,
}

// ParseLocationType 去空白并转小写后匹配合法类型
func ParseLocationType(s string) (LocationType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == LegacyLocationTypeUnknown {
		return LocationTypeMysterious, nil
	}
	for _, t := range LocationTypes {
		if string(t) == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown location type %q", s)
}

// Address 地址
type Address struct {
	Street  string `json:"street,omitempty" bson:"street,omitempty"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	Country string `json:"country" bson:"country"`
}

// Coordinates 经纬度
type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Location 用户提交的地点
//
// AverageRating 与 ReviewCount 由评价集合派生，只在 ledger 重算聚合时写入。
type Location struct {
	ID             string       `json:"id" bson:"_id"`
	Name           string       `json:"name" bson:"name"`
	Description    string       `json:"description" bson:"description"`
	Type           LocationType `json:"type" bson:"type"`
	Address        Address      `json:"address" bson:"address"`
	Coordinates    Coordinates  `json:"coordinates" bson:"coordinates"`
	Images         []string     `json:"images" bson:"images"`
	DiscoveredByID string       `json:"-" bson:"discovered_by"`
	AverageRating  float64      `json:"averageRating" bson:"average_rating"`
	ReviewCount    int          `json:"reviewCount" bson:"review_count"`
	Verified       bool         `json:"verified" bson:"verified"`
	CreatedAt      time.Time    `json:"createdAt" bson:"created_at"`

	// 读取时填充
	DiscoveredBy *UserSummary `json:"discoveredBy,omitempty" bson:"-"`
	Reviews      []*Review    `json:"reviews,omitempty" bson:"-"`
}

// LocationSort 列表排序方式
type LocationSort string

const (
	SortRecent  LocationSort = "recent"
	SortRating  LocationSort = "rating"
	SortReviews LocationSort = "reviews"
	SortOldest  LocationSort = "oldest"
)

// ParseLocationSort 空值或无法识别时回退到 SortRecent
func ParseLocationSort(s string) LocationSort {
	switch LocationSort(strings.ToLower(strings.TrimSpace(s))) {
	case SortRating:
		return SortRating
	case SortReviews:
		return SortReviews
	case SortOldest:
		return SortOldest
	default:
		return SortRecent
	}
}

// LocationFilter 存储层查询条件，零值表示不限制
type LocationFilter struct {
	Type         LocationType
	Search       string
	DiscoveredBy string
	Sort         LocationSort
	Limit        int
}
