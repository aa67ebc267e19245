package model

import (
	"math"
	"time"
)

// 评分范围
const (
	MinRating = 1
	MaxRating = 5
)

// Review 用户对地点的评价，每个 (LocationID, UserID) 至多一条
type Review struct {
	ID         string    `json:"id" bson:"_id"`
	LocationID string    `json:"location" bson:"location_id"`
	UserID     string    `json:"-" bson:"user_id"`
	Rating     int       `json:"rating" bson:"rating"`
	Comment    string    `json:"comment" bson:"comment"`
	Images     []string  `json:"images" bson:"images"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updated_at"`

	// 读取时填充
	User         *UserSummary `json:"user,omitempty" bson:"-"`
	LocationName string       `json:"locationName,omitempty" bson:"-"`
}

// AverageRating 评分均值，保留一位小数；空集合返回 0
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return math.Round(float64(sum)/float64(len(ratings))*10) / 10
}
