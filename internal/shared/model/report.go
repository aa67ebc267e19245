package model

import "time"

// ReportType 举报类型
type ReportType string

const (
	ReportTypeInaccurate    ReportType = "inaccurate"
	ReportTypeInappropriate ReportType = "inappropriate"
	ReportTypeDangerous     ReportType = "dangerous"
	ReportTypeClosed        ReportType = "closed"
	ReportTypeOther         ReportType = "other"
)

// ReportStatus 举报处理状态
type ReportStatus string

const ReportStatusOpen ReportStatus = "open"

// Report 针对地点的人工举报
type Report struct {
	ID           string       `json:"id" bson:"_id"`
	LocationID   string       `json:"locationId,omitempty" bson:"location_id,omitempty"`
	LocationName string       `json:"locationName" bson:"location_name"`
	ReportType   ReportType   `json:"reportType" bson:"report_type"`
	Description  string       `json:"description" bson:"description"`
	Images       []string     `json:"images,omitempty" bson:"images,omitempty"`
	ContactEmail string       `json:"contactEmail,omitempty" bson:"contact_email,omitempty"`
	ReporterID   string       `json:"reporterId,omitempty" bson:"reporter_id,omitempty"`
	Status       ReportStatus `json:"status" bson:"status"`
	CreatedAt    time.Time    `json:"createdAt" bson:"created_at"`
}
