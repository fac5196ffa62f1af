package models

import "time"

// TimestampLayout is the ISO-8601 shape stored in annotation rows,
// local time at second precision.
const TimestampLayout = "2006-01-02T15:04:05"

// NowTimestamp returns the current local time in TimestampLayout.
func NowTimestamp() string {
	return time.Now().Format(TimestampLayout)
}

// Annotation represents one rating record in the database using GORM.
// It corresponds to the 'annotations' table. There is at most one row
// per image: writes go through an upsert keyed on ImagePath.
type Annotation struct {
	ImagePath string `gorm:"primaryKey" json:"image_path"` // path relative to the images folder, slash-separated
	Rating    int    `gorm:"not null;default:0" json:"rating"`
	Marked    bool   `gorm:"not null;default:false" json:"marked"`
	Username  string `gorm:"not null" json:"username"`
	Timestamp string `gorm:"not null" json:"timestamp"` // ISO-8601, see TimestampLayout
}

// TableName explicitly sets the table name for GORM.
func (Annotation) TableName() string {
	return "annotations"
}

// IsRated reports whether the row carries an actual rating; 0 means
// the image is unrated (a row can exist for a marked-only image).
func (a *Annotation) IsRated() bool {
	return a.Rating > 0
}
