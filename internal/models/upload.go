package models

import "time"

type Upload struct {
	ID          string
	UserID      string
	ObjectKey   string
	URL         string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}
