package model

import "time"

type ContentPlanEntry struct {
	OwnerID     string
	Message     string
	MediaPath   *string
	PublishDate time.Time
}

type ContentPlanMessage struct {
	Message   string
	MediaPath *string
}
