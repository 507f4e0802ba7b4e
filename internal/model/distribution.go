package model

import (
	"time"

	"github.com/google/uuid"
)

type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaPhoto
	MediaVideo
	MediaDocument
)

func (k MediaKind) String() string {
	switch k {
	case MediaPhoto:
		return "photo"
	case MediaVideo:
		return "video"
	case MediaDocument:
		return "document"
	default:
		return "none"
	}
}

type DeliveryStatus int

const (
	DeliveryDelivered DeliveryStatus = iota
	DeliveryUnreachable
	DeliveryFailed
	DeliveryAbandoned
)

func (s DeliveryStatus) String() string {
	switch s {
	case DeliveryDelivered:
		return "delivered"
	case DeliveryUnreachable:
		return "unreachable"
	case DeliveryFailed:
		return "failed"
	case DeliveryAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

type DeliveryOutcome struct {
	RecipientID string
	Status      DeliveryStatus
	Err         error
}

type EntryReport struct {
	OwnerID    string
	MediaKind  MediaKind
	Skipped    bool
	SkipReason string
	Deliveries []DeliveryOutcome
}

// Count returns how many deliveries of the entry ended with status.
func (r EntryReport) Count(status DeliveryStatus) int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Status == status {
			n++
		}
	}
	return n
}

type FileCleanup struct {
	Path string
	Err  error
}

type DistributionReport struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Cleanup    []FileCleanup
	Entries    []EntryReport
}

type BucketReport struct {
	Days       int
	Deliveries []DeliveryOutcome
}

type OnboardingReport struct {
	RunID   uuid.UUID
	Buckets []BucketReport
}
