package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"UD_referral_bot/internal/model"
	"UD_referral_bot/internal/repository"
	"UD_referral_bot/pkg/logger"

	"go.uber.org/zap"
)

type ScheduleStatus int

const (
	ScheduleCreated ScheduleStatus = iota
	ScheduleInvalidDate
	ScheduleOwnerNotFound
	ScheduleDuplicateForDate
	ScheduleUnknownError
)

func (s ScheduleStatus) String() string {
	switch s {
	case ScheduleCreated:
		return "created"
	case ScheduleInvalidDate:
		return "invalid_date"
	case ScheduleOwnerNotFound:
		return "owner_not_found"
	case ScheduleDuplicateForDate:
		return "duplicate_for_date"
	default:
		return "unknown_error"
	}
}

type CancelStatus int

const (
	CancelDeleted CancelStatus = iota
	CancelInvalidDate
	CancelNotFound
	CancelUnknownError
)

func (s CancelStatus) String() string {
	switch s {
	case CancelDeleted:
		return "deleted"
	case CancelInvalidDate:
		return "invalid_date"
	case CancelNotFound:
		return "not_found"
	default:
		return "unknown_error"
	}
}

var (
	ErrInvalidDate      = errors.New("publish date must be a calendar date")
	ErrDuplicateForDate = errors.New("content plan entry already scheduled for the date")
	ErrEntryNotFound    = errors.New("content plan entry not found")
)

type ContentPlanService struct {
	repo   ContentPlanRepository
	clock  Clock
	events EventSink
}

func NewContentPlanService(repo ContentPlanRepository, clock Clock, events EventSink) *ContentPlanService {
	return &ContentPlanService{
		repo:   repo,
		clock:  clock,
		events: sinkOrDefault(events),
	}
}

// Schedule stores a broadcast of message to ownerID's referrals on publishDate.
func (s *ContentPlanService) Schedule(
	ctx context.Context,
	ownerID, message string,
	publishDate time.Time,
	mediaPath *string,
) ScheduleStatus {
	op := begin(s.events, "content_plan.schedule", map[string]string{
		"owner_id":     ownerID,
		"publish_date": publishDate.Format(time.DateOnly),
	})

	status, err := s.schedule(ctx, ownerID, message, publishDate, mediaPath)
	op.keys["status"] = status.String()
	switch status {
	case ScheduleCreated:
		op.end(ctx, model.OutcomeOK, nil)
	case ScheduleUnknownError:
		op.end(ctx, model.OutcomeFailed, err)
	default:
		op.end(ctx, model.OutcomeRejected, err)
	}

	return status
}

func (s *ContentPlanService) schedule(
	ctx context.Context,
	ownerID, message string,
	publishDate time.Time,
	mediaPath *string,
) (ScheduleStatus, error) {
	if !IsCalendarDate(publishDate) {
		return ScheduleInvalidDate, ErrInvalidDate
	}
	if ownerID == "" {
		return ScheduleOwnerNotFound, ErrUserNotFound
	}

	if mediaPath != nil && *mediaPath == "" {
		mediaPath = nil
	}

	err := s.repo.CreateContentPlanEntry(ctx, &model.ContentPlanEntry{
		OwnerID:     ownerID,
		Message:     message,
		MediaPath:   mediaPath,
		PublishDate: CalendarDate(publishDate),
	})
	switch {
	case err == nil:
		return ScheduleCreated, nil
	case errors.Is(err, repository.ErrUserNotFound):
		return ScheduleOwnerNotFound, ErrUserNotFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return ScheduleDuplicateForDate, ErrDuplicateForDate
	default:
		return ScheduleUnknownError, fmt.Errorf("failed to schedule content plan entry: %w", err)
	}
}

// Cancel removes ownerID's entry for publishDate.
func (s *ContentPlanService) Cancel(ctx context.Context, ownerID string, publishDate time.Time) CancelStatus {
	op := begin(s.events, "content_plan.cancel", map[string]string{
		"owner_id":     ownerID,
		"publish_date": publishDate.Format(time.DateOnly),
	})

	status, err := s.cancel(ctx, ownerID, publishDate)
	op.keys["status"] = status.String()
	switch status {
	case CancelDeleted:
		op.end(ctx, model.OutcomeOK, nil)
	case CancelUnknownError:
		op.end(ctx, model.OutcomeFailed, err)
	default:
		op.end(ctx, model.OutcomeRejected, err)
	}

	return status
}

func (s *ContentPlanService) cancel(ctx context.Context, ownerID string, publishDate time.Time) (CancelStatus, error) {
	if !IsCalendarDate(publishDate) {
		return CancelInvalidDate, ErrInvalidDate
	}

	err := s.repo.DeleteContentPlanEntry(ctx, ownerID, CalendarDate(publishDate))
	switch {
	case err == nil:
		return CancelDeleted, nil
	case errors.Is(err, repository.ErrNotFound):
		return CancelNotFound, ErrEntryNotFound
	default:
		return CancelUnknownError, fmt.Errorf("failed to cancel content plan entry: %w", err)
	}
}

// ListForOwner returns ownerID's scheduled entries ordered by publish date.
func (s *ContentPlanService) ListForOwner(ctx context.Context, ownerID string) ([]model.ContentPlanEntry, error) {
	op := begin(s.events, "content_plan.list", map[string]string{"owner_id": ownerID})

	entries, err := s.repo.GetContentPlanEntries(ctx, ownerID)
	if err != nil {
		err = fmt.Errorf("failed to list content plan: %w", err)
		op.end(ctx, model.OutcomeFailed, err)
		return nil, err
	}

	op.keys["count"] = strconv.Itoa(len(entries))
	op.end(ctx, model.OutcomeOK, nil)
	return entries, nil
}

// DueToday returns the entries published today keyed by owner.
func (s *ContentPlanService) DueToday(ctx context.Context) (map[string]model.ContentPlanMessage, error) {
	today := s.clock.Today()
	op := begin(s.events, "content_plan.due_today", map[string]string{"date": today.Format(time.DateOnly)})

	entries, err := s.repo.GetContentPlanByDate(ctx, today)
	if err != nil {
		err = fmt.Errorf("failed to get today's content plan: %w", err)
		op.end(ctx, model.OutcomeFailed, err)
		return nil, err
	}

	due := make(map[string]model.ContentPlanMessage, len(entries))
	for _, entry := range entries {
		if !CalendarDate(entry.PublishDate).Equal(today) {
			continue
		}
		if _, dup := due[entry.OwnerID]; dup {
			logger.Logger().Warn("more than one content plan entry due for owner",
				zap.String("owner_id", entry.OwnerID),
				zap.Time("date", today))
			continue
		}
		due[entry.OwnerID] = model.ContentPlanMessage{
			Message:   entry.Message,
			MediaPath: entry.MediaPath,
		}
	}

	op.keys["count"] = strconv.Itoa(len(due))
	op.end(ctx, model.OutcomeOK, nil)
	return due, nil
}

// SweepExpired deletes every entry published before today and returns the media
// paths they referenced so the files can be removed.
func (s *ContentPlanService) SweepExpired(ctx context.Context) ([]string, error) {
	today := s.clock.Today()
	op := begin(s.events, "content_plan.sweep_expired", map[string]string{"before": today.Format(time.DateOnly)})

	paths, err := s.repo.DeleteContentPlanBefore(ctx, today)
	if err != nil {
		err = fmt.Errorf("failed to sweep expired content plan: %w", err)
		op.end(ctx, model.OutcomeFailed, err)
		return nil, err
	}

	op.keys["media_count"] = strconv.Itoa(len(paths))
	op.end(ctx, model.OutcomeOK, nil)
	return paths, nil
}
