package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"UD_referral_bot/internal/model"
)

type CohortService struct {
	repo   CohortRepository
	clock  Clock
	events EventSink
}

func NewCohortService(repo CohortRepository, clock Clock, events EventSink) *CohortService {
	return &CohortService{
		repo:   repo,
		clock:  clock,
		events: sinkOrDefault(events),
	}
}

// BucketForMailing groups users registered within the last windowDays days by the
// number of whole days since registration. Users registered today are excluded.
//
// The lower bound is midnight of today minus (windowDays + 1) days, exclusive, so keys
// run from 1 to windowDays+1.
func (s *CohortService) BucketForMailing(ctx context.Context, windowDays int) (map[int][]string, error) {
	op := begin(s.events, "cohort.bucket_for_mailing", map[string]string{"window_days": strconv.Itoa(windowDays)})

	buckets, err := s.bucket(ctx, windowDays)
	if err != nil {
		op.end(ctx, model.OutcomeFailed, err)
		return nil, err
	}

	op.keys["buckets"] = strconv.Itoa(len(buckets))
	op.end(ctx, model.OutcomeOK, nil)
	return buckets, nil
}

func (s *CohortService) bucket(ctx context.Context, windowDays int) (map[int][]string, error) {
	loc := s.clock.Location
	if loc == nil {
		loc = time.UTC
	}

	today := s.clock.Today()
	todayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	from := todayStart.AddDate(0, 0, -(windowDays + 1))

	rows, err := s.repo.GetUsersRegisteredBetween(ctx, from, todayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}

	buckets := make(map[int][]string)
	for _, row := range rows {
		reg := row.RegistrationDate.In(loc)
		if !reg.After(from) || !reg.Before(todayStart) {
			continue
		}
		days := daysBetween(reg, today)
		buckets[days] = append(buckets[days], row.TelegramID)
	}

	return buckets, nil
}
