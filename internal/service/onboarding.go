package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"UD_referral_bot/internal/model"

	"github.com/google/uuid"
)

type CohortBucketer interface {
	BucketForMailing(ctx context.Context, windowDays int) (map[int][]string, error)
}

// OnboardingService sends the day-N onboarding text to users registered N days ago.
type OnboardingService struct {
	cohorts    CohortBucketer
	notifier   Notifier
	events     EventSink
	windowDays int
	messages   map[int]string
	workers    int
}

func NewOnboardingService(
	cohorts CohortBucketer,
	notifier Notifier,
	events EventSink,
	windowDays int,
	messages map[int]string,
) *OnboardingService {
	return &OnboardingService{
		cohorts:    cohorts,
		notifier:   notifier,
		events:     sinkOrDefault(events),
		windowDays: windowDays,
		messages:   messages,
		workers:    1,
	}
}

func (s *OnboardingService) WithWorkers(n int) *OnboardingService {
	if n > 0 {
		s.workers = n
	}
	return s
}

func (s *OnboardingService) Run(ctx context.Context) (*model.OnboardingReport, error) {
	report := &model.OnboardingReport{RunID: uuid.New()}
	op := begin(s.events, "onboarding.run", map[string]string{"run_id": report.RunID.String()})

	buckets, err := s.cohorts.BucketForMailing(ctx, s.windowDays)
	if err != nil {
		err = fmt.Errorf("failed to bucket users: %w", err)
		op.end(ctx, model.OutcomeFailed, err)
		return report, err
	}

	days := make([]int, 0, len(buckets))
	for day := range buckets {
		if _, ok := s.messages[day]; ok {
			days = append(days, day)
		}
	}
	sort.Ints(days)

	counts := map[model.DeliveryStatus]int{}
	for _, day := range days {
		text := s.messages[day]
		outcomes := deliverAll(ctx, s.workers, buckets[day], func(ctx context.Context, id string) error {
			return s.notifier.SendText(ctx, id, text)
		})
		countOutcomes(outcomes, counts)
		report.Buckets = append(report.Buckets, model.BucketReport{Days: day, Deliveries: outcomes})
	}

	op.keys["buckets"] = strconv.Itoa(len(report.Buckets))
	op.keys["delivered"] = strconv.Itoa(counts[model.DeliveryDelivered])
	op.keys["failed"] = strconv.Itoa(counts[model.DeliveryFailed])

	if err := ctx.Err(); err != nil {
		op.end(ctx, model.OutcomeFailed, err)
		return report, err
	}

	op.end(ctx, model.OutcomeOK, nil)
	return report, nil
}
