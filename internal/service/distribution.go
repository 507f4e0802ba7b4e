package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"UD_referral_bot/internal/model"
	"UD_referral_bot/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	skipNoRecipients   = "no recipients"
	skipResolveFailed  = "failed to resolve recipients"
	skipMediaMissing   = "media file missing"
	skipMediaCheckFail = "failed to check media file"
	skipRunInterrupted = "run interrupted"
)

type DistributionService struct {
	plans     ContentPlanServiceI
	referrals ReferralResolver
	notifier  Notifier
	files     FileStorage
	events    EventSink
	workers   int
}

func NewDistributionService(
	plans ContentPlanServiceI,
	referrals ReferralResolver,
	notifier Notifier,
	files FileStorage,
	events EventSink,
) *DistributionService {
	return &DistributionService{
		plans:     plans,
		referrals: referrals,
		notifier:  notifier,
		files:     files,
		events:    sinkOrDefault(events),
		workers:   1,
	}
}

// WithWorkers allows up to n deliveries of one entry to run at the same time.
func (s *DistributionService) WithWorkers(n int) *DistributionService {
	if n > 0 {
		s.workers = n
	}
	return s
}

// Run performs one distribution: it sweeps expired entries and their media, then
// delivers each entry due today to the owner's resolved referrals. Delivery is
// best effort; per-recipient results are collected in the report.
func (s *DistributionService) Run(ctx context.Context) (*model.DistributionReport, error) {
	report := &model.DistributionReport{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}
	op := begin(s.events, "distribution.run", map[string]string{"run_id": report.RunID.String()})

	err := s.run(ctx, report)
	report.FinishedAt = time.Now()

	counts := map[model.DeliveryStatus]int{}
	for _, entry := range report.Entries {
		countOutcomes(entry.Deliveries, counts)
	}
	op.keys["entries"] = strconv.Itoa(len(report.Entries))
	op.keys["delivered"] = strconv.Itoa(counts[model.DeliveryDelivered])
	op.keys["unreachable"] = strconv.Itoa(counts[model.DeliveryUnreachable])
	op.keys["failed"] = strconv.Itoa(counts[model.DeliveryFailed])

	if err != nil {
		op.end(ctx, model.OutcomeFailed, err)
		return report, err
	}

	op.end(ctx, model.OutcomeOK, nil)
	return report, nil
}

func (s *DistributionService) run(ctx context.Context, report *model.DistributionReport) error {
	log := logger.Named("distribution").With(zap.String("run_id", report.RunID.String()))

	paths, err := s.plans.SweepExpired(ctx)
	if err != nil {
		log.Error("failed to sweep expired content plan", zap.Error(err))
	}
	for _, path := range paths {
		cleanup := model.FileCleanup{Path: path}
		if err := s.files.Delete(path); err != nil {
			log.Error("failed to delete expired media", zap.String("path", path), zap.Error(err))
			cleanup.Err = err
		}
		report.Cleanup = append(report.Cleanup, cleanup)
	}

	due, err := s.plans.DueToday(ctx)
	if err != nil {
		return fmt.Errorf("failed to load entries due today: %w", err)
	}

	owners := make([]string, 0, len(due))
	for owner := range due {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			report.Entries = append(report.Entries, model.EntryReport{
				OwnerID:    owner,
				Skipped:    true,
				SkipReason: skipRunInterrupted,
			})
			continue
		}

		entry := s.distributeEntry(ctx, log, owner, due[owner])
		report.Entries = append(report.Entries, entry)
	}

	return ctx.Err()
}

func (s *DistributionService) distributeEntry(
	ctx context.Context,
	log *zap.Logger,
	owner string,
	msg model.ContentPlanMessage,
) model.EntryReport {
	log = log.With(zap.String("owner_id", owner))
	entry := model.EntryReport{
		OwnerID:   owner,
		MediaKind: ClassifyMedia(msg.MediaPath),
	}

	recipients, err := s.referrals.ResolveReferrals(ctx, owner)
	if err != nil {
		log.Error("failed to resolve recipients", zap.Error(err))
		entry.Skipped = true
		entry.SkipReason = skipResolveFailed
		return entry
	}
	if len(recipients) == 0 {
		entry.Skipped = true
		entry.SkipReason = skipNoRecipients
		return entry
	}

	if entry.MediaKind != model.MediaNone {
		exists, err := s.files.Exists(*msg.MediaPath)
		if err != nil {
			log.Error("failed to check media file", zap.String("path", *msg.MediaPath), zap.Error(err))
			entry.Skipped = true
			entry.SkipReason = skipMediaCheckFail
			return entry
		}
		if !exists {
			log.Warn("media file not found, entry not delivered", zap.String("path", *msg.MediaPath))
			entry.Skipped = true
			entry.SkipReason = skipMediaMissing
			return entry
		}
	}

	entry.Deliveries = deliverAll(ctx, s.workers, recipients, s.sender(entry.MediaKind, msg))
	return entry
}

func (s *DistributionService) sender(kind model.MediaKind, msg model.ContentPlanMessage) sendFunc {
	switch kind {
	case model.MediaPhoto:
		return func(ctx context.Context, id string) error {
			return s.notifier.SendPhoto(ctx, id, *msg.MediaPath, msg.Message)
		}
	case model.MediaVideo:
		return func(ctx context.Context, id string) error {
			return s.notifier.SendVideo(ctx, id, *msg.MediaPath, msg.Message)
		}
	case model.MediaDocument:
		return func(ctx context.Context, id string) error {
			return s.notifier.SendDocument(ctx, id, *msg.MediaPath, msg.Message)
		}
	default:
		return func(ctx context.Context, id string) error {
			return s.notifier.SendText(ctx, id, msg.Message)
		}
	}
}
