package service

import (
	"context"
	"errors"

	"UD_referral_bot/internal/model"
	"UD_referral_bot/internal/notifier"
	"UD_referral_bot/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type sendFunc func(ctx context.Context, recipientID string) error

// deliverAll sends to every recipient with at most workers deliveries in flight.
// A failing recipient never stops the others; the outcome of recipients[i] is at index i.
func deliverAll(ctx context.Context, workers int, recipients []string, send sendFunc) []model.DeliveryOutcome {
	outcomes := make([]model.DeliveryOutcome, len(recipients))

	var g errgroup.Group
	g.SetLimit(max(workers, 1))

	for i, id := range recipients {
		if err := ctx.Err(); err != nil {
			outcomes[i] = model.DeliveryOutcome{RecipientID: id, Status: model.DeliveryAbandoned, Err: err}
			continue
		}
		i, id := i, id // per-iteration copies (module targets go1.22 loopvar semantics)
		g.Go(func() error {
			outcomes[i] = deliverOne(ctx, id, send)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func deliverOne(ctx context.Context, recipientID string, send sendFunc) model.DeliveryOutcome {
	if err := ctx.Err(); err != nil {
		return model.DeliveryOutcome{RecipientID: recipientID, Status: model.DeliveryAbandoned, Err: err}
	}

	err := send(ctx, recipientID)
	switch {
	case err == nil:
		return model.DeliveryOutcome{RecipientID: recipientID, Status: model.DeliveryDelivered}
	case errors.Is(err, notifier.ErrRecipientUnreachable):
		logger.Logger().Debug("recipient unreachable",
			zap.String("recipient_id", recipientID),
			zap.Error(err))
		return model.DeliveryOutcome{RecipientID: recipientID, Status: model.DeliveryUnreachable, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.DeliveryOutcome{RecipientID: recipientID, Status: model.DeliveryAbandoned, Err: err}
	default:
		logger.Logger().Error("failed to deliver message",
			zap.String("recipient_id", recipientID),
			zap.Error(err))
		return model.DeliveryOutcome{RecipientID: recipientID, Status: model.DeliveryFailed, Err: err}
	}
}

func countOutcomes(outcomes []model.DeliveryOutcome, counts map[model.DeliveryStatus]int) {
	for _, o := range outcomes {
		counts[o.Status]++
	}
}
