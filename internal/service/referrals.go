package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"UD_referral_bot/internal/model"
	"UD_referral_bot/internal/repository"
	"UD_referral_bot/pkg/logger"

	"go.uber.org/zap"
)

const DefaultMaxReferralDepth = 1024

const (
	UnknownReferrerURL  = "Link unknown"
	UnknownReferrerName = "Name unknown"
	NoReferrer          = "You have no referrer"
)

type ReferralInfoStatus int

const (
	ReferralInfoFound ReferralInfoStatus = iota
	ReferralInfoMissing
	ReferralInfoUserMissing
	ReferralInfoError
)

func (s ReferralInfoStatus) String() string {
	switch s {
	case ReferralInfoFound:
		return "found"
	case ReferralInfoMissing:
		return "missing"
	case ReferralInfoUserMissing:
		return "user_missing"
	default:
		return "error"
	}
}

// ReferralInfoView is what a referral sees about the user who invited them.
type ReferralInfoView struct {
	RealName string
	URL      string
	Status   ReferralInfoStatus
}

type ReferralService struct {
	repo     ReferralRepository
	events   EventSink
	maxDepth int
}

func NewReferralService(repo ReferralRepository, events EventSink) *ReferralService {
	return &ReferralService{
		repo:     repo,
		events:   sinkOrDefault(events),
		maxDepth: DefaultMaxReferralDepth,
	}
}

// WithMaxDepth bounds how many invitation levels a traversal follows.
func (s *ReferralService) WithMaxDepth(depth int) *ReferralService {
	if depth > 0 {
		s.maxDepth = depth
	}
	return s
}

// ResolveReferrals returns every referral of rootID that receives rootID's content plan.
// A referral who customized their welcome message is included, but the traversal
// does not continue through them. The order of the result carries no meaning.
func (s *ReferralService) ResolveReferrals(ctx context.Context, rootID string) ([]string, error) {
	op := begin(s.events, "referral.resolve", map[string]string{"root_id": rootID})

	ids, err := s.traverse(ctx, rootID, func(model.Referral) bool { return true })
	if err != nil {
		op.end(ctx, model.OutcomeFailed, err)
		return nil, err
	}

	op.keys["count"] = strconv.Itoa(len(ids))
	op.end(ctx, model.OutcomeOK, nil)
	return ids, nil
}

// ResolvePendingMessageUpdate returns the referrals of rootID that still show an
// inherited welcome message and must follow rootID's referral info.
func (s *ReferralService) ResolvePendingMessageUpdate(ctx context.Context, rootID string) ([]string, error) {
	op := begin(s.events, "referral.resolve_pending", map[string]string{"root_id": rootID})

	ids, err := s.traverse(ctx, rootID, func(ref model.Referral) bool { return !ref.ReferralMessageChanged })
	if err != nil {
		op.end(ctx, model.OutcomeFailed, err)
		return nil, err
	}

	op.keys["count"] = strconv.Itoa(len(ids))
	op.end(ctx, model.OutcomeOK, nil)
	return ids, nil
}

func (s *ReferralService) traverse(ctx context.Context, rootID string, keep func(model.Referral) bool) ([]string, error) {
	type frame struct {
		id    string
		depth int
	}

	visited := map[string]struct{}{rootID: {}}
	result := []string{}
	stack := []frame{{id: rootID}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		refs, err := s.repo.GetDirectReferrals(ctx, top.id)
		if err != nil {
			return nil, fmt.Errorf("failed to get referrals of %s: %w", top.id, err)
		}

		for _, ref := range refs {
			if !keep(ref) {
				continue
			}

			if _, seen := visited[ref.TelegramID]; seen {
				logger.Logger().Warn("referral reached twice, invitation graph is not a forest",
					zap.String("root_id", rootID),
					zap.String("referrer_id", top.id),
					zap.String("referral_id", ref.TelegramID))
				continue
			}
			visited[ref.TelegramID] = struct{}{}
			result = append(result, ref.TelegramID)

			if ref.ReferralMessageChanged {
				continue
			}

			if top.depth+1 >= s.maxDepth {
				logger.Logger().Warn("referral traversal depth limit reached",
					zap.String("root_id", rootID),
					zap.String("referral_id", ref.TelegramID),
					zap.Int("max_depth", s.maxDepth))
				continue
			}

			stack = append(stack, frame{id: ref.TelegramID, depth: top.depth + 1})
		}
	}

	return result, nil
}

// ReferralURLs returns the profile urls of everyone ResolveReferrals reaches.
func (s *ReferralService) ReferralURLs(ctx context.Context, rootID string) ([]string, error) {
	ids, err := s.ResolveReferrals(ctx, rootID)
	if err != nil {
		return nil, err
	}

	urls, err := s.repo.GetUserURLs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral urls: %w", err)
	}

	return urls, nil
}

func (s *ReferralService) GetReferralInfo(ctx context.Context, telegramID string) ReferralInfoView {
	op := begin(s.events, "referral.info", map[string]string{"telegram_id": telegramID})

	info, err := s.repo.GetReferralInfo(ctx, telegramID)
	switch {
	case err == nil:
		op.end(ctx, model.OutcomeOK, nil)
		return ReferralInfoView{
			RealName: info.RealName,
			URL:      info.UserURLForMessage,
			Status:   ReferralInfoFound,
		}
	case errors.Is(err, repository.ErrNotFound):
		op.end(ctx, model.OutcomeOK, nil)
		return ReferralInfoView{
			RealName: UnknownReferrerName,
			URL:      UnknownReferrerURL,
			Status:   ReferralInfoMissing,
		}
	case errors.Is(err, repository.ErrUserNotFound):
		op.end(ctx, model.OutcomeOK, nil)
		return ReferralInfoView{
			RealName: NoReferrer,
			URL:      NoReferrer,
			Status:   ReferralInfoUserMissing,
		}
	default:
		op.end(ctx, model.OutcomeFailed, err)
		return ReferralInfoView{Status: ReferralInfoError}
	}
}

// UpdateWelcomeMessage marks telegramID as having a custom welcome message and
// propagates info to them and to every referral still showing an inherited message.
func (s *ReferralService) UpdateWelcomeMessage(ctx context.Context, telegramID string, info model.ReferralInfo) error {
	op := begin(s.events, "referral.update_welcome_message", map[string]string{"telegram_id": telegramID})

	err := s.updateWelcomeMessage(ctx, telegramID, info)
	if err != nil {
		op.end(ctx, model.OutcomeFailed, err)
		return err
	}

	op.end(ctx, model.OutcomeOK, nil)
	return nil
}

func (s *ReferralService) updateWelcomeMessage(ctx context.Context, telegramID string, info model.ReferralInfo) error {
	if err := s.repo.SetReferralMessageChanged(ctx, telegramID, true); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to mark message changed: %w", err)
	}

	pending, err := s.ResolvePendingMessageUpdate(ctx, telegramID)
	if err != nil {
		return err
	}

	ids := append([]string{telegramID}, pending...)
	if err := s.repo.UpsertReferralInfo(ctx, ids, info); err != nil {
		return fmt.Errorf("failed to save referral info: %w", err)
	}

	return nil
}
