package service

import (
	"context"
	"errors"
	"fmt"

	"UD_referral_bot/internal/model"
	"UD_referral_bot/internal/repository"
)

type UserService struct {
	repo   UserRepository
	events EventSink
}

func NewUserService(repo UserRepository, events EventSink) *UserService {
	return &UserService{
		repo:   repo,
		events: sinkOrDefault(events),
	}
}

// RegisterUser stores user on first contact. When referrerID is set the invitation
// edge is written in the same transaction.
func (s *UserService) RegisterUser(ctx context.Context, user *model.User, referrerID *string) error {
	keys := map[string]string{"telegram_id": user.TelegramID}
	if referrerID != nil {
		keys["referrer_id"] = *referrerID
	}
	op := begin(s.events, "user.register", keys)

	if user.TelegramID == "" || (referrerID != nil && *referrerID == user.TelegramID) {
		op.end(ctx, model.OutcomeRejected, ErrInvalidUser)
		return ErrInvalidUser
	}

	if user.ReferralURL == "" {
		user.ReferralURL = user.TelegramID
	}

	err := s.repo.CreateUser(ctx, user, referrerID)
	if err != nil {
		err = fmt.Errorf("failed to register user: %w", err)
		op.end(ctx, model.OutcomeFailed, err)
		return err
	}

	op.end(ctx, model.OutcomeOK, nil)
	return nil
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID string) (*model.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}
	return user, nil
}

func (s *UserService) UserExists(ctx context.Context, telegramID string) (bool, error) {
	exists, err := s.repo.UserExists(ctx, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

func (s *UserService) GetReferrerID(ctx context.Context, telegramID string) (*string, error) {
	referrer, err := s.repo.GetReferrerID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrer: %w", err)
	}
	return referrer, nil
}
