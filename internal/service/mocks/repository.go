package mocks

import (
	"context"
	"time"

	"UD_referral_bot/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User, referrerID *string) error {
	args := m.Called(ctx, user, referrerID)
	return args.Error(0)
}

func (m *MockUserRepository) UserExists(ctx context.Context, telegramID string) (bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) GetUserByTelegramID(ctx context.Context, telegramID string) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetReferrerID(ctx context.Context, telegramID string) (*string, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) GetDirectReferrals(ctx context.Context, referrerID string) ([]model.Referral, error) {
	args := m.Called(ctx, referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Referral), args.Error(1)
}

func (m *MockReferralRepository) GetUserURLs(ctx context.Context, telegramIDs []string) ([]string, error) {
	args := m.Called(ctx, telegramIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockReferralRepository) SetReferralMessageChanged(ctx context.Context, telegramID string, changed bool) error {
	args := m.Called(ctx, telegramID, changed)
	return args.Error(0)
}

func (m *MockReferralRepository) UpsertReferralInfo(ctx context.Context, telegramIDs []string, info model.ReferralInfo) error {
	args := m.Called(ctx, telegramIDs, info)
	return args.Error(0)
}

func (m *MockReferralRepository) GetReferralInfo(ctx context.Context, telegramID string) (*model.ReferralInfo, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReferralInfo), args.Error(1)
}

type MockContentPlanRepository struct {
	mock.Mock
}

func (m *MockContentPlanRepository) CreateContentPlanEntry(ctx context.Context, entry *model.ContentPlanEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockContentPlanRepository) DeleteContentPlanEntry(ctx context.Context, ownerID string, publishDate time.Time) error {
	args := m.Called(ctx, ownerID, publishDate)
	return args.Error(0)
}

func (m *MockContentPlanRepository) GetContentPlanEntries(ctx context.Context, ownerID string) ([]model.ContentPlanEntry, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ContentPlanEntry), args.Error(1)
}

func (m *MockContentPlanRepository) GetContentPlanByDate(ctx context.Context, publishDate time.Time) ([]model.ContentPlanEntry, error) {
	args := m.Called(ctx, publishDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ContentPlanEntry), args.Error(1)
}

func (m *MockContentPlanRepository) DeleteContentPlanBefore(ctx context.Context, day time.Time) ([]string, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockCohortRepository struct {
	mock.Mock
}

func (m *MockCohortRepository) GetUsersRegisteredBetween(ctx context.Context, from, to time.Time) ([]model.Registration, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Registration), args.Error(1)
}
