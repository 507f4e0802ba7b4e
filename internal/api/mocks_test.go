package api

import (
	"context"
	"io"
	"time"

	"UD_referral_bot/internal/model"
	"UD_referral_bot/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) RegisterUser(ctx context.Context, user *model.User, referrerID *string) error {
	args := m.Called(ctx, user, referrerID)
	return args.Error(0)
}

func (m *MockUserService) GetUserByTelegramID(ctx context.Context, telegramID string) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) UserExists(ctx context.Context, telegramID string) (bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserService) GetReferrerID(ctx context.Context, telegramID string) (*string, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

type MockReferralService struct {
	mock.Mock
}

func (m *MockReferralService) ResolveReferrals(ctx context.Context, rootID string) ([]string, error) {
	args := m.Called(ctx, rootID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockReferralService) ResolvePendingMessageUpdate(ctx context.Context, rootID string) ([]string, error) {
	args := m.Called(ctx, rootID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockReferralService) ReferralURLs(ctx context.Context, rootID string) ([]string, error) {
	args := m.Called(ctx, rootID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockReferralService) GetReferralInfo(ctx context.Context, telegramID string) service.ReferralInfoView {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(service.ReferralInfoView)
}

func (m *MockReferralService) UpdateWelcomeMessage(ctx context.Context, telegramID string, info model.ReferralInfo) error {
	args := m.Called(ctx, telegramID, info)
	return args.Error(0)
}

type MockContentPlanService struct {
	mock.Mock
}

func (m *MockContentPlanService) Schedule(
	ctx context.Context,
	ownerID, message string,
	publishDate time.Time,
	mediaPath *string,
) service.ScheduleStatus {
	args := m.Called(ctx, ownerID, message, publishDate, mediaPath)
	return args.Get(0).(service.ScheduleStatus)
}

func (m *MockContentPlanService) Cancel(ctx context.Context, ownerID string, publishDate time.Time) service.CancelStatus {
	args := m.Called(ctx, ownerID, publishDate)
	return args.Get(0).(service.CancelStatus)
}

func (m *MockContentPlanService) ListForOwner(ctx context.Context, ownerID string) ([]model.ContentPlanEntry, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ContentPlanEntry), args.Error(1)
}

func (m *MockContentPlanService) DueToday(ctx context.Context) (map[string]model.ContentPlanMessage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]model.ContentPlanMessage), args.Error(1)
}

func (m *MockContentPlanService) SweepExpired(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) Save(originalName string, r io.Reader) (string, error) {
	args := m.Called(originalName, r)
	return args.String(0), args.Error(1)
}

func (m *MockMediaStore) Delete(path string) error {
	args := m.Called(path)
	return args.Error(0)
}
