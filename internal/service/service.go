package service

import (
	"context"
	"errors"
	"time"

	"UD_referral_bot/internal/model"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidUser  = errors.New("invalid user")
)

type Service struct {
	*UserService
	*ReferralService
	*ContentPlanService
	*CohortService
}

func NewService(
	userService *UserService,
	referralService *ReferralService,
	contentPlanService *ContentPlanService,
	cohortService *CohortService,
) *Service {
	return &Service{
		UserService:        userService,
		ReferralService:    referralService,
		ContentPlanService: contentPlanService,
		CohortService:      cohortService,
	}
}

type UserServiceI interface {
	RegisterUser(ctx context.Context, user *model.User, referrerID *string) error
	GetUserByTelegramID(ctx context.Context, telegramID string) (*model.User, error)
	UserExists(ctx context.Context, telegramID string) (bool, error)
	GetReferrerID(ctx context.Context, telegramID string) (*string, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User, referrerID *string) error
	UserExists(ctx context.Context, telegramID string) (bool, error)
	GetUserByTelegramID(ctx context.Context, telegramID string) (*model.User, error)
	GetReferrerID(ctx context.Context, telegramID string) (*string, error)
}

type ReferralServiceI interface {
	ResolveReferrals(ctx context.Context, rootID string) ([]string, error)
	ResolvePendingMessageUpdate(ctx context.Context, rootID string) ([]string, error)
	ReferralURLs(ctx context.Context, rootID string) ([]string, error)
	GetReferralInfo(ctx context.Context, telegramID string) ReferralInfoView
	UpdateWelcomeMessage(ctx context.Context, telegramID string, info model.ReferralInfo) error
}

type ReferralRepository interface {
	GetDirectReferrals(ctx context.Context, referrerID string) ([]model.Referral, error)
	GetUserURLs(ctx context.Context, telegramIDs []string) ([]string, error)
	SetReferralMessageChanged(ctx context.Context, telegramID string, changed bool) error
	UpsertReferralInfo(ctx context.Context, telegramIDs []string, info model.ReferralInfo) error
	GetReferralInfo(ctx context.Context, telegramID string) (*model.ReferralInfo, error)
}

type ContentPlanServiceI interface {
	Schedule(ctx context.Context, ownerID, message string, publishDate time.Time, mediaPath *string) ScheduleStatus
	Cancel(ctx context.Context, ownerID string, publishDate time.Time) CancelStatus
	ListForOwner(ctx context.Context, ownerID string) ([]model.ContentPlanEntry, error)
	DueToday(ctx context.Context) (map[string]model.ContentPlanMessage, error)
	SweepExpired(ctx context.Context) ([]string, error)
}

type ContentPlanRepository interface {
	CreateContentPlanEntry(ctx context.Context, entry *model.ContentPlanEntry) error
	DeleteContentPlanEntry(ctx context.Context, ownerID string, publishDate time.Time) error
	GetContentPlanEntries(ctx context.Context, ownerID string) ([]model.ContentPlanEntry, error)
	GetContentPlanByDate(ctx context.Context, publishDate time.Time) ([]model.ContentPlanEntry, error)
	DeleteContentPlanBefore(ctx context.Context, day time.Time) ([]string, error)
}

type CohortRepository interface {
	GetUsersRegisteredBetween(ctx context.Context, from, to time.Time) ([]model.Registration, error)
}

// ReferralResolver expands a user into the recipients of their content plan.
type ReferralResolver interface {
	ResolveReferrals(ctx context.Context, rootID string) ([]string, error)
}

// Notifier delivers messages to a chat. Implementations return errors wrapping
// notifier.ErrRecipientUnreachable when the recipient can no longer be reached.
type Notifier interface {
	SendText(ctx context.Context, recipientID, text string) error
	SendPhoto(ctx context.Context, recipientID, path, caption string) error
	SendVideo(ctx context.Context, recipientID, path, caption string) error
	SendDocument(ctx context.Context, recipientID, path, caption string) error
}

// FileStorage holds uploaded media. Delete succeeds when the file is already gone.
type FileStorage interface {
	Delete(path string) error
	Exists(path string) (bool, error)
}

type EventSink interface {
	Emit(ctx context.Context, event model.Event)
}
