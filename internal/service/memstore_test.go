package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"UD_referral_bot/internal/model"
	"UD_referral_bot/internal/repository"
)

type planKey struct {
	owner string
	date  string
}

// memStore keeps users, invitations and content plan entries in memory with the
// same error contract as the Postgres repository.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*model.User
	invitations []model.Invitation
	info        map[string]model.ReferralInfo
	plans       map[planKey]model.ContentPlanEntry
	errs        map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*model.User),
		info:  make(map[string]model.ReferralInfo),
		plans: make(map[planKey]model.ContentPlanEntry),
		errs:  make(map[string]error),
	}
}

func (s *memStore) addUser(id string, messageChanged bool) *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &model.User{TelegramID: id, ReferralMessageChanged: messageChanged}
	return s
}

// invite records referrer -> referral without checking the forest invariant so tests
// can build broken graphs.
func (s *memStore) invite(referrer string, referrals ...string) *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range referrals {
		s.invitations = append(s.invitations, model.Invitation{ReferrerID: referrer, ReferralID: r})
	}
	return s
}

func (s *memStore) fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[method] = err
}

func (s *memStore) CreateUser(_ context.Context, user *model.User, referrerID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.TelegramID]; ok {
		return nil
	}
	u := *user
	s.users[u.TelegramID] = &u
	if referrerID != nil {
		s.invitations = append(s.invitations, model.Invitation{ReferrerID: *referrerID, ReferralID: u.TelegramID})
	}
	return nil
}

func (s *memStore) UserExists(_ context.Context, telegramID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[telegramID]
	return ok, nil
}

func (s *memStore) GetUserByTelegramID(_ context.Context, telegramID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (s *memStore) GetReferrerID(_ context.Context, telegramID string) (*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invitations {
		if inv.ReferralID == telegramID {
			referrer := inv.ReferrerID
			return &referrer, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetDirectReferrals(_ context.Context, referrerID string) ([]model.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["GetDirectReferrals"]; err != nil {
		return nil, err
	}
	var out []model.Referral
	for _, inv := range s.invitations {
		if inv.ReferrerID != referrerID {
			continue
		}
		u, ok := s.users[inv.ReferralID]
		if !ok {
			continue
		}
		out = append(out, model.Referral{TelegramID: u.TelegramID, ReferralMessageChanged: u.ReferralMessageChanged})
	}
	return out, nil
}

func (s *memStore) GetUserURLs(_ context.Context, telegramIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var urls []string
	for _, id := range telegramIDs {
		if u, ok := s.users[id]; ok && u.UserURL != "" {
			urls = append(urls, u.UserURL)
		}
	}
	return urls, nil
}

func (s *memStore) SetReferralMessageChanged(_ context.Context, telegramID string, changed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[telegramID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.ReferralMessageChanged = changed
	return nil
}

func (s *memStore) UpsertReferralInfo(_ context.Context, telegramIDs []string, info model.ReferralInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range telegramIDs {
		if _, ok := s.users[id]; ok {
			s.info[id] = info
		}
	}
	return nil
}

func (s *memStore) GetReferralInfo(_ context.Context, telegramID string) (*model.ReferralInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[telegramID]; !ok {
		return nil, repository.ErrUserNotFound
	}
	info, ok := s.info[telegramID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &info, nil
}

func (s *memStore) CreateContentPlanEntry(_ context.Context, entry *model.ContentPlanEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[entry.OwnerID]; !ok {
		return repository.ErrUserNotFound
	}
	key := planKey{owner: entry.OwnerID, date: entry.PublishDate.Format(time.DateOnly)}
	if _, ok := s.plans[key]; ok {
		return repository.ErrAlreadyExists
	}
	s.plans[key] = *entry
	return nil
}

func (s *memStore) DeleteContentPlanEntry(_ context.Context, ownerID string, publishDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := planKey{owner: ownerID, date: publishDate.Format(time.DateOnly)}
	if _, ok := s.plans[key]; !ok {
		return repository.ErrNotFound
	}
	delete(s.plans, key)
	return nil
}

func (s *memStore) sortedPlans(keep func(model.ContentPlanEntry) bool) []model.ContentPlanEntry {
	out := []model.ContentPlanEntry{}
	for _, e := range s.plans {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishDate.Equal(out[j].PublishDate) {
			return out[i].PublishDate.Before(out[j].PublishDate)
		}
		return out[i].OwnerID < out[j].OwnerID
	})
	return out
}

func (s *memStore) GetContentPlanEntries(_ context.Context, ownerID string) ([]model.ContentPlanEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedPlans(func(e model.ContentPlanEntry) bool { return e.OwnerID == ownerID }), nil
}

func (s *memStore) GetContentPlanByDate(_ context.Context, publishDate time.Time) ([]model.ContentPlanEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["GetContentPlanByDate"]; err != nil {
		return nil, err
	}
	return s.sortedPlans(func(e model.ContentPlanEntry) bool { return e.PublishDate.Equal(publishDate) }), nil
}

func (s *memStore) DeleteContentPlanBefore(_ context.Context, day time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["DeleteContentPlanBefore"]; err != nil {
		return nil, err
	}
	expired := s.sortedPlans(func(e model.ContentPlanEntry) bool { return e.PublishDate.Before(day) })
	paths := []string{}
	for _, e := range expired {
		delete(s.plans, planKey{owner: e.OwnerID, date: e.PublishDate.Format(time.DateOnly)})
		if e.MediaPath != nil {
			paths = append(paths, *e.MediaPath)
		}
	}
	return paths, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recordingSink) Emit(_ context.Context, event model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) operations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, len(r.events))
	for i, e := range r.events {
		ops[i] = e.Operation
	}
	return ops
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string {
	return &s
}
