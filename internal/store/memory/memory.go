// Package memory holds in-memory implementations of the user and activity
// stores. They back the test suite and the development mode of cmd/api when
// no database DSN is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"userdesk.org/internal/activity"
	"userdesk.org/internal/auth"
)

// Store keeps users and activity entries in process memory. Safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*auth.User
	entries []activity.Entry
}

var (
	_ auth.Store     = (*Store)(nil)
	_ activity.Store = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{users: make(map[string]*auth.User)}
}

func cloneUser(u *auth.User) *auth.User {
	cp := *u
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		cp.LastLoginAt = &t
	}
	return &cp
}

func (s *Store) Create(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return auth.ErrConflict
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return auth.ErrConflict
		}
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *Store) List(_ context.Context, filter auth.ListFilter, page auth.Page) ([]*auth.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []*auth.User
	for _, u := range s.users {
		if search != "" &&
			!strings.Contains(strings.ToLower(u.FullName), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		matched = append(matched, cloneUser(u))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	offset := page.Offset()
	if offset >= total {
		return nil, total, nil
	}
	end := offset + page.Size
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *Store) Update(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return auth.ErrNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return auth.ErrConflict
		}
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) Stats(_ context.Context, recentSince time.Time) (auth.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st auth.Stats
	for _, u := range s.users {
		st.TotalUsers++
		if u.Active {
			st.ActiveUsers++
		}
		if u.Role == auth.RoleAdmin {
			st.AdminUsers++
		}
		if !u.CreatedAt.Before(recentSince) {
			st.RecentUsers++
		}
	}
	return st, nil
}

func (s *Store) Insert(_ context.Context, e *activity.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	if u, ok := s.users[e.UserID]; ok {
		cp.UserName = u.FullName
		cp.UserEmail = u.Email
	}
	s.entries = append(s.entries, cp)
	return nil
}

func (s *Store) Find(_ context.Context, filter activity.Filter, page activity.Page) ([]activity.Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []activity.Entry
	for _, e := range s.entries {
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Start != nil && e.Timestamp.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && e.Timestamp.After(*filter.End) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	offset := page.Offset()
	if offset >= total {
		return nil, total, nil
	}
	end := offset + page.Size
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *Store) Aggregate(_ context.Context, since time.Time) (int, int, []activity.ActionCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[activity.Action]int)
	users := make(map[string]struct{})
	total := 0
	for _, e := range s.entries {
		if e.Timestamp.Before(since) {
			continue
		}
		total++
		counts[e.Action]++
		users[e.UserID] = struct{}{}
	}
	var breakdown []activity.ActionCount
	for action, count := range counts {
		breakdown = append(breakdown, activity.ActionCount{Action: action, Count: count})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Count != breakdown[j].Count {
			return breakdown[i].Count > breakdown[j].Count
		}
		return breakdown[i].Action < breakdown[j].Action
	})
	return total, len(users), breakdown, nil
}
