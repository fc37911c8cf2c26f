package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// memStore is an in-memory Store used by service tests.
type memStore struct {
	users     map[string]*User
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*User)}
}

func (m *memStore) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	clone := *u
	m.users[u.ID] = &clone
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) List(_ context.Context, filter ListFilter, page Page) ([]*User, int, error) {
	var matched []*User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		if filter.Search != "" && !strings.Contains(u.FullName, filter.Search) && !strings.Contains(u.Email, filter.Search) {
			continue
		}
		clone := *u
		matched = append(matched, &clone)
	}
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

func (m *memStore) Update(_ context.Context, u *User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.users {
		if id != u.ID && existing.Email == u.Email {
			return ErrConflict
		}
	}
	clone := *u
	m.users[u.ID] = &clone
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) Stats(_ context.Context, recentSince time.Time) (Stats, error) {
	var st Stats
	for _, u := range m.users {
		st.TotalUsers++
		if u.Active {
			st.ActiveUsers++
		}
		if u.Role == RoleAdmin {
			st.AdminUsers++
		}
		if u.CreatedAt.After(recentSince) {
			st.RecentUsers++
		}
	}
	return st, nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	tokens, err := NewTokenService(&TokenConfig{Secret: "test-secret", TTL: time.Hour, Issuer: "userdesk-test"})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	svc, err := NewService(store, tokens)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestRegisterDefaultsToUserRole(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe",
		Email:    "Jane@Example.COM",
		Password: "Passw0rd",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if session.User.Role != RoleUser {
		t.Fatalf("expected default role user, got %s", session.User.Role)
	}
	if session.User.Email != "jane@example.com" {
		t.Fatalf("email not normalized: %s", session.User.Email)
	}
	if session.Token == "" {
		t.Fatal("expected session token")
	}
	if session.User.PasswordHash == "Passw0rd" {
		t.Fatal("password stored in plaintext")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	in := RegisterInput{FullName: "Jane Doe", Email: "jane@example.com", Password: "Passw0rd"}
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []RegisterInput{
		{FullName: "", Email: "a@b.com", Password: "Passw0rd"},
		{FullName: "Jane 42", Email: "a@b.com", Password: "Passw0rd"},
		{FullName: strings.Repeat("a", 51), Email: "a@b.com", Password: "Passw0rd"},
		{FullName: "Jane Doe", Email: "not-an-email", Password: "Passw0rd"},
		{FullName: "Jane Doe", Email: "a@b.com", Password: "short"},
		{FullName: "Jane Doe", Email: "a@b.com", Password: "alllowercase1"},
		{FullName: "Jane Doe", Email: "a@b.com", Password: "NoDigitsHere"},
		{FullName: "Jane Doe", Email: "a@b.com", Password: "Passw0rd", Role: "superuser"},
	}
	for i, in := range cases {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestLoginSuccessStampsLastLogin(t *testing.T) {
	svc, store := newTestService(t)

	if _, err := svc.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe", Email: "jane@example.com", Password: "Passw0rd",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	session, err := svc.Login(context.Background(), "JANE@example.com", "Passw0rd")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.User.LastLoginAt == nil {
		t.Fatal("expected last login timestamp")
	}
	stored, err := store.GetByID(context.Background(), session.User.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.LastLoginAt == nil {
		t.Fatal("last login not persisted")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe", Email: "jane@example.com", Password: "Passw0rd",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(context.Background(), "jane@example.com", "WrongPass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "Passw0rd"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email should fail the same way, got %v", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, store := newTestService(t)

	session, err := svc.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe", Email: "jane@example.com", Password: "Passw0rd",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	inactive := false
	if _, err := svc.UpdateUser(context.Background(), session.User.ID, UserUpdate{Active: &inactive}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	if _, err := svc.Login(context.Background(), "jane@example.com", "Passw0rd"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), session.User.ID); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("Resolve should reject disabled accounts, got %v", err)
	}
	_ = store
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe", Email: "jane@example.com", Password: "Passw0rd",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	id := session.User.ID

	if err := svc.ChangePassword(context.Background(), id, "WrongPass1", "NewPassw0rd"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), id, "Passw0rd", "weak"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for weak password, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), id, "Passw0rd", "NewPassw0rd"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Login(context.Background(), "jane@example.com", "NewPassw0rd"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe", Email: "jane@example.com", Password: "Passw0rd",
	}); err != nil {
		t.Fatalf("Register jane: %v", err)
	}
	other, err := svc.Register(context.Background(), RegisterInput{
		FullName: "John Doe", Email: "john@example.com", Password: "Passw0rd",
	})
	if err != nil {
		t.Fatalf("Register john: %v", err)
	}

	taken := "jane@example.com"
	if _, err := svc.UpdateProfile(context.Background(), other.User.ID, ProfileUpdate{Email: &taken}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUserStats(t *testing.T) {
	svc, _ := newTestService(t)

	admin := RoleAdmin
	if _, err := svc.CreateUser(context.Background(), CreateUserInput{
		FullName: "Root Admin", Email: "admin@example.com", Password: "Passw0rd", Role: admin,
	}); err != nil {
		t.Fatalf("CreateUser admin: %v", err)
	}
	session, err := svc.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe", Email: "jane@example.com", Password: "Passw0rd",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	inactive := false
	if _, err := svc.UpdateUser(context.Background(), session.User.ID, UserUpdate{Active: &inactive}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	stats, err := svc.UserStats(context.Background())
	if err != nil {
		t.Fatalf("UserStats: %v", err)
	}
	if stats.TotalUsers != 2 || stats.ActiveUsers != 1 || stats.AdminUsers != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.RecentUsers != 2 {
		t.Fatalf("expected both signups inside the recent window, got %d", stats.RecentUsers)
	}
}

func TestListUsersPagination(t *testing.T) {
	svc, _ := newTestService(t)

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	for _, email := range emails {
		if _, err := svc.CreateUser(context.Background(), CreateUserInput{
			FullName: "Test User", Email: email, Password: "Passw0rd",
		}); err != nil {
			t.Fatalf("CreateUser %s: %v", email, err)
		}
	}

	users, total, err := svc.ListUsers(context.Background(), ListFilter{}, Page{Number: 1, Size: 2})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(users) > 2 {
		t.Fatalf("page overflow: got %d entries", len(users))
	}

	if _, _, err := svc.ListUsers(context.Background(), ListFilter{Role: "superuser"}, Page{Number: 1, Size: 2}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad role filter, got %v", err)
	}
}
