package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"userdesk.org/internal/ids"
)

const (
	maxNameLength     = 50
	minPasswordLength = 6

	// recentWindow is the lookback for the "recent signups" stat.
	recentWindow = 7 * 24 * time.Hour
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
)

// Service implements account operations on top of a Store. Validation lives
// here so every transport gets the same rules.
type Service struct {
	store  Store
	tokens *TokenService
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source (useful for tests).
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("auth: store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("auth: token service is required")
	}
	s := &Service{store: store, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Tokens exposes the token service so the HTTP layer can verify bearer
// tokens before resolving the account.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Session is the result of a successful registration or login.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// RegisterInput carries self-service registration fields. Role is optional
// and defaults to user.
type RegisterInput struct {
	FullName string
	Email    string
	Password string
	Role     Role
}

// Register creates an account and opens a session for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name, err := normalizeName(in.FullName, true)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email, true)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be either user or admin", ErrInvalidInput)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &User{
		ID:           ids.New(),
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords fail identically so the response does not leak which one it was.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Resolve maps a verified token subject back to a live account. Used by the
// authentication middleware after signature and expiry checks pass.
func (s *Service) Resolve(ctx context.Context, userID string) (*User, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// ProfileUpdate carries optional self-service profile changes.
type ProfileUpdate struct {
	FullName *string
	Email    *string
}

// UpdateProfile applies a partial profile update for the account itself.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*User, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.FullName != nil {
		name, err := normalizeName(*upd.FullName, true)
		if err != nil {
			return nil, err
		}
		user.FullName = name
	}
	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email, true)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword swaps the stored hash after verifying the current password.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(user.PasswordHash, current); err != nil {
		return fmt.Errorf("%w: current password is incorrect", ErrInvalidCredentials)
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()
	return s.store.Update(ctx, user)
}

// CreateUserInput carries admin-initiated account creation fields.
type CreateUserInput struct {
	FullName string
	Email    string
	Password string
	Role     Role
}

// CreateUser creates an account on behalf of an administrator. No session is
// opened.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	name, err := normalizeName(in.FullName, true)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email, true)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be either user or admin", ErrInvalidInput)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user := &User{
		ID:           ids.New(),
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UserUpdate carries optional admin edits.
type UserUpdate struct {
	FullName *string
	Email    *string
	Role     *Role
	Active   *bool
}

// UpdateUser applies a partial admin edit and returns the updated record.
func (s *Service) UpdateUser(ctx context.Context, userID string, upd UserUpdate) (*User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.FullName != nil {
		name, err := normalizeName(*upd.FullName, true)
		if err != nil {
			return nil, err
		}
		user.FullName = name
	}
	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email, true)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return nil, fmt.Errorf("%w: role must be either user or admin", ErrInvalidInput)
		}
		user.Role = *upd.Role
	}
	if upd.Active != nil {
		user.Active = *upd.Active
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser fetches a single account by id.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.GetByID(ctx, userID)
}

// DeleteUser removes an account permanently.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Delete(ctx, userID)
}

// ListUsers returns a page of accounts plus the total match count.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter, page Page) ([]*User, int, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, 0, fmt.Errorf("%w: role must be either user or admin", ErrInvalidInput)
	}
	return s.store.List(ctx, filter, page)
}

// UserStats aggregates directory counts for the dashboard.
func (s *Service) UserStats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx, s.now().UTC().Add(-recentWindow))
}

func normalizeName(name string, required bool) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if required {
			return "", fmt.Errorf("%w: full name is required", ErrInvalidInput)
		}
		return "", nil
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("%w: full name cannot exceed %d characters", ErrInvalidInput, maxNameLength)
	}
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("%w: full name can only contain letters and spaces", ErrInvalidInput)
	}
	return name, nil
}

func normalizeEmail(email string, required bool) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		if required {
			return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
		}
		return "", nil
	}
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return email, nil
}

// validatePassword enforces the registration policy: minimum length plus at
// least one uppercase letter, one lowercase letter and one digit.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidInput, minPasswordLength)
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return fmt.Errorf("%w: password must contain at least one uppercase letter, one lowercase letter, and one number", ErrInvalidInput)
	}
	return nil
}
