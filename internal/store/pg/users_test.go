package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"userdesk.org/internal/auth"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "full_name", "email", "password_hash", "role", "is_active",
		"created_at", "updated_at", "last_login",
	})
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into users").
		WithArgs("u1", "Jane Doe", "jane@example.com", "hash", "user", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	now := time.Now().UTC()
	err := store.Create(context.Background(), &auth.User{
		ID: "u1", FullName: "Jane Doe", Email: "jane@example.com", PasswordHash: "hash",
		Role: auth.RoleUser, Active: true, CreatedAt: now, UpdatedAt: now,
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select .* from users where id").
		WithArgs("missing").
		WillReturnRows(userRows())

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByEmailScansLastLogin(t *testing.T) {
	store, mock := newMockStore(t)

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	lastLogin := created.Add(time.Hour)
	mock.ExpectQuery("select .* from users where email").
		WithArgs("jane@example.com").
		WillReturnRows(userRows().AddRow(
			"u1", "Jane Doe", "jane@example.com", "hash", "admin", true, created, created, lastLogin,
		))

	u, err := store.GetByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.Role != auth.RoleAdmin {
		t.Fatalf("unexpected role: %s", u.Role)
	}
	if u.LastLoginAt == nil || !u.LastLoginAt.Equal(lastLogin) {
		t.Fatalf("last login not scanned: %v", u.LastLoginAt)
	}
}

func TestListUsersFiltersAndTotal(t *testing.T) {
	store, mock := newMockStore(t)

	active := true
	mock.ExpectQuery("select count").
		WithArgs("%jane%", "admin", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select .* from users .*order by created_at desc").
		WithArgs("%jane%", "admin", true, 5, 5).
		WillReturnRows(userRows().AddRow(
			"u1", "Jane Doe", "jane@example.com", "hash", "admin", true, created, created, nil,
		))

	users, total, err := store.List(context.Background(),
		auth.ListFilter{Search: "jane", Role: auth.RoleAdmin, Active: &active},
		auth.Page{Number: 2, Size: 5})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 7 {
		t.Fatalf("expected total 7, got %d", total)
	}
	if len(users) != 1 || users[0].ID != "u1" {
		t.Fatalf("unexpected users: %+v", users)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update users").
		WithArgs("Jane Doe", "jane@example.com", "hash", "user", true, sqlmock.AnyArg(), nil, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), &auth.User{
		ID: "missing", FullName: "Jane Doe", Email: "jane@example.com", PasswordHash: "hash",
		Role: auth.RoleUser, Active: true,
	})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from users").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Delete(context.Background(), "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	mock.ExpectExec("delete from users").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Delete(context.Background(), "missing"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserStats(t *testing.T) {
	store, mock := newMockStore(t)

	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select count").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "admins", "recent"}).AddRow(10, 8, 2, 3))

	stats, err := store.Stats(context.Background(), since)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := auth.Stats{TotalUsers: 10, ActiveUsers: 8, AdminUsers: 2, RecentUsers: 3}
	if stats != want {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
