package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"userdesk.org/internal/activity"
	"userdesk.org/internal/auth"
)

func seedUser(t *testing.T, s *Store, id, email string, role auth.Role, created time.Time) {
	t.Helper()
	err := s.Create(context.Background(), &auth.User{
		ID: id, FullName: "User " + id, Email: email, PasswordHash: "hash",
		Role: role, Active: true, CreatedAt: created, UpdatedAt: created,
	})
	if err != nil {
		t.Fatalf("Create %s: %v", id, err)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	seedUser(t, s, "u1", "jane@example.com", auth.RoleUser, now)

	err := s.Create(context.Background(), &auth.User{
		ID: "u2", FullName: "Other", Email: "jane@example.com", PasswordHash: "hash",
		Role: auth.RoleUser, Active: true, CreatedAt: now, UpdatedAt: now,
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestListOrdersAndFilters(t *testing.T) {
	s := New()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedUser(t, s, "u1", "jane@example.com", auth.RoleAdmin, base)
	seedUser(t, s, "u2", "bob@example.com", auth.RoleUser, base.Add(time.Hour))
	seedUser(t, s, "u3", "amy@example.com", auth.RoleUser, base.Add(2*time.Hour))

	users, total, err := s.List(context.Background(), auth.ListFilter{}, auth.Page{Number: 1, Size: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(users) != 3 {
		t.Fatalf("expected 3 users, got %d (total %d)", len(users), total)
	}
	// Newest first.
	if users[0].ID != "u3" || users[2].ID != "u1" {
		t.Fatalf("unexpected order: %s %s %s", users[0].ID, users[1].ID, users[2].ID)
	}

	users, total, err = s.List(context.Background(), auth.ListFilter{Role: auth.RoleAdmin}, auth.Page{Number: 1, Size: 10})
	if err != nil {
		t.Fatalf("List admins: %v", err)
	}
	if total != 1 || users[0].ID != "u1" {
		t.Fatalf("role filter failed: %+v", users)
	}

	users, _, err = s.List(context.Background(), auth.ListFilter{Search: "AMY"}, auth.Page{Number: 1, Size: 10})
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u3" {
		t.Fatalf("search should be case-insensitive: %+v", users)
	}
}

func TestReturnedUsersAreCopies(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	seedUser(t, s, "u1", "jane@example.com", auth.RoleUser, now)

	u, err := s.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	u.FullName = "Mutated"

	again, err := s.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByID again: %v", err)
	}
	if again.FullName == "Mutated" {
		t.Fatal("store handed out its internal pointer")
	}
}

func TestInsertDenormalizesUser(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	seedUser(t, s, "u1", "jane@example.com", auth.RoleUser, now)

	err := s.Insert(context.Background(), &activity.Entry{
		ID: "a1", UserID: "u1", Action: activity.ActionLogin, Timestamp: now,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	entries, _, err := s.Find(context.Background(), activity.Filter{}, activity.Page{Number: 1, Size: 10})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(entries) != 1 || entries[0].UserName != "User u1" || entries[0].UserEmail != "jane@example.com" {
		t.Fatalf("expected denormalized user fields: %+v", entries)
	}
}

func TestAggregateWindow(t *testing.T) {
	s := New()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	for i, e := range []activity.Entry{
		{UserID: "u1", Action: activity.ActionLogin, Timestamp: now.AddDate(0, 0, -1)},
		{UserID: "u2", Action: activity.ActionLogin, Timestamp: now.AddDate(0, 0, -2)},
		{UserID: "u1", Action: activity.ActionLogout, Timestamp: now.AddDate(0, 0, -3)},
		{UserID: "u9", Action: activity.ActionLogin, Timestamp: now.AddDate(0, 0, -30)},
	} {
		e.ID = string(rune('a' + i))
		if err := s.Insert(context.Background(), &e); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	total, uniqueUsers, breakdown, err := s.Aggregate(context.Background(), now.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if total != 3 || uniqueUsers != 2 {
		t.Fatalf("unexpected totals: %d %d", total, uniqueUsers)
	}
	if len(breakdown) != 2 || breakdown[0].Action != activity.ActionLogin || breakdown[0].Count != 2 {
		t.Fatalf("unexpected breakdown: %+v", breakdown)
	}
}
