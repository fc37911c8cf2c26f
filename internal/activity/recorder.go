package activity

import (
	"context"
	"fmt"
	"time"

	"userdesk.org/internal/ids"
	"userdesk.org/internal/obs"
)

const (
	defaultPageSize  = 20
	maxPageSize      = 100
	defaultStatsDays = 7
)

// RequestMeta carries the client attributes a handler extracts from the
// incoming request.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Recorder writes and reads the audit log. Writes are best-effort: a failed
// insert is reported to the diagnostic logger and otherwise ignored, so the
// triggering action is never affected.
type Recorder struct {
	store Store
	now   func() time.Time
}

// Option configures Recorder behavior.
type Option func(*Recorder)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("activity: store is required")
	}
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record appends one audit entry. It returns nothing: persistence errors are
// swallowed after a diagnostic log line, and the write survives caller
// cancellation so a client disconnect cannot drop the record.
func (r *Recorder) Record(ctx context.Context, userID string, action Action, details string, meta *RequestMeta) {
	if userID == "" || !action.Valid() {
		obs.Error("activity_record_skipped", map[string]any{
			"user_id": userID,
			"action":  string(action),
		})
		return
	}

	entry := &Entry{
		ID:        ids.New(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		Timestamp: r.now().UTC(),
	}
	if meta != nil {
		entry.IPAddress = meta.IP
		entry.UserAgent = meta.UserAgent
	}

	if err := r.store.Insert(context.WithoutCancel(ctx), entry); err != nil {
		obs.Error("activity_record_failed", map[string]any{
			"user_id": userID,
			"action":  string(action),
			"error":   err.Error(),
		})
	}
}

// Query returns a page of entries newest-first plus the total match count.
// A relative Days filter is resolved to an explicit start instant here so
// stores only ever see absolute ranges.
func (r *Recorder) Query(ctx context.Context, filter Filter, page Page) ([]Entry, int, error) {
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, 0, fmt.Errorf("activity: unknown action %q", filter.Action)
	}
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = defaultPageSize
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}

	// Explicit range wins over the relative shorthand.
	if (filter.Start == nil || filter.End == nil) && filter.Days > 0 {
		start := r.now().UTC().AddDate(0, 0, -filter.Days)
		filter.Start = &start
		filter.End = nil
	}
	filter.Days = 0

	return r.store.Find(ctx, filter, page)
}

// Stats aggregates the trailing windowDays of the log: total entries,
// distinct users and a per-action breakdown in descending count order.
func (r *Recorder) Stats(ctx context.Context, windowDays int) (Stats, error) {
	if windowDays < 1 {
		windowDays = defaultStatsDays
	}
	since := r.now().UTC().AddDate(0, 0, -windowDays)

	total, uniqueUsers, breakdown, err := r.store.Aggregate(ctx, since)
	if err != nil {
		return Stats{}, err
	}
	if breakdown == nil {
		breakdown = []ActionCount{}
	}
	return Stats{
		TotalActivities: total,
		UniqueUsers:     uniqueUsers,
		ActionBreakdown: breakdown,
		Period:          fmt.Sprintf("%d days", windowDays),
	}, nil
}
