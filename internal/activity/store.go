package activity

import (
	"context"
	"time"
)

// Store describes persistence for audit entries. Find returns entries newest
// first plus the total match count; Aggregate groups entries since the given
// instant by action, ordered by descending count.
type Store interface {
	Insert(ctx context.Context, e *Entry) error
	Find(ctx context.Context, filter Filter, page Page) ([]Entry, int, error)
	Aggregate(ctx context.Context, since time.Time) (total int, uniqueUsers int, breakdown []ActionCount, err error)
}
