package activity

import "time"

// Action tags come from a fixed vocabulary so the log can be filtered and
// aggregated reliably.
type Action string

const (
	ActionRegister       Action = "register"
	ActionLogin          Action = "login"
	ActionLogout         Action = "logout"
	ActionUpdateProfile  Action = "update_profile"
	ActionChangePassword Action = "change_password"
	ActionCreateUser     Action = "create_user"
	ActionUpdateUser     Action = "update_user"
	ActionDeleteUser     Action = "delete_user"
	ActionActivateUser   Action = "activate_user"
	ActionDeactivateUser Action = "deactivate_user"
)

var knownActions = map[Action]struct{}{
	ActionRegister:       {},
	ActionLogin:          {},
	ActionLogout:         {},
	ActionUpdateProfile:  {},
	ActionChangePassword: {},
	ActionCreateUser:     {},
	ActionUpdateUser:     {},
	ActionDeleteUser:     {},
	ActionActivateUser:   {},
	ActionDeactivateUser: {},
}

// Valid reports whether a belongs to the vocabulary.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// Entry is one append-only audit record. UserName and UserEmail are denormalized
// from the user record at read time for display; they are not stored.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	UserName  string    `json:"userName,omitempty"`
	UserEmail string    `json:"userEmail,omitempty"`
	Action    Action    `json:"action"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Filter narrows log queries. When Start/End are both set they form an
// inclusive range; otherwise Days selects a trailing window.
type Filter struct {
	UserID string
	Action Action
	Start  *time.Time
	End    *time.Time
	Days   int
}

// Page is 1-based pagination input.
type Page struct {
	Number int
	Size   int
}

// Offset converts the page number to a row offset.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// ActionCount is one row of the per-action breakdown.
type ActionCount struct {
	Action Action `json:"action"`
	Count  int    `json:"count"`
}

// Stats aggregates the log over a trailing window.
type Stats struct {
	TotalActivities int           `json:"totalActivities"`
	UniqueUsers     int           `json:"uniqueUsers"`
	ActionBreakdown []ActionCount `json:"actionBreakdown"`
	Period          string        `json:"period"`
}
