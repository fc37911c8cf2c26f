package auth

import "time"

// Role is the coarse access level attached to every account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a directory account. PasswordHash never crosses the API boundary;
// the json tag keeps it out of every response.
type User struct {
	ID           string     `json:"id"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Active       bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLogin,omitempty"`
}

// ListFilter narrows admin user listings.
type ListFilter struct {
	// Search matches a substring of full name or email.
	Search string
	Role   Role
	Active *bool
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

// Stats summarizes the directory for the admin dashboard.
type Stats struct {
	TotalUsers  int `json:"totalUsers"`
	ActiveUsers int `json:"activeUsers"`
	AdminUsers  int `json:"adminUsers"`
	RecentUsers int `json:"recentUsers"`
}
