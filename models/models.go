package models

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a submitted role string to a Role. Unknown values return false.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleStudent, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type QuizAttempt struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Aptitude    int       `json:"aptitude"`
	Interest    int       `json:"interest"`
	Personality int       `json:"personality"`
	Total       int       `json:"total"`
	Career      string    `json:"career"`
	CreatedAt   time.Time `json:"created_at"`
}

type CareerCount struct {
	Career string `json:"career"`
	Count  int    `json:"count"`
}

// SessionContext is the authenticated identity carried by a browser session or API token.
type SessionContext struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (s SessionContext) IsAdmin() bool {
	return s.Role == RoleAdmin
}
