package models

// UserRole values carried in JWT claims. Accounts themselves live in an
// external service; the core only needs the acting user's id and role.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleInstructor UserRole = "instructor"
	RolePlayer     UserRole = "player"
)
