package model

import "time"

// User represents a row in the `users` table. The PasswordHash field is
// only consumed by the repository and service layers; handlers build
// separate response types and must never echo it back. Usernames and
// emails are stored lowercase and are unique.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FullName     – display name shown in the dashboard.
//  Username     – unique login name (lowercase).
//  Email        – unique email address (lowercase).
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	FullName     string    // users.full_name
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
