package model

// SuperuserRole is the role name that grants access to every tool
// regardless of explicit tool assignments. The rule itself lives in the
// authorizer and in the tool lookup of the user repository; nothing else
// should compare against this constant.
const SuperuserRole = "superuser"

// Role represents a row in the `roles` table. Roles are static reference
// data seeded at migration time (superuser, manager, user, operator, itar).
type Role struct {
	ID          uint64 // roles.id
	Name        string // roles.name (unique)
	Description string // roles.description
}
