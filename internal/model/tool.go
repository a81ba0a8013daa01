package model

// Tool represents a row in the `tools` table. A tool is an independently
// gated dashboard capability with its own route and icon. Access requires
// either an explicit user_tools row (and IsActive true) or the superuser
// role.
type Tool struct {
	ID          uint64 // tools.id
	Name        string // tools.name (unique, e.g. compare_tool)
	DisplayName string // tools.display_name
	Description string // tools.description
	Route       string // tools.route (dashboard path)
	Icon        string // tools.icon
	IsActive    bool   // tools.is_active
}
