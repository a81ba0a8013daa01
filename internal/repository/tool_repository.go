package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/acidash/dashboard-api/internal/model"
)

// ToolRepo manages the tools table.
type ToolRepo struct{ DB *sql.DB }

func NewToolRepo(db *sql.DB) *ToolRepo { return &ToolRepo{DB: db} }

const toolColumns = "id, name, display_name, description, route, icon, is_active"

func scanTool(row *sql.Row) (model.Tool, error) {
	var t model.Tool
	err := row.Scan(&t.ID, &t.Name, &t.DisplayName, &t.Description, &t.Route, &t.Icon, &t.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tool{}, ErrNotFound
	}
	return t, err
}

// List returns all tools ordered by id.
func (r *ToolRepo) List(ctx context.Context) ([]model.Tool, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+toolColumns+" FROM tools ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []model.Tool
	for rows.Next() {
		var t model.Tool
		if err := rows.Scan(&t.ID, &t.Name, &t.DisplayName, &t.Description,
			&t.Route, &t.Icon, &t.IsActive); err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

// GetByID fetches a single tool.
func (r *ToolRepo) GetByID(ctx context.Context, id uint64) (model.Tool, error) {
	return scanTool(r.DB.QueryRowContext(ctx,
		"SELECT "+toolColumns+" FROM tools WHERE id=? LIMIT 1", id))
}

// GetByName fetches a tool by its unique name.
func (r *ToolRepo) GetByName(ctx context.Context, name string) (model.Tool, error) {
	return scanTool(r.DB.QueryRowContext(ctx,
		"SELECT "+toolColumns+" FROM tools WHERE name=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(name))))
}

// CreateToolParams carries the fields for a new tool.
type CreateToolParams struct {
	Name        string
	DisplayName string
	Description string
	Route       string
	Icon        string
	IsActive    bool
}

// Create inserts a tool. Tool names are unique.
func (r *ToolRepo) Create(ctx context.Context, p CreateToolParams) (model.Tool, error) {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if p.Icon == "" {
		p.Icon = "tool"
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tools (name, display_name, description, route, icon, is_active) VALUES (?,?,?,?,?,?)",
		p.Name, p.DisplayName, p.Description, p.Route, p.Icon, p.IsActive)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Tool{}, ErrDuplicateName
		}
		return model.Tool{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Tool{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// UpdateToolParams carries a partial tool update; nil fields are untouched.
type UpdateToolParams struct {
	DisplayName *string
	Description *string
	Route       *string
	Icon        *string
	IsActive    *bool
}

// Update applies a partial update to a tool. The name is immutable: gates
// reference tools by name, and renaming one would silently widen or narrow
// existing grants.
func (r *ToolRepo) Update(ctx context.Context, id uint64, p UpdateToolParams) (model.Tool, error) {
	var sets []string
	var args []any
	if p.DisplayName != nil {
		sets = append(sets, "display_name=?")
		args = append(args, *p.DisplayName)
	}
	if p.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *p.Description)
	}
	if p.Route != nil {
		sets = append(sets, "route=?")
		args = append(args, *p.Route)
	}
	if p.Icon != nil {
		sets = append(sets, "icon=?")
		args = append(args, *p.Icon)
	}
	if p.IsActive != nil {
		sets = append(sets, "is_active=?")
		args = append(args, *p.IsActive)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE tools SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
			return model.Tool{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a tool. user_tools rows referencing it are removed by
// the cascade foreign key.
func (r *ToolRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tools WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
