package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/acidash/dashboard-api/internal/model"
)

// RoleRepo manages the roles reference table.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// List returns all roles ordered by id.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, description FROM roles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetByID fetches a single role.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, description FROM roles WHERE id=? LIMIT 1", id).
		Scan(&role.ID, &role.Name, &role.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Role{}, ErrNotFound
	}
	return role, err
}

// Create inserts a role. Role names are unique.
func (r *RoleRepo) Create(ctx context.Context, name, description string) (model.Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name, description) VALUES (?,?)", name, description)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Role{}, ErrDuplicateName
		}
		return model.Role{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Role{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update changes a role's name and/or description.
func (r *RoleRepo) Update(ctx context.Context, id uint64, name, description *string) (model.Role, error) {
	var sets []string
	var args []any
	if name != nil {
		sets = append(sets, "name=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*name)))
	}
	if description != nil {
		sets = append(sets, "description=?")
		args = append(args, *description)
	}
	if len(sets) > 0 {
		args = append(args, id)
		res, err := r.DB.ExecContext(ctx,
			"UPDATE roles SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
		if err != nil {
			return model.Role{}, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return model.Role{}, err
		} else if n == 0 {
			// Could also be an update to the same values; confirm existence.
			if _, err := r.GetByID(ctx, id); err != nil {
				return model.Role{}, err
			}
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a role. user_roles rows referencing it are removed by
// the cascade foreign key.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id)
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
