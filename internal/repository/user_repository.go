package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/acidash/dashboard-api/internal/model"
	"github.com/acidash/dashboard-api/internal/utils"
)

// UserRepo reads and mutates the users table and its role/tool
// associations. Every multi-statement mutation runs in a single
// transaction so a partially reassigned association set is never
// observable.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,full_name,username,email,password_hash,is_active,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FullName, &u.Username, &u.Email, &u.PasswordHash,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// FindByUsername fetches a user by normalized username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.FullName, &u.Username, &u.Email, &u.PasswordHash,
			&u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// RolesForUser returns the roles assigned to a user via user_roles.
func (r *UserRepo) RolesForUser(ctx context.Context, userID uint64) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.id, r.name, r.description
		 FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = ?
		 ORDER BY r.id`, userID)
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

// ToolsForUser returns the tools available to a user. Superusers resolve
// to every active tool regardless of explicit user_tools rows; everyone
// else gets exactly their explicit assignments.
func (r *UserRepo) ToolsForUser(ctx context.Context, userID uint64) ([]model.Tool, error) {
	roles, err := r.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	query := `SELECT t.id, t.name, t.display_name, t.description, t.route, t.icon, t.is_active
		 FROM tools t
		 JOIN user_tools ut ON ut.tool_id = t.id
		 WHERE ut.user_id = ?
		 ORDER BY t.id`
	args := []any{userID}
	if hasSuperuser(roles) {
		query = `SELECT id, name, display_name, description, route, icon, is_active
			 FROM tools WHERE is_active = TRUE ORDER BY id`
		args = nil
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
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

func hasSuperuser(roles []model.Role) bool {
	for _, role := range roles {
		if role.Name == model.SuperuserRole {
			return true
		}
	}
	return false
}

// CreateUserParams carries the fields for a new user. RoleIDs and ToolIDs
// fully define the association sets; ToolIDs are ignored when the role set
// includes superuser, since superusers resolve to all tools anyway.
type CreateUserParams struct {
	FullName string
	Username string
	Email    string
	Password string
	IsActive bool
	RoleIDs  []uint64
	ToolIDs  []uint64
}

// Create inserts a user with its role and tool associations in one
// transaction. Fails with ErrUsernameExists or ErrEmailExists when the
// unique constraints would be violated.
func (r *UserRepo) Create(ctx context.Context, p CreateUserParams, bcryptCost int) (model.User, error) {
	p.Username = strings.ToLower(strings.TrimSpace(p.Username))
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))

	hash, err := utils.HashPassword(p.Password, bcryptCost)
	if err != nil {
		return model.User{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer tx.Rollback()

	if err := checkUnique(ctx, tx, p.Username, p.Email, 0); err != nil {
		return model.User{}, err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (full_name, username, email, password_hash, is_active) VALUES (?,?,?,?,?)",
		p.FullName, p.Username, p.Email, hash, p.IsActive)
	if err != nil {
		return model.User{}, mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	userID := uint64(id)

	if err := replaceRoles(ctx, tx, userID, p.RoleIDs); err != nil {
		return model.User{}, err
	}
	toolIDs := p.ToolIDs
	super, err := rolesContainSuperuser(ctx, tx, p.RoleIDs)
	if err != nil {
		return model.User{}, err
	}
	if super {
		toolIDs = nil
	}
	if err := replaceTools(ctx, tx, userID, toolIDs); err != nil {
		return model.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}
	return r.FindByID(ctx, userID)
}

// UpdateUserParams carries a partial update. Nil pointers leave the field
// untouched; a nil slice pointer leaves the association set untouched,
// while a pointer to an empty slice clears it.
type UpdateUserParams struct {
	FullName *string
	Username *string
	Email    *string
	Password *string
	IsActive *bool
	RoleIDs  *[]uint64
	ToolIDs  *[]uint64
}

// Update applies a partial update to a user in one transaction. A new
// password is policy-checked by the caller and re-hashed here. Role and
// tool sets are replaced wholesale (delete-then-insert) rather than
// diffed, so a failed reassignment can never leave a mixed set behind.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UpdateUserParams, bcryptCost int) (model.User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id=?)", id).Scan(&exists); err != nil {
		return model.User{}, err
	}
	if !exists {
		return model.User{}, ErrNotFound
	}

	var sets []string
	var args []any
	if p.FullName != nil {
		sets = append(sets, "full_name=?")
		args = append(args, *p.FullName)
	}
	if p.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*p.Username))
		if err := checkUnique(ctx, tx, username, "", id); err != nil {
			return model.User{}, err
		}
		sets = append(sets, "username=?")
		args = append(args, username)
	}
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if err := checkUnique(ctx, tx, "", email, id); err != nil {
			return model.User{}, err
		}
		sets = append(sets, "email=?")
		args = append(args, email)
	}
	if p.Password != nil {
		hash, err := utils.HashPassword(*p.Password, bcryptCost)
		if err != nil {
			return model.User{}, err
		}
		sets = append(sets, "password_hash=?")
		args = append(args, hash)
	}
	if p.IsActive != nil {
		sets = append(sets, "is_active=?")
		args = append(args, *p.IsActive)
	}
	if len(sets) > 0 {
		args = append(args, id)
		_, err := tx.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
		if err != nil {
			return model.User{}, mapDuplicate(err)
		}
	}

	if p.RoleIDs != nil {
		if err := replaceRoles(ctx, tx, id, *p.RoleIDs); err != nil {
			return model.User{}, err
		}
	}

	// The effective role set decides whether explicit tool rows are kept:
	// superusers never carry them.
	super, err := userIsSuperuser(ctx, tx, id)
	if err != nil {
		return model.User{}, err
	}
	switch {
	case super:
		if err := replaceTools(ctx, tx, id, nil); err != nil {
			return model.User{}, err
		}
	case p.ToolIDs != nil:
		if err := replaceTools(ctx, tx, id, *p.ToolIDs); err != nil {
			return model.User{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}
	return r.FindByID(ctx, id)
}

// UpdatePasswordHash stores a freshly hashed password for the user.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
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

// Delete removes a user. The requesting administrator cannot delete their
// own account. Association rows are removed by the ON DELETE CASCADE
// foreign keys on user_roles and user_tools.
func (r *UserRepo) Delete(ctx context.Context, id, requestingUserID uint64) error {
	if id == requestingUserID {
		return ErrSelfDeletion
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
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

// checkUnique verifies username/email availability inside the transaction.
// Empty strings skip the corresponding check; selfID exempts the user
// being updated from matching itself.
func checkUnique(ctx context.Context, tx *sql.Tx, username, email string, selfID uint64) error {
	if username != "" {
		var id uint64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM users WHERE username=? LIMIT 1", username).Scan(&id)
		switch {
		case err == nil && id != selfID:
			return ErrUsernameExists
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return err
		}
	}
	if email != "" {
		var id uint64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM users WHERE email=? LIMIT 1", email).Scan(&id)
		switch {
		case err == nil && id != selfID:
			return ErrEmailExists
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return err
		}
	}
	return nil
}

// mapDuplicate turns a MySQL duplicate-key error (1062) into the matching
// sentinel. Backstop for races the pre-checks cannot see.
func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "1062") {
		if strings.Contains(msg, "email") {
			return ErrEmailExists
		}
		return ErrUsernameExists
	}
	return err
}

func replaceRoles(ctx context.Context, tx *sql.Tx, userID uint64, roleIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id=?", userID); err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role_id) VALUES (?,?)", userID, roleID); err != nil {
			return err
		}
	}
	return nil
}

func replaceTools(ctx context.Context, tx *sql.Tx, userID uint64, toolIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_tools WHERE user_id=?", userID); err != nil {
		return err
	}
	for _, toolID := range toolIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_tools (user_id, tool_id) VALUES (?,?)", userID, toolID); err != nil {
			return err
		}
	}
	return nil
}

func rolesContainSuperuser(ctx context.Context, tx *sql.Tx, roleIDs []uint64) (bool, error) {
	if len(roleIDs) == 0 {
		return false, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(roleIDs)), ",")
	args := make([]any, 0, len(roleIDs)+1)
	for _, id := range roleIDs {
		args = append(args, id)
	}
	args = append(args, model.SuperuserRole)
	var found bool
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM roles WHERE id IN (%s) AND name=?)", placeholders),
		args...).Scan(&found)
	return found, err
}

func userIsSuperuser(ctx context.Context, tx *sql.Tx, userID uint64) (bool, error) {
	var found bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id=? AND r.name=?)`,
		userID, model.SuperuserRole).Scan(&found)
	return found, err
}
