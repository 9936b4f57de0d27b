package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/markwinap/t3-antd-postgress-template/shared/errs"
	"github.com/markwinap/t3-antd-postgress-template/shared/models"
	"github.com/markwinap/t3-antd-postgress-template/shared/utils"
)

const insertUserQuery = `INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`

// UserWriteRepository handles all state-mutating operations for users.
// IDs are assigned here, so callers never supply one.
type UserWriteRepository struct {
	db    *sql.DB
	newID func() string
}

func NewUserWriteRepository(db *sql.DB) *UserWriteRepository {
	return &UserWriteRepository{
		db:    db,
		newID: func() string { return utils.GenerateID("usr") },
	}
}

func (r *UserWriteRepository) Create(ctx context.Context, nu models.NewUser) (*models.User, error) {
	user := &models.User{ID: r.newID(), Name: nu.Name, Email: nu.Email}
	if _, err := r.db.ExecContext(ctx, insertUserQuery, user.ID, user.Name, user.Email); err != nil {
		return nil, storeErr("create user", err)
	}
	return user, nil
}

// CreateMany inserts all users in a single transaction and returns the count.
func (r *UserWriteRepository) CreateMany(ctx context.Context, users []models.NewUser) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("create users", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i, nu := range users {
		if _, err := tx.ExecContext(ctx, insertUserQuery, r.newID(), nu.Name, nu.Email); err != nil {
			return 0, storeErr(fmt.Sprintf("create users (row %d)", i), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr("create users", err)
	}
	return int64(len(users)), nil
}

// Update writes only the fields present in patch. An empty patch reads the
// current row back unchanged.
func (r *UserWriteRepository) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	args := []any{id}
	var sets []string
	if patch.Name.Set {
		args = append(args, patch.Name.Value)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if patch.Email.Set {
		args = append(args, patch.Email.Value)
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}

	query := `SELECT id, name, email FROM users WHERE id = $1`
	if len(sets) > 0 {
		query = `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING id, name, email`
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("update user", err)
	}
	return user, nil
}

// Delete removes the user and returns the row as it was.
func (r *UserWriteRepository) Delete(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`DELETE FROM users WHERE id = $1 RETURNING id, name, email`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("delete user", err)
	}
	return user, nil
}

// DeleteMany removes every listed id that exists and returns how many rows went.
func (r *UserWriteRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, storeErr("delete users", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, storeErr("delete users", err)
	}
	return rows, nil
}
