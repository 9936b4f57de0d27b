package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/markwinap/t3-antd-postgress-template/shared/cqrs"
	"github.com/markwinap/t3-antd-postgress-template/shared/models"
	sharedredis "github.com/markwinap/t3-antd-postgress-template/shared/redis"
	"github.com/markwinap/t3-antd-postgress-template/shared/utils"
	goredis "github.com/redis/go-redis/v9"
)

const userViewKeyPrefix = "user:view:"

var sortColumns = map[string]string{
	cqrs.SortByName:  "name",
	cqrs.SortByEmail: "email",
}

// UserReadRepository handles all read operations for users against Postgres.
// When a Redis client is supplied, GetByID reads through a view cache that
// the command side writes through on create and update and tombstones on
// delete.
type UserReadRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.User]
}

// NewUserReadRepository accepts a nil redisClient, which disables caching.
func NewUserReadRepository(db *sql.DB, redisClient goredis.Cmdable, ttl time.Duration) *UserReadRepository {
	r := &UserReadRepository{db: db}
	if redisClient != nil {
		r.cache = sharedredis.NewViewCache[models.User](redisClient, userViewKeyPrefix, ttl)
	}
	return r
}

// GetByID returns (nil, nil) when the user does not exist.
func (r *UserReadRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if r.cache != nil {
		if user, ok := r.cache.Get(ctx, id); ok {
			return user, nil
		}
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT id, name, email FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get user", err)
	}

	if r.cache != nil {
		r.cache.Fill(ctx, id, user)
	}
	return user, nil
}

// List returns every user in store order.
func (r *UserReadRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, email FROM users`)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// Search returns up to limit+1 users whose name or email contains value.
func (r *UserReadRepository) Search(ctx context.Context, value string, limit int) ([]models.User, error) {
	query := `
		SELECT id, name, email
		FROM users
		WHERE name ILIKE $1 OR email ILIKE $1
		ORDER BY name DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, utils.ContainsPattern(value), limit+1)
	if err != nil {
		return nil, storeErr("search users", err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, storeErr("search users", err)
	}
	return users, nil
}

// ListPage returns up to q.Limit+1 filtered users ordered by the sort column
// and id, both descending, starting at the row whose id is q.Cursor.
func (r *UserReadRepository) ListPage(ctx context.Context, q cqrs.ListUsersPageQuery) ([]models.User, error) {
	q = q.Normalized()
	col := sortColumns[q.SortBy]

	query := fmt.Sprintf(`
		SELECT id, name, email
		FROM users
		WHERE (name ILIKE $1 OR email ILIKE $1)
		  AND ($3::text = '' OR (%[1]s, id) <= (SELECT c.%[1]s, c.id FROM users c WHERE c.id = $3))
		ORDER BY %[1]s DESC, id DESC
		LIMIT $2
	`, col)

	rows, err := r.db.QueryContext(ctx, query, utils.ContainsPattern(q.Value), q.Limit+1, q.Cursor)
	if err != nil {
		return nil, storeErr("list users page", err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, storeErr("list users page", err)
	}
	return users, nil
}

// CacheUser writes the committed view of a user through to the cache.
func (r *UserReadRepository) CacheUser(ctx context.Context, user *models.User) {
	if r.cache != nil {
		r.cache.Set(ctx, user.ID, user)
	}
}

// InvalidateUsers tombstones cached views after a delete.
func (r *UserReadRepository) InvalidateUsers(ctx context.Context, ids ...string) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, ids...)
	}
}
