package cqrs

import "github.com/markwinap/t3-antd-postgress-template/shared/models"

const (
	DefaultPageLimit = 10
	MaxLimit         = 100

	SortByName  = "name"
	SortByEmail = "email"
)

// GetUserQuery fetches a single user by ID. A missing user is not an error.
type GetUserQuery struct {
	Actor  models.Actor
	UserID string
}

// ListUsersQuery fetches every user, unordered and unbounded.
type ListUsersQuery struct {
	Actor models.Actor
}

// SearchUsersQuery matches Value against name or email, case-insensitively.
// Up to Limit+1 rows are returned, ordered by name descending.
type SearchUsersQuery struct {
	Actor models.Actor
	Value string
	Limit int
}

// ListUsersPageQuery is a cursor-paginated, filtered listing.
// Cursor is the id of the first row of the requested page; empty starts at the top.
type ListUsersPageQuery struct {
	Actor  models.Actor
	Value  string
	Limit  int
	SortBy string
	Cursor string
}

// Normalized fills in the default limit and sort column.
func (q ListUsersPageQuery) Normalized() ListUsersPageQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.SortBy != SortByEmail {
		q.SortBy = SortByName
	}
	return q
}
