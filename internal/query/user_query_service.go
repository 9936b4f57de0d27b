package query

import (
	"context"
	"fmt"

	"github.com/markwinap/t3-antd-postgress-template/shared/cqrs"
	"github.com/markwinap/t3-antd-postgress-template/shared/errs"
	"github.com/markwinap/t3-antd-postgress-template/shared/models"
	"golang.org/x/sync/singleflight"
)

// UserReader is the store-facing read side.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Search(ctx context.Context, value string, limit int) ([]models.User, error)
	ListPage(ctx context.Context, q cqrs.ListUsersPageQuery) ([]models.User, error)
}

// UserQueryService serves user reads. Identical concurrent searches, which a
// debounced autocomplete produces in bursts, share one store round trip.
type UserQueryService struct {
	readRepo UserReader
	sf       singleflight.Group
}

func NewUserQueryService(readRepo UserReader) *UserQueryService {
	return &UserQueryService{readRepo: readRepo}
}

// GetUser returns (nil, nil) when the user does not exist.
func (s *UserQueryService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.User, error) {
	if !q.Actor.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	return s.readRepo.GetByID(ctx, q.UserID)
}

func (s *UserQueryService) ListUsers(ctx context.Context, q cqrs.ListUsersQuery) ([]models.User, error) {
	if !q.Actor.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	return s.readRepo.List(ctx)
}

// SearchUsers returns up to Limit+1 matches ordered by name descending.
func (s *UserQueryService) SearchUsers(ctx context.Context, q cqrs.SearchUsersQuery) ([]models.User, error) {
	if !q.Actor.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	if q.Limit < 1 || q.Limit > cqrs.MaxLimit {
		return nil, errs.Invalid("limit", fmt.Sprintf("Value must be between 1 and %d", cqrs.MaxLimit), "range")
	}

	// The shared call must not inherit one caller's cancellation.
	key := fmt.Sprintf("%d:%s", q.Limit, q.Value)
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.readRepo.Search(shared, q.Value, q.Limit)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.User), nil
}

// ListUsersPage fetches one extra row to learn whether another page exists;
// that row's id becomes NextCursor and is the first row of the next page.
func (s *UserQueryService) ListUsersPage(ctx context.Context, q cqrs.ListUsersPageQuery) (*models.Page, error) {
	if !q.Actor.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	q = q.Normalized()

	items, err := s.readRepo.ListPage(ctx, q)
	if err != nil {
		return nil, err
	}

	page := &models.Page{Items: items}
	if len(items) > q.Limit {
		next := items[q.Limit].ID
		page.Items = items[:q.Limit]
		page.NextCursor = &next
	}
	return page, nil
}
