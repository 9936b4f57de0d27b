package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/markwinap/t3-antd-postgress-template/shared/cqrs"
	"github.com/markwinap/t3-antd-postgress-template/shared/errs"
	"github.com/markwinap/t3-antd-postgress-template/shared/models"
	"github.com/markwinap/t3-antd-postgress-template/shared/utils"
)

// MemoryUserStore is an in-process store with the same contract as the
// Postgres repositories. It backs local runs without a database and tests.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
	order []string
	newID func() string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]models.User),
		newID: func() string { return utils.GenerateID("usr") },
	}
}

func (m *MemoryUserStore) Create(_ context.Context, nu models.NewUser) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.insertLocked(nu)
	return &u, nil
}

func (m *MemoryUserStore) CreateMany(_ context.Context, users []models.NewUser) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, nu := range users {
		m.insertLocked(nu)
	}
	return int64(len(users)), nil
}

func (m *MemoryUserStore) insertLocked(nu models.NewUser) models.User {
	u := models.User{ID: m.newID(), Name: nu.Name, Email: nu.Email}
	m.users[u.ID] = u
	m.order = append(m.order, u.ID)
	return u
}

func (m *MemoryUserStore) Update(_ context.Context, id string, patch models.UserPatch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	u = patch.Apply(u)
	m.users[id] = u
	return &u, nil
}

func (m *MemoryUserStore) Delete(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	m.removeLocked(id)
	return &u, nil
}

func (m *MemoryUserStore) DeleteMany(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.users[id]; ok {
			m.removeLocked(id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryUserStore) removeLocked(id string) {
	delete(m.users, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func (m *MemoryUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryUserStore) List(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.users[id])
	}
	return out, nil
}

func (m *MemoryUserStore) Search(_ context.Context, value string, limit int) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.matchLocked(value, cqrs.SortByName)
	if len(out) > limit+1 {
		out = out[:limit+1]
	}
	return out, nil
}

func (m *MemoryUserStore) ListPage(_ context.Context, q cqrs.ListUsersPageQuery) ([]models.User, error) {
	q = q.Normalized()
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.matchLocked(q.Value, q.SortBy)
	if q.Cursor != "" {
		cur, ok := m.users[q.Cursor]
		if !ok {
			return []models.User{}, nil
		}
		start := len(rows)
		for i, u := range rows {
			if !greater(sortKey(u, q.SortBy), u.ID, sortKey(cur, q.SortBy), cur.ID) {
				start = i
				break
			}
		}
		rows = rows[start:]
	}
	if len(rows) > q.Limit+1 {
		rows = rows[:q.Limit+1]
	}
	return rows, nil
}

// matchLocked filters by case-insensitive substring and sorts by the column
// then id, both descending.
func (m *MemoryUserStore) matchLocked(value, sortBy string) []models.User {
	needle := strings.ToLower(value)
	out := []models.User{}
	for _, id := range m.order {
		u := m.users[id]
		if strings.Contains(strings.ToLower(u.Name), needle) || strings.Contains(strings.ToLower(u.Email), needle) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return greater(sortKey(out[i], sortBy), out[i].ID, sortKey(out[j], sortBy), out[j].ID)
	})
	return out
}

func sortKey(u models.User, sortBy string) string {
	if sortBy == cqrs.SortByEmail {
		return u.Email
	}
	return u.Name
}

// greater compares (key, id) pairs lexicographically; descending order puts
// the greater pair first.
func greater(key, id, otherKey, otherID string) bool {
	if key != otherKey {
		return key > otherKey
	}
	return id > otherID
}

func (m *MemoryUserStore) CacheUser(context.Context, *models.User) {}

func (m *MemoryUserStore) InvalidateUsers(context.Context, ...string) {}
