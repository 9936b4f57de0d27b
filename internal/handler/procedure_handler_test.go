package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/markwinap/t3-antd-postgress-template/shared/cqrs"
	"github.com/markwinap/t3-antd-postgress-template/shared/errs"
	"github.com/markwinap/t3-antd-postgress-template/shared/middleware"
	"github.com/markwinap/t3-antd-postgress-template/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mock implementations ----

type mockUserCommander struct {
	createFn     func(cqrs.CreateUserCommand) (*models.User, error)
	createManyFn func(cqrs.CreateUsersCommand) (int64, error)
	updateFn     func(cqrs.UpdateUserCommand) (*models.User, error)
	deleteFn     func(cqrs.DeleteUserCommand) (*models.User, error)
	deleteManyFn func(cqrs.DeleteUsersCommand) (int64, error)
}

func (m *mockUserCommander) CreateUser(_ context.Context, cmd cqrs.CreateUserCommand) (*models.User, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockUserCommander) CreateUsers(_ context.Context, cmd cqrs.CreateUsersCommand) (int64, error) {
	if m.createManyFn != nil {
		return m.createManyFn(cmd)
	}
	return 0, fmt.Errorf("not configured")
}
func (m *mockUserCommander) UpdateUser(_ context.Context, cmd cqrs.UpdateUserCommand) (*models.User, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockUserCommander) DeleteUser(_ context.Context, cmd cqrs.DeleteUserCommand) (*models.User, error) {
	if m.deleteFn != nil {
		return m.deleteFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockUserCommander) DeleteUsers(_ context.Context, cmd cqrs.DeleteUsersCommand) (int64, error) {
	if m.deleteManyFn != nil {
		return m.deleteManyFn(cmd)
	}
	return 0, fmt.Errorf("not configured")
}

type mockUserQuerier struct {
	getFn    func(cqrs.GetUserQuery) (*models.User, error)
	listFn   func(cqrs.ListUsersQuery) ([]models.User, error)
	searchFn func(cqrs.SearchUsersQuery) ([]models.User, error)
	pageFn   func(cqrs.ListUsersPageQuery) (*models.Page, error)
}

func (m *mockUserQuerier) GetUser(_ context.Context, q cqrs.GetUserQuery) (*models.User, error) {
	if m.getFn != nil {
		return m.getFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockUserQuerier) ListUsers(_ context.Context, q cqrs.ListUsersQuery) ([]models.User, error) {
	if m.listFn != nil {
		return m.listFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockUserQuerier) SearchUsers(_ context.Context, q cqrs.SearchUsersQuery) ([]models.User, error) {
	if m.searchFn != nil {
		return m.searchFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockUserQuerier) ListUsersPage(_ context.Context, q cqrs.ListUsersPageQuery) (*models.Page, error) {
	if m.pageFn != nil {
		return m.pageFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

const testActorID = "usr-admin"

func fakeAuthUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetActor(c, models.Actor{UserID: userID, Email: "admin@example.com"})
		c.Next()
	}
}

func newTestRouter(cmds UserCommander, qrys UserQuerier, collapseErrors bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r,
		NewProcedureHandler(cmds, qrys),
		NewUserAPIHandler(cmds, qrys, collapseErrors),
		fakeAuthUser(testActorID),
	)
	return r
}

func doRequest(router *gin.Engine, method, target string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, target, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, target, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func queryURL(procedure string, input interface{}) string {
	b, _ := json.Marshal(input)
	return "/rpc/" + procedure + "?input=" + url.QueryEscape(string(b))
}

var testUser = &models.User{ID: "usr-001", Name: "Alice", Email: "alice@example.com"}

// ---- tests ----

func TestProcedureCreate(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		createFn       func(cqrs.CreateUserCommand) (*models.User, error)
		expectedStatus int
	}{
		{
			name: "success - creates user",
			body: map[string]string{"name": "Alice", "email": "alice@example.com"},
			createFn: func(cmd cqrs.CreateUserCommand) (*models.User, error) {
				if cmd.Actor.UserID != testActorID {
					return nil, errs.ErrUnauthorized
				}
				return testUser, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - missing email",
			body:           map[string]string{"name": "Alice"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - empty name",
			body:           map[string]string{"name": "", "email": "alice@example.com"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - malformed body",
			body:           "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "server error - store failure",
			body: map[string]string{"name": "Alice", "email": "alice@example.com"},
			createFn: func(cqrs.CreateUserCommand) (*models.User, error) {
				return nil, &errs.StoreError{Op: "create user", Err: fmt.Errorf("connection refused")}
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockUserCommander{createFn: tt.createFn}, &mockUserQuerier{}, false)
			w := doRequest(router, http.MethodPost, "/rpc/user.create", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestProcedureCreateBatchReportsItemIndex(t *testing.T) {
	router := newTestRouter(&mockUserCommander{}, &mockUserQuerier{}, false)
	w := doRequest(router, http.MethodPost, "/rpc/user.createBatch", []map[string]string{
		{"name": "Alice", "email": "alice@example.com"},
		{"name": "Bob"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp middleware.BadRequestErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "[1].Email", resp.Details[0].Field)
}

func TestProcedureCreateBatch(t *testing.T) {
	var got []models.NewUser
	cmds := &mockUserCommander{createManyFn: func(cmd cqrs.CreateUsersCommand) (int64, error) {
		got = cmd.Users
		return int64(len(cmd.Users)), nil
	}}
	router := newTestRouter(cmds, &mockUserQuerier{}, false)

	w := doRequest(router, http.MethodPost, "/rpc/user.createBatch", []map[string]string{
		{"name": "Alice", "email": "alice@example.com"},
		{"name": "Bob", "email": "bob@example.com"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
	assert.Equal(t, []models.NewUser{{Name: "Alice", Email: "alice@example.com"}, {Name: "Bob", Email: "bob@example.com"}}, got)
}

func TestProcedureUpdate(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		updateFn       func(cqrs.UpdateUserCommand) (*models.User, error)
		expectedStatus int
	}{
		{
			name: "success - name only",
			body: map[string]interface{}{"id": "usr-001", "data": map[string]string{"name": "X"}},
			updateFn: func(cmd cqrs.UpdateUserCommand) (*models.User, error) {
				if !cmd.Patch.Name.Set || cmd.Patch.Email.Set {
					return nil, fmt.Errorf("unexpected patch %+v", cmd.Patch)
				}
				return &models.User{ID: cmd.UserID, Name: cmd.Patch.Name.Value, Email: "alice@example.com"}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - missing id",
			body:           map[string]interface{}{"data": map[string]string{"name": "X"}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - empty email supplied",
			body:           map[string]interface{}{"id": "usr-001", "data": map[string]string{"email": ""}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not found - user does not exist",
			body: map[string]interface{}{"id": "usr-999", "data": map[string]string{"name": "X"}},
			updateFn: func(cqrs.UpdateUserCommand) (*models.User, error) {
				return nil, errs.ErrNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockUserCommander{updateFn: tt.updateFn}, &mockUserQuerier{}, false)
			w := doRequest(router, http.MethodPost, "/rpc/user.update", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestProcedureDelete(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		deleteFn       func(cqrs.DeleteUserCommand) (*models.User, error)
		expectedStatus int
	}{
		{
			name:           "success - returns deleted user",
			body:           "usr-001",
			deleteFn:       func(cqrs.DeleteUserCommand) (*models.User, error) { return testUser, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - empty id",
			body:           "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "not found - unknown id",
			body:           "nonexistent",
			deleteFn:       func(cqrs.DeleteUserCommand) (*models.User, error) { return nil, errs.ErrNotFound },
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockUserCommander{deleteFn: tt.deleteFn}, &mockUserQuerier{}, false)
			w := doRequest(router, http.MethodPost, "/rpc/user.delete", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestProcedureDeleteBatch(t *testing.T) {
	cmds := &mockUserCommander{deleteManyFn: func(cmd cqrs.DeleteUsersCommand) (int64, error) {
		return int64(len(cmd.UserIDs)) - 1, nil
	}}
	router := newTestRouter(cmds, &mockUserQuerier{}, false)

	w := doRequest(router, http.MethodPost, "/rpc/user.deleteBatch", []string{"usr-001", "usr-002", "nonexistent"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
}

func TestProcedureGetByID(t *testing.T) {
	qrys := &mockUserQuerier{getFn: func(q cqrs.GetUserQuery) (*models.User, error) {
		if q.UserID == testUser.ID {
			return testUser, nil
		}
		return nil, nil
	}}
	router := newTestRouter(&mockUserCommander{}, qrys, false)

	w := doRequest(router, http.MethodGet, queryURL("user.getById", "usr-001"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"usr-001","name":"Alice","email":"alice@example.com"}`, w.Body.String())

	w = doRequest(router, http.MethodGet, queryURL("user.getById", "nonexistent"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())

	w = doRequest(router, http.MethodGet, "/rpc/user.getById", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcedureGetAll(t *testing.T) {
	qrys := &mockUserQuerier{listFn: func(cqrs.ListUsersQuery) ([]models.User, error) {
		return []models.User{*testUser}, nil
	}}
	router := newTestRouter(&mockUserCommander{}, qrys, false)

	w := doRequest(router, http.MethodGet, "/rpc/user.getAll", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"usr-001","name":"Alice","email":"alice@example.com"}]`, w.Body.String())
}

func TestProcedureGetAllPaged(t *testing.T) {
	tests := []struct {
		name           string
		input          interface{}
		wantQuery      cqrs.ListUsersPageQuery
		expectedStatus int
	}{
		{
			name:           "defaults when limit and cursor are null",
			input:          map[string]interface{}{"value": "ali", "sortBy": "email", "limit": nil, "cursor": nil},
			wantQuery:      cqrs.ListUsersPageQuery{Value: "ali", SortBy: "email"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "passes limit and cursor",
			input:          map[string]interface{}{"value": "", "sortBy": "name", "limit": 5, "cursor": "usr-010"},
			wantQuery:      cqrs.ListUsersPageQuery{SortBy: "name", Limit: 5, Cursor: "usr-010"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - limit above range",
			input:          map[string]interface{}{"value": "", "sortBy": "name", "limit": 101},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - limit below range",
			input:          map[string]interface{}{"value": "", "sortBy": "name", "limit": 0},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got cqrs.ListUsersPageQuery
			qrys := &mockUserQuerier{pageFn: func(q cqrs.ListUsersPageQuery) (*models.Page, error) {
				got = q
				next := "usr-002"
				return &models.Page{Items: []models.User{*testUser}, NextCursor: &next}, nil
			}}
			router := newTestRouter(&mockUserCommander{}, qrys, false)

			w := doRequest(router, http.MethodGet, queryURL("user.getAllPaged", tt.input), nil)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedStatus != http.StatusOK {
				return
			}
			tt.wantQuery.Actor = got.Actor
			assert.Equal(t, tt.wantQuery, got)
			assert.Equal(t, testActorID, got.Actor.UserID)
			assert.JSONEq(t, `{"items":[{"id":"usr-001","name":"Alice","email":"alice@example.com"}],"nextCursor":"usr-002"}`, w.Body.String())
		})
	}
}

func TestProcedureSearch(t *testing.T) {
	tests := []struct {
		name           string
		input          interface{}
		expectedStatus int
	}{
		{"success", map[string]interface{}{"value": "ali", "limit": 20}, http.StatusOK},
		{"bad request - limit missing", map[string]interface{}{"value": "ali"}, http.StatusBadRequest},
		{"bad request - limit above range", map[string]interface{}{"value": "ali", "limit": 500}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qrys := &mockUserQuerier{searchFn: func(q cqrs.SearchUsersQuery) ([]models.User, error) {
				return []models.User{*testUser}, nil
			}}
			router := newTestRouter(&mockUserCommander{}, qrys, false)
			w := doRequest(router, http.MethodGet, queryURL("user.search", tt.input), nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestProcedureUnauthorized(t *testing.T) {
	qrys := &mockUserQuerier{listFn: func(cqrs.ListUsersQuery) ([]models.User, error) {
		return nil, errs.ErrUnauthorized
	}}
	router := newTestRouter(&mockUserCommander{}, qrys, false)

	w := doRequest(router, http.MethodGet, "/rpc/user.getAll", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
