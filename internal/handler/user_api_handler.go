package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/markwinap/t3-antd-postgress-template/internal/export"
	"github.com/markwinap/t3-antd-postgress-template/shared/cqrs"
	"github.com/markwinap/t3-antd-postgress-template/shared/errs"
	"github.com/markwinap/t3-antd-postgress-template/shared/middleware"
	"github.com/markwinap/t3-antd-postgress-template/shared/models"
)

const errOperationFailed = "User operation failed"

// UserAPIHandler serves the /api/user resource for external clients.
type UserAPIHandler struct {
	commands       UserCommander
	queries        UserQuerier
	collapseErrors bool
}

type DeleteUserRequest struct {
	ID string `json:"id"`
}

type UpdateUserRequest struct {
	ID   string           `json:"id"`
	Data models.UserPatch `json:"data"`
}

type CreateUserRequest struct {
	Data models.UserPatch `json:"data"`
}

// NewUserAPIHandler builds the handler. With collapseErrors set every failure
// is answered with the same 500 body regardless of its kind.
func NewUserAPIHandler(commands UserCommander, queries UserQuerier, collapseErrors bool) *UserAPIHandler {
	return &UserAPIHandler{commands: commands, queries: queries, collapseErrors: collapseErrors}
}

// Get returns one user when id is given, otherwise all users. A non-empty
// excel parameter switches the response to an xlsx attachment.
func (h *UserAPIHandler) Get(c *gin.Context) {
	actor := middleware.GetActor(c)
	excel := c.Query("excel") != ""

	if id := c.Query("id"); id != "" {
		user, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{Actor: actor, UserID: id})
		if err != nil {
			h.respondError(c, err)
			return
		}
		if !excel {
			c.JSON(http.StatusOK, user)
			return
		}
		var rows []models.User
		if user != nil {
			rows = append(rows, *user)
		}
		h.respondXLSX(c, rows)
		return
	}

	users, err := h.queries.ListUsers(c.Request.Context(), cqrs.ListUsersQuery{Actor: actor})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if excel {
		h.respondXLSX(c, users)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserAPIHandler) Delete(c *gin.Context) {
	var req DeleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errs.Invalid("body", err.Error(), "json"))
		return
	}
	if req.ID == "" {
		h.respondError(c, errs.Invalid("id", "This field is required", "required"))
		return
	}

	user, err := h.commands.DeleteUser(c.Request.Context(), cqrs.DeleteUserCommand{
		Actor:  middleware.GetActor(c),
		UserID: req.ID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Update writes exactly the fields present in data, empty strings included.
func (h *UserAPIHandler) Update(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errs.Invalid("body", err.Error(), "json"))
		return
	}
	if req.ID == "" {
		h.respondError(c, errs.Invalid("id", "This field is required", "required"))
		return
	}

	user, err := h.commands.UpdateUser(c.Request.Context(), cqrs.UpdateUserCommand{
		Actor:  middleware.GetActor(c),
		UserID: req.ID,
		Patch:  req.Data,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Create stores absent fields as empty strings.
func (h *UserAPIHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errs.Invalid("body", err.Error(), "json"))
		return
	}

	user, err := h.commands.CreateUser(c.Request.Context(), cqrs.CreateUserCommand{
		Actor: middleware.GetActor(c),
		Name:  req.Data.Name.Value,
		Email: req.Data.Email.Value,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserAPIHandler) respondXLSX(c *gin.Context, users []models.User) {
	data, err := export.UsersXLSX(users)
	if err != nil {
		h.respondError(c, fmt.Errorf("export users: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Data(http.StatusOK, export.ContentType, data)
}

// respondError logs the concrete error kind and answers without leaking
// internal detail.
func (h *UserAPIHandler) respondError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	log.Printf("[%s] %s /api/user failed: kind=%s err=%v", middleware.RequestID(c), c.Request.Method, kind, err)

	if h.collapseErrors {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errOperationFailed})
		return
	}
	switch kind {
	case errs.KindValidation:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user data"})
	case errs.KindNotFound:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errs.KindUnauthorized:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errOperationFailed})
	}
}
