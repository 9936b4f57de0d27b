package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/markwinap/t3-antd-postgress-template/shared/cqrs"
	"github.com/markwinap/t3-antd-postgress-template/shared/errs"
	"github.com/markwinap/t3-antd-postgress-template/shared/middleware"
	"github.com/markwinap/t3-antd-postgress-template/shared/models"
)

// ProcedureHandler serves the typed procedure surface used by the web client.
// Queries read their input from the JSON-encoded "input" query parameter,
// mutations from the request body.
type ProcedureHandler struct {
	commands UserCommander
	queries  UserQuerier
}

type UserInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

type UpdateUserInput struct {
	ID   string           `json:"id" validate:"required"`
	Data models.UserPatch `json:"data"`
}

type GetAllPagedInput struct {
	Value  string  `json:"value"`
	Limit  *int    `json:"limit" validate:"omitempty,gte=1,lte=100"`
	SortBy string  `json:"sortBy"`
	Cursor *string `json:"cursor"`
}

type SearchInput struct {
	Value string `json:"value"`
	Limit int    `json:"limit" validate:"gte=1,lte=100"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

var errMissingInput = errors.New("missing input")

func NewProcedureHandler(commands UserCommander, queries UserQuerier) *ProcedureHandler {
	return &ProcedureHandler{commands: commands, queries: queries}
}

func (h *ProcedureHandler) Create(c *gin.Context) {
	var in UserInput
	if !bindInput(c, &in) {
		return
	}
	if verr := middleware.ValidateRequest(in); verr != nil {
		middleware.RespondWithValidationError(c, verr)
		return
	}

	user, err := h.commands.CreateUser(c.Request.Context(), cqrs.CreateUserCommand{
		Actor: middleware.GetActor(c),
		Name:  in.Name,
		Email: in.Email,
	})
	if err != nil {
		respondProcedureError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *ProcedureHandler) CreateBatch(c *gin.Context) {
	var in []UserInput
	if !bindInput(c, &in) {
		return
	}

	users := make([]models.NewUser, 0, len(in))
	verr := &errs.ValidationError{}
	for i, item := range in {
		if itemErr := middleware.ValidateRequest(item); itemErr != nil {
			for _, f := range itemErr.Fields {
				f.Field = fmt.Sprintf("[%d].%s", i, f.Field)
				verr.Fields = append(verr.Fields, f)
			}
			continue
		}
		users = append(users, models.NewUser{Name: item.Name, Email: item.Email})
	}
	if len(verr.Fields) > 0 {
		middleware.RespondWithValidationError(c, verr)
		return
	}

	count, err := h.commands.CreateUsers(c.Request.Context(), cqrs.CreateUsersCommand{
		Actor: middleware.GetActor(c),
		Users: users,
	})
	if err != nil {
		respondProcedureError(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: count})
}

func (h *ProcedureHandler) Update(c *gin.Context) {
	var in UpdateUserInput
	if !bindInput(c, &in) {
		return
	}
	if verr := validateUpdate(in); verr != nil {
		middleware.RespondWithValidationError(c, verr)
		return
	}

	user, err := h.commands.UpdateUser(c.Request.Context(), cqrs.UpdateUserCommand{
		Actor:  middleware.GetActor(c),
		UserID: in.ID,
		Patch:  in.Data,
	})
	if err != nil {
		respondProcedureError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// validateUpdate rejects an explicitly supplied empty name or email, the same
// rule create applies to its required fields.
func validateUpdate(in UpdateUserInput) *errs.ValidationError {
	verr := middleware.ValidateRequest(in)
	if verr == nil {
		verr = &errs.ValidationError{}
	}
	if in.Data.Name.Set && in.Data.Name.Value == "" {
		verr.Fields = append(verr.Fields, errs.FieldError{Field: "Name", Message: "This field is required", Type: "required"})
	}
	if in.Data.Email.Set && in.Data.Email.Value == "" {
		verr.Fields = append(verr.Fields, errs.FieldError{Field: "Email", Message: "This field is required", Type: "required"})
	}
	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func (h *ProcedureHandler) Delete(c *gin.Context) {
	var id string
	if !bindInput(c, &id) || !requireID(c, id) {
		return
	}

	user, err := h.commands.DeleteUser(c.Request.Context(), cqrs.DeleteUserCommand{
		Actor:  middleware.GetActor(c),
		UserID: id,
	})
	if err != nil {
		respondProcedureError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *ProcedureHandler) DeleteBatch(c *gin.Context) {
	var ids []string
	if !bindInput(c, &ids) {
		return
	}

	count, err := h.commands.DeleteUsers(c.Request.Context(), cqrs.DeleteUsersCommand{
		Actor:   middleware.GetActor(c),
		UserIDs: ids,
	})
	if err != nil {
		respondProcedureError(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: count})
}

func (h *ProcedureHandler) GetAll(c *gin.Context) {
	users, err := h.queries.ListUsers(c.Request.Context(), cqrs.ListUsersQuery{Actor: middleware.GetActor(c)})
	if err != nil {
		respondProcedureError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *ProcedureHandler) GetAllPaged(c *gin.Context) {
	var in GetAllPagedInput
	if !bindInput(c, &in) {
		return
	}
	if verr := middleware.ValidateRequest(in); verr != nil {
		middleware.RespondWithValidationError(c, verr)
		return
	}

	q := cqrs.ListUsersPageQuery{
		Actor:  middleware.GetActor(c),
		Value:  in.Value,
		SortBy: in.SortBy,
	}
	if in.Limit != nil {
		q.Limit = *in.Limit
	}
	if in.Cursor != nil {
		q.Cursor = *in.Cursor
	}

	page, err := h.queries.ListUsersPage(c.Request.Context(), q)
	if err != nil {
		respondProcedureError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ProcedureHandler) Search(c *gin.Context) {
	var in SearchInput
	if !bindInput(c, &in) {
		return
	}
	if verr := middleware.ValidateRequest(in); verr != nil {
		middleware.RespondWithValidationError(c, verr)
		return
	}

	users, err := h.queries.SearchUsers(c.Request.Context(), cqrs.SearchUsersQuery{
		Actor: middleware.GetActor(c),
		Value: in.Value,
		Limit: in.Limit,
	})
	if err != nil {
		respondProcedureError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetByID answers null, not 404, for an unknown id.
func (h *ProcedureHandler) GetByID(c *gin.Context) {
	var id string
	if !bindInput(c, &id) || !requireID(c, id) {
		return
	}

	user, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{
		Actor:  middleware.GetActor(c),
		UserID: id,
	})
	if err != nil {
		respondProcedureError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// bindInput decodes the procedure input into dst and writes a 400 on failure.
func bindInput(c *gin.Context, dst any) bool {
	var err error
	if c.Request.Method == http.MethodGet {
		raw := c.Query("input")
		if raw == "" {
			err = errMissingInput
		} else {
			err = json.Unmarshal([]byte(raw), dst)
		}
	} else {
		err = c.ShouldBindJSON(dst)
	}
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func requireID(c *gin.Context, id string) bool {
	if id != "" {
		return true
	}
	middleware.RespondWithValidationError(c, errs.Invalid("id", "This field is required", "required"))
	return false
}

func respondProcedureError(c *gin.Context, err error) {
	switch kind := errs.KindOf(err); kind {
	case errs.KindValidation:
		var verr *errs.ValidationError
		errors.As(err, &verr)
		middleware.RespondWithValidationError(c, verr)
	case errs.KindUnauthorized:
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
	case errs.KindNotFound:
		middleware.RespondWithError(c, http.StatusNotFound, "User not found")
	default:
		log.Printf("[%s] %s failed: kind=%s err=%v", middleware.RequestID(c), c.FullPath(), kind, err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "User operation failed")
	}
}
