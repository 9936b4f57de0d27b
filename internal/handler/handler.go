package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/markwinap/t3-antd-postgress-template/shared/cqrs"
	"github.com/markwinap/t3-antd-postgress-template/shared/models"
)

// UserCommander defines the write-side operations used by the handlers.
type UserCommander interface {
	CreateUser(context.Context, cqrs.CreateUserCommand) (*models.User, error)
	CreateUsers(context.Context, cqrs.CreateUsersCommand) (int64, error)
	UpdateUser(context.Context, cqrs.UpdateUserCommand) (*models.User, error)
	DeleteUser(context.Context, cqrs.DeleteUserCommand) (*models.User, error)
	DeleteUsers(context.Context, cqrs.DeleteUsersCommand) (int64, error)
}

// UserQuerier defines the read-side operations used by the handlers.
type UserQuerier interface {
	GetUser(context.Context, cqrs.GetUserQuery) (*models.User, error)
	ListUsers(context.Context, cqrs.ListUsersQuery) ([]models.User, error)
	SearchUsers(context.Context, cqrs.SearchUsersQuery) ([]models.User, error)
	ListUsersPage(context.Context, cqrs.ListUsersPageQuery) (*models.Page, error)
}

// RegisterRoutes mounts the procedure surface under /rpc and the resource
// endpoint at /api/user, both behind auth.
func RegisterRoutes(r gin.IRouter, procedures *ProcedureHandler, api *UserAPIHandler, auth gin.HandlerFunc) {
	rpc := r.Group("/rpc", auth)
	{
		rpc.POST("/user.create", procedures.Create)
		rpc.POST("/user.createBatch", procedures.CreateBatch)
		rpc.POST("/user.update", procedures.Update)
		rpc.POST("/user.delete", procedures.Delete)
		rpc.POST("/user.deleteBatch", procedures.DeleteBatch)
		rpc.GET("/user.getAll", procedures.GetAll)
		rpc.GET("/user.getAllPaged", procedures.GetAllPaged)
		rpc.GET("/user.search", procedures.Search)
		rpc.GET("/user.getById", procedures.GetByID)
	}

	users := r.Group("/api/user", auth)
	{
		users.GET("", api.Get)
		users.DELETE("", api.Delete)
		users.PUT("", api.Update)
		users.POST("", api.Create)
	}
}
