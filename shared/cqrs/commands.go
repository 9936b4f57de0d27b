package cqrs

import "github.com/markwinap/t3-antd-postgress-template/shared/models"

type CreateUserCommand struct {
	Actor models.Actor
	Name  string
	Email string
}

// CreateUsersCommand inserts every user or none of them.
type CreateUsersCommand struct {
	Actor models.Actor
	Users []models.NewUser
}

type UpdateUserCommand struct {
	Actor  models.Actor
	UserID string
	Patch  models.UserPatch
}

type DeleteUserCommand struct {
	Actor  models.Actor
	UserID string
}

// DeleteUsersCommand removes the listed ids; unknown ids are ignored.
type DeleteUsersCommand struct {
	Actor   models.Actor
	UserIDs []string
}
