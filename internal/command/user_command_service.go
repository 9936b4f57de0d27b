package command

import (
	"context"
	"log"

	"github.com/markwinap/t3-antd-postgress-template/shared/cqrs"
	"github.com/markwinap/t3-antd-postgress-template/shared/errs"
	"github.com/markwinap/t3-antd-postgress-template/shared/events"
	"github.com/markwinap/t3-antd-postgress-template/shared/models"
)

// UserWriter is the store-facing write side.
type UserWriter interface {
	Create(ctx context.Context, user models.NewUser) (*models.User, error)
	CreateMany(ctx context.Context, users []models.NewUser) (int64, error)
	Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id string) (*models.User, error)
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

// ViewCache keeps cached user views consistent with writes: created and
// updated rows are written through, deleted ones are invalidated.
type ViewCache interface {
	CacheUser(ctx context.Context, user *models.User)
	InvalidateUsers(ctx context.Context, ids ...string)
}

type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType, actorID string, data any) error
}

// UserCommandService writes user state to PostgreSQL, keeps the cached views
// current and announces every change on the user event stream.
type UserCommandService struct {
	writeRepo UserWriter
	views     ViewCache
	publisher EventPublisher
}

// NewUserCommandService accepts a nil publisher, which disables events.
func NewUserCommandService(writeRepo UserWriter, views ViewCache, publisher EventPublisher) *UserCommandService {
	return &UserCommandService{
		writeRepo: writeRepo,
		views:     views,
		publisher: publisher,
	}
}

func (s *UserCommandService) CreateUser(ctx context.Context, cmd cqrs.CreateUserCommand) (*models.User, error) {
	if !cmd.Actor.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	user, err := s.writeRepo.Create(ctx, models.NewUser{Name: cmd.Name, Email: cmd.Email})
	if err != nil {
		return nil, err
	}
	s.views.CacheUser(ctx, user)
	s.publish(ctx, cmd.Actor, events.UserCreated, events.UserCreatedEvent{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	})
	return user, nil
}

// CreateUsers is all-or-nothing: either every user is inserted or none is.
func (s *UserCommandService) CreateUsers(ctx context.Context, cmd cqrs.CreateUsersCommand) (int64, error) {
	if !cmd.Actor.Authenticated() {
		return 0, errs.ErrUnauthorized
	}
	count, err := s.writeRepo.CreateMany(ctx, cmd.Users)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.publish(ctx, cmd.Actor, events.UsersCreated, events.UsersCreatedEvent{Count: count})
	}
	return count, nil
}

func (s *UserCommandService) UpdateUser(ctx context.Context, cmd cqrs.UpdateUserCommand) (*models.User, error) {
	if !cmd.Actor.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	user, err := s.writeRepo.Update(ctx, cmd.UserID, cmd.Patch)
	if err != nil {
		return nil, err
	}
	if cmd.Patch.Empty() {
		return user, nil
	}
	s.views.CacheUser(ctx, user)
	s.publish(ctx, cmd.Actor, events.UserUpdated, events.UserUpdatedEvent{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Changed: changedFields(cmd.Patch),
	})
	return user, nil
}

func (s *UserCommandService) DeleteUser(ctx context.Context, cmd cqrs.DeleteUserCommand) (*models.User, error) {
	if !cmd.Actor.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	user, err := s.writeRepo.Delete(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	s.views.InvalidateUsers(ctx, user.ID)
	s.publish(ctx, cmd.Actor, events.UserDeleted, events.UserDeletedEvent{UserID: user.ID})
	return user, nil
}

// DeleteUsers ignores ids that do not exist; the count reflects rows removed.
func (s *UserCommandService) DeleteUsers(ctx context.Context, cmd cqrs.DeleteUsersCommand) (int64, error) {
	if !cmd.Actor.Authenticated() {
		return 0, errs.ErrUnauthorized
	}
	count, err := s.writeRepo.DeleteMany(ctx, cmd.UserIDs)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.views.InvalidateUsers(ctx, cmd.UserIDs...)
		s.publish(ctx, cmd.Actor, events.UsersDeleted, events.UsersDeletedEvent{
			UserIDs: cmd.UserIDs,
			Count:   count,
		})
	}
	return count, nil
}

// publish is best-effort: the write already succeeded.
func (s *UserCommandService) publish(ctx context.Context, actor models.Actor, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.UserEventsStream, eventType, actor.UserID, data); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

func changedFields(p models.UserPatch) []string {
	var fields []string
	if p.Name.Set {
		fields = append(fields, "name")
	}
	if p.Email.Set {
		fields = append(fields, "email")
	}
	return fields
}
