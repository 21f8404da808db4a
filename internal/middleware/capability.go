package middleware

import (
	"context"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextUser holds the *entity.User loaded by Admin or Creator.
const ContextUser = "user"

// Capability is one predicate of an access pipeline. A non-nil error stops
// the request with the status MapErrorToStatus gives it.
type Capability func(c *gin.Context) error

// Require runs caps in order and aborts on the first failure.
func Require(caps ...Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, capability := range caps {
			if err := capability(c); err != nil {
				response.ResponseError(c, err)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// Authenticated expects RequireAuth or OptionalAuth to have run.
func Authenticated(c *gin.Context) error {
	_, err := response.GetUserID(c)
	return err
}

type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type VideoLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error)
}

type CommentLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error)
}

// Guard builds the capabilities that need storage. Role flags are read
// from the database, never from the token snapshot.
type Guard struct {
	users    UserLookup
	videos   VideoLookup
	comments CommentLookup
}

func NewGuard(users UserLookup, videos VideoLookup, comments CommentLookup) *Guard {
	return &Guard{users: users, videos: videos, comments: comments}
}

func (g *Guard) currentUser(c *gin.Context) (*entity.User, error) {
	if u, ok := c.Get(ContextUser); ok {
		if user, ok := u.(*entity.User); ok {
			return user, nil
		}
	}

	id, err := response.GetUserID(c)
	if err != nil {
		return nil, err
	}
	user, err := g.users.FindByID(c.Request.Context(), id)
	if err != nil {
		// a token for a deleted account
		return nil, apperror.Wrap(apperror.ErrUnauthorized, "user not found")
	}
	c.Set(ContextUser, user)
	return user, nil
}

func (g *Guard) Admin() Capability {
	return func(c *gin.Context) error {
		user, err := g.currentUser(c)
		if err != nil {
			return err
		}
		if !user.IsAdmin {
			return apperror.Wrap(apperror.ErrForbidden, "admin access required")
		}
		return nil
	}
}

func (g *Guard) Creator() Capability {
	return func(c *gin.Context) error {
		user, err := g.currentUser(c)
		if err != nil {
			return err
		}
		if !user.IsCreator {
			return apperror.Wrap(apperror.ErrForbidden, "activate your channel before uploading")
		}
		return nil
	}
}

// OwnsVideo checks the video named by param exists, then that the caller
// uploaded it.
func (g *Guard) OwnsVideo(param string) Capability {
	return func(c *gin.Context) error {
		return owns(c, param, func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
			v, err := g.videos.FindByID(ctx, id)
			if err != nil {
				return uuid.Nil, err
			}
			return v.UserID, nil
		}, "you can only modify your own videos")
	}
}

func (g *Guard) OwnsComment(param string) Capability {
	return func(c *gin.Context) error {
		return owns(c, param, func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
			cm, err := g.comments.FindByID(ctx, id)
			if err != nil {
				return uuid.Nil, err
			}
			return cm.UserID, nil
		}, "you can only modify your own comments")
	}
}

func owns(c *gin.Context, param string, ownerOf func(context.Context, uuid.UUID) (uuid.UUID, error), denied string) error {
	userID, err := response.GetUserID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return apperror.Wrap(apperror.ErrBadRequest, "invalid "+param)
	}

	owner, err := ownerOf(c.Request.Context(), id)
	if err != nil {
		return err
	}
	if owner != userID {
		return apperror.Wrap(apperror.ErrForbidden, denied)
	}
	return nil
}
