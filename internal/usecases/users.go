package usecases

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/practice-sem-2/mtp-service/internal/api"
	"github.com/practice-sem-2/mtp-service/internal/catalog"
	"github.com/practice-sem-2/mtp-service/internal/models"
	storage "github.com/practice-sem-2/mtp-service/internal/storages"
	"strings"
)

const (
	detailUserRequired        = "User object is required"
	detailCredentialsRequired = "Login and password are required"
)

// issueToken derives a fresh auth token for identity.
func (e *Engine) issueToken(identity string) (string, error) {
	nonce, err := e.creds.NewSalt()
	if err != nil {
		return "", err
	}
	return e.creds.Token(identity, nonce)
}

func (e *Engine) registerUser(ctx context.Context, req *api.Request) *api.Response {
	in, ok := req.FirstUser()
	if !ok {
		return e.respond(req.Type, catalog.BadRequest, nil, detailUserRequired)
	}
	if in.Login == "" || in.Password == "" {
		return e.respond(req.Type, catalog.BadRequest, nil, detailCredentialsRequired)
	}

	existing, err := e.store.GetUserByLogin(ctx, in.Login)
	switch {
	case err == nil && !existing.Deleted:
		return e.respond(req.Type, catalog.Conflict, nil)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	salt, err := e.creds.NewSalt()
	if err != nil {
		return e.respond(req.Type, catalog.InternalServerError, nil, err.Error())
	}
	key, err := e.creds.NewKey()
	if err != nil {
		return e.respond(req.Type, catalog.InternalServerError, nil, err.Error())
	}
	digest, err := e.creds.Digest(in.Password, salt, key)
	if err != nil {
		return e.respond(req.Type, catalog.InternalServerError, nil, err.Error())
	}

	now := e.timestamp()
	user := models.User{
		UUID:         uuid.NewString(),
		Login:        in.Login,
		PasswordHash: digest,
		Username:     optional(in.Username),
		TokenTTL:     now,
		Email:        optional(in.Email),
		Avatar:       in.Avatar,
		Bio:          optional(in.Bio),
		Salt:         salt,
		Key:          key,
	}
	if in.IsBot != nil {
		user.IsBot = *in.IsBot
	}

	user.AuthID, err = e.issueToken(user.UUID)
	if err != nil {
		return e.respond(req.Type, catalog.InternalServerError, nil, err.Error())
	}

	if err = e.store.AddUser(ctx, &user); err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	return e.respond(req.Type, catalog.Created, &api.Data{
		Time: now,
		User: []api.User{{
			UUID:     user.UUID,
			Login:    user.Login,
			AuthID:   user.AuthID,
			TokenTTL: user.TokenTTL,
		}},
	})
}

// findByCredentials returns the live user whose login and password match.
func (e *Engine) findByCredentials(ctx context.Context, login, password string) (*models.User, error) {
	user, err := e.store.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if user.Deleted {
		return nil, storage.ErrLoginNotFound
	}

	digest, err := e.creds.Digest(password, user.Salt, user.Key)
	if err != nil {
		return nil, err
	}
	if !e.creds.Verify(digest, user.PasswordHash) {
		return user, errWrongPassword
	}
	return user, nil
}

var errWrongPassword = errors.New("password does not match")

func (e *Engine) authentication(ctx context.Context, req *api.Request) *api.Response {
	in, ok := req.FirstUser()
	if !ok {
		return e.respond(req.Type, catalog.BadRequest, nil, detailUserRequired)
	}
	if in.Login == "" || in.Password == "" {
		return e.respond(req.Type, catalog.BadRequest, nil, detailCredentialsRequired)
	}

	user, err := e.findByCredentials(ctx, in.Login, in.Password)
	switch {
	case errors.Is(err, errWrongPassword):
		return e.respond(req.Type, catalog.Unauthorized, nil, ReasonAuthFailed)
	case err != nil:
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	user.AuthID, err = e.issueToken(user.UUID)
	if err != nil {
		return e.respond(req.Type, catalog.InternalServerError, nil, err.Error())
	}
	user.TokenTTL = e.timestamp()

	if err = e.store.UpdateUser(ctx, user); err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	return e.respond(req.Type, catalog.OK, &api.Data{
		Time: user.TokenTTL,
		User: []api.User{{
			UUID:     user.UUID,
			Login:    user.Login,
			AuthID:   user.AuthID,
			TokenTTL: user.TokenTTL,
		}},
	})
}

// userInfo treats the first listed user as the caller and returns profiles of
// the rest. A failed lookup is reported but the remaining users are still
// returned.
func (e *Engine) userInfo(ctx context.Context, req *api.Request) *api.Response {
	if _, ok := req.FirstUser(); !ok {
		return e.respond(req.Type, catalog.BadRequest, nil, detailUserRequired)
	}
	requested := req.Data.User[1:]

	if len(requested) > e.cfg.UsersLimit {
		return e.respond(req.Type, catalog.TooManyRequests, nil,
			fmt.Sprintf("Requested more users than server limit (%d), the caller is not counted", e.cfg.UsersLimit))
	}

	found := make([]api.User, 0, len(requested))
	failed := make([]string, 0)
	for _, r := range requested {
		user, err := e.store.GetUserByUUID(ctx, r.UUID)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				e.logger.WithError(err).WithField("user", r.UUID).Warn("can't load user profile")
			}
			failed = append(failed, r.UUID)
			continue
		}
		found = append(found, UserToPublic(user))
	}

	data := &api.Data{Time: e.timestamp(), User: found}
	if len(failed) > 0 {
		return e.respond(req.Type, catalog.UnknownError, data,
			"Can't load users: "+strings.Join(failed, ", "))
	}
	return e.respond(req.Type, catalog.OK, data)
}

func (e *Engine) deleteUser(ctx context.Context, req *api.Request) *api.Response {
	in, ok := req.FirstUser()
	if !ok {
		return e.respond(req.Type, catalog.BadRequest, nil, detailUserRequired)
	}
	if in.Login == "" || in.Password == "" {
		return e.respond(req.Type, catalog.BadRequest, nil, detailCredentialsRequired)
	}

	user, err := e.findByCredentials(ctx, in.Login, in.Password)
	switch {
	case errors.Is(err, errWrongPassword):
		return e.respond(req.Type, catalog.NotFound, nil, "Login or password is wrong")
	case err != nil:
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	filler, err := e.issueToken(user.UUID)
	if err != nil {
		return e.respond(req.Type, catalog.InternalServerError, nil, err.Error())
	}
	user.Tombstone(filler)

	if err = e.store.UpdateUser(ctx, user); err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	now := e.timestamp()
	e.publish(storage.KindUserDeleted, func() error {
		return e.updates.UserDeleted(&models.UserDeleted{
			UpdateMeta: e.meta(now, []string{user.UUID}),
			UserUUID:   user.UUID,
		})
	})

	return e.respond(req.Type, catalog.OK, &api.Data{
		Time: now,
		User: []api.User{{UUID: user.UUID}},
	})
}
