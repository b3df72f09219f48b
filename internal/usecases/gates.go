package usecases

import (
	"context"
	"errors"
	storage "github.com/practice-sem-2/mtp-service/internal/storages"
)

const (
	ReasonNotAuthenticated = "User was not authenticated"
	ReasonAuthFailed       = "Authentication User failed"
	ReasonVerified         = "Authentication User has been verified"
)

// AcceptsVersion compares versions as plain strings, so "10.0" sorts before
// "2.0".
func AcceptsVersion(version, min, max string) bool {
	return min <= version && version <= max
}

type AuthResult struct {
	Authenticated bool
	Reason        string
}

// Authenticate checks authID against the token stored for the user with the
// given uuid.
func (e *Engine) Authenticate(ctx context.Context, uuid, authID string) AuthResult {
	if !ValidateUUID(uuid) {
		return AuthResult{Reason: ReasonNotAuthenticated}
	}

	user, err := e.store.GetUserByUUID(ctx, uuid)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.logger.WithError(err).Warn("can't load user for authentication")
		}
		return AuthResult{Reason: ReasonNotAuthenticated}
	}

	if user.Deleted || !e.creds.Verify(authID, user.AuthID) {
		return AuthResult{Reason: ReasonAuthFailed}
	}

	return AuthResult{Authenticated: true, Reason: ReasonVerified}
}
