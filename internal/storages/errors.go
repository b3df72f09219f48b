package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// Every error returned by a RecordStore wraps one of these kinds.
var (
	ErrNotFound   = errors.New("record not found")
	ErrReadAccess = errors.New("can't read from record store")
	ErrWrite      = errors.New("can't write to record store")
)

var (
	ErrUserNotFound    = fmt.Errorf("%w: user with provided uuid does not exist", ErrNotFound)
	ErrLoginNotFound   = fmt.Errorf("%w: user with provided login does not exist", ErrNotFound)
	ErrFlowNotFound    = fmt.Errorf("%w: flow with provided uuid does not exist", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("%w: message with provided uuid does not exist", ErrNotFound)

	ErrUserAlreadyExists    = fmt.Errorf("%w: user with provided uuid already exists", ErrWrite)
	ErrLoginAlreadyExists   = fmt.Errorf("%w: user with provided login already exists", ErrWrite)
	ErrFlowAlreadyExists    = fmt.Errorf("%w: flow with provided uuid already exists", ErrWrite)
	ErrMessageAlreadyExists = fmt.Errorf("%w: message with provided uuid already exists", ErrWrite)
	ErrMemberNotFound       = fmt.Errorf("%w: flow member is not a registered user", ErrWrite)
	ErrDuplicateMember      = fmt.Errorf("%w: flow member is listed twice", ErrWrite)
	ErrMissingFlow          = fmt.Errorf("%w: message refers to a missing flow", ErrWrite)
	ErrMissingSender        = fmt.Errorf("%w: message refers to a missing user", ErrWrite)
	ErrInvalidRecord        = fmt.Errorf("%w: record is invalid", ErrWrite)
)

func readError(err error, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return fmt.Errorf("%w: %v", ErrReadAccess, err)
}

func writeError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrWrite, err)
}
