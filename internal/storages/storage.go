package storage

import (
	"context"
	"database/sql"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/practice-sem-2/mtp-service/internal/models"
)

// RecordStore is the persistence contract of the protocol engine. Users and
// messages are never removed, deletion is a field update of the record. A
// deleted record is final: updating it fails with the record's not-found error.
type RecordStore interface {
	GetUserByUUID(ctx context.Context, uuid string) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	AddUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error

	GetFlowByUUID(ctx context.Context, uuid string) (*models.FlowWithMembers, error)
	GetAllFlows(ctx context.Context) ([]models.FlowWithMembers, error)
	GetFlowsSince(ctx context.Context, since int64) ([]models.FlowWithMembers, error)
	AddFlow(ctx context.Context, flow *models.FlowWithMembers) error

	GetMessageByUUID(ctx context.Context, uuid string) (*models.Message, error)
	GetMessagesSince(ctx context.Context, since int64) ([]models.Message, error)
	CountFlowMessagesSince(ctx context.Context, flowUUID string, since int64) (uint64, error)
	GetFlowMessagesSince(ctx context.Context, flowUUID string, since int64, offset, limit uint64) ([]models.Message, error)
	AddMessage(ctx context.Context, message *models.Message) error
	UpdateMessage(ctx context.Context, message *models.Message) error

	Count(ctx context.Context) (*models.TableCount, error)
}

type AtomicFunc func(*PostgresStore) error

type Scope interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type PostgresStore struct {
	db       *sqlx.DB
	scope    Scope
	validate *validator.Validate
}

func NewPostgresStore(db *sqlx.DB, v *validator.Validate) *PostgresStore {
	return &PostgresStore{
		db:       db,
		scope:    db,
		validate: v,
	}
}

// Atomic runs fn against a store bound to a single transaction. Nested calls
// reuse the outer transaction.
func (s *PostgresStore) Atomic(ctx context.Context, fn AtomicFunc) (err error) {
	if _, inTx := s.scope.(*sqlx.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return writeError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("rollback caused by error: \"%w\" failed: %v", err, rbErr)
			}
		} else if cmErr := tx.Commit(); cmErr != nil {
			err = writeError(cmErr)
		}
	}()

	store := PostgresStore{
		db:       s.db,
		scope:    tx,
		validate: s.validate,
	}
	err = fn(&store)
	return err
}

func (s *PostgresStore) checkRecord(record interface{}) error {
	if s.validate == nil {
		return nil
	}
	if err := s.validate.Struct(record); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}
