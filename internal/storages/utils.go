package storage

import (
	"errors"
	"github.com/jackc/pgconn"
)

const (
	UsersPrimaryKey            = "users_pkey"
	UsersLiveLoginKey          = "users_live_login_key"
	FlowsPrimaryKey            = "flows_pkey"
	FlowMembersPrimaryKey      = "flow_members_pkey"
	FlowMembersUserForeignKey  = "flow_members_user_uuid_fkey"
	MessagesPrimaryKey         = "messages_pkey"
	MessagesFromFlowForeignKey = "messages_from_flow_fkey"
	MessagesFromUserForeignKey = "messages_from_user_fkey"
)

func GetPgxConstraintName(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}

	return pgErr.ConstraintName
}

// mapConstraint translates a constraint violation into one of the write
// errors. Anything unrecognised is still reported as a write failure.
func mapConstraint(err error, known map[string]error) error {
	if err == nil {
		return nil
	}
	if mapped, ok := known[GetPgxConstraintName(err)]; ok {
		return mapped
	}
	return writeError(err)
}
