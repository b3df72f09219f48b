package models

type TableCount struct {
	UserCount    int64 `db:"user_count" json:"user_count"`
	FlowCount    int64 `db:"flow_count" json:"flow_count"`
	MessageCount int64 `db:"message_count" json:"message_count"`
}
