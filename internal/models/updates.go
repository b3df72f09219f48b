package models

import "time"

type UpdateMeta struct {
	Timestamp time.Time
	Audience  []string
}

type FlowCreated struct {
	UpdateMeta
	FlowUUID string `validate:"required"`
	FlowType string `validate:"required"`
	Owner    string
	Members  []string
}

type MessageSent struct {
	UpdateMeta
	MessageUUID string `validate:"required"`
	FromUser    string `validate:"required"`
	FromFlow    string `validate:"required"`
	Text        string
}

type MessageEdited struct {
	UpdateMeta
	MessageUUID string `validate:"required"`
	FromFlow    string `validate:"required"`
	Text        string
}

type MessageDeleted struct {
	UpdateMeta
	MessageUUID string `validate:"required"`
	FromFlow    string `validate:"required"`
}

type UserDeleted struct {
	UpdateMeta
	UserUUID string `validate:"required"`
}
