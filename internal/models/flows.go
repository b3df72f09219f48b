package models

type FlowType string

const (
	FlowChat    FlowType = "chat"
	FlowGroup   FlowType = "group"
	FlowChannel FlowType = "channel"
)

// ChatMembers is the exact member count of a chat flow.
const ChatMembers = 2

func (t FlowType) Valid() bool {
	switch t {
	case FlowChat, FlowGroup, FlowChannel:
		return true
	}
	return false
}

type Flow struct {
	UUID        string  `db:"uuid" validate:"required"`
	TimeCreated int64   `db:"time_created"`
	FlowType    string  `db:"flow_type" validate:"oneof=chat group channel"`
	Title       *string `db:"title"`
	Info        *string `db:"info"`
	Owner       *string `db:"owner"`
}

type FlowMember struct {
	FlowUUID string `db:"flow_uuid"`
	UserUUID string `db:"user_uuid"`
}

type FlowWithMembers struct {
	Flow
	Members []string
}
