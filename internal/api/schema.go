// Package api describes the MTP wire format: the request and response
// envelopes and the objects carried in their data section.
package api

import "encoding/json"

const (
	// Version and Revision are advertised in every response.
	Version  = "1.0"
	Revision = "17"

	// ErrorType replaces the echoed request type when the payload could not
	// be parsed at all.
	ErrorType = "error"
)

type VersionInfo struct {
	Version  string `json:"version" validate:"required"`
	Revision string `json:"revision,omitempty"`
}

type User struct {
	UUID     string `json:"uuid,omitempty"`
	Login    string `json:"login,omitempty"`
	Password string `json:"password,omitempty"`
	Username string `json:"username,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Avatar   []byte `json:"avatar,omitempty"`
	IsBot    *bool  `json:"is_bot,omitempty"`
	AuthID   string `json:"auth_id,omitempty"`
	TokenTTL int64  `json:"token_ttl,omitempty"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

type Flow struct {
	UUID         string   `json:"uuid,omitempty"`
	Time         int64    `json:"time,omitempty"`
	Type         string   `json:"type,omitempty"`
	Title        string   `json:"title,omitempty"`
	Info         string   `json:"info,omitempty"`
	Owner        string   `json:"owner,omitempty"`
	Users        []string `json:"users,omitempty"`
	MessageStart *int64   `json:"message_start,omitempty" validate:"omitempty,min=0"`
	MessageEnd   *int64   `json:"message_end,omitempty" validate:"omitempty,min=0"`
}

type Message struct {
	UUID         string `json:"uuid,omitempty"`
	ClientID     *int64 `json:"client_id,omitempty"`
	Text         string `json:"text,omitempty"`
	FromUser     string `json:"from_user,omitempty"`
	FromFlow     string `json:"from_flow,omitempty"`
	Time         int64  `json:"time,omitempty"`
	FilePicture  []byte `json:"file_picture,omitempty"`
	FileVideo    []byte `json:"file_video,omitempty"`
	FileAudio    []byte `json:"file_audio,omitempty"`
	FileDocument []byte `json:"file_document,omitempty"`
	Emoji        []byte `json:"emoji,omitempty"`
	EditedTime   *int64 `json:"edited_time,omitempty"`
	EditedStatus *bool  `json:"edited_status,omitempty"`
}

type Data struct {
	Time    int64           `json:"time"`
	User    []User          `json:"user,omitempty" validate:"omitempty,dive"`
	Flow    []Flow          `json:"flow,omitempty" validate:"omitempty,dive"`
	Message []Message       `json:"message,omitempty" validate:"omitempty,dive"`
	Meta    json.RawMessage `json:"meta,omitempty"`
}

// Errors is the status block every response carries, successful ones included.
type Errors struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Time   int64  `json:"time"`
	Detail string `json:"detail"`
}

type Request struct {
	Type    string          `json:"type" validate:"required"`
	Data    *Data           `json:"data,omitempty"`
	Errors  *Errors         `json:"errors,omitempty"`
	JSONAPI *VersionInfo    `json:"jsonapi" validate:"required"`
	Meta    json.RawMessage `json:"meta,omitempty"`
}

type Response struct {
	Type    string      `json:"type"`
	Data    *Data       `json:"data"`
	Errors  Errors      `json:"errors"`
	JSONAPI VersionInfo `json:"jsonapi"`
}

// ServerVersion is the jsonapi block of every response.
func ServerVersion() VersionInfo {
	return VersionInfo{Version: Version, Revision: Revision}
}

// Caller returns the identity the client presents in data.user[0].
func (r *Request) Caller() (uuid, authID string) {
	if u, ok := r.FirstUser(); ok {
		return u.UUID, u.AuthID
	}
	return "", ""
}

func (r *Request) FirstUser() (*User, bool) {
	if r.Data == nil || len(r.Data.User) == 0 {
		return nil, false
	}
	return &r.Data.User[0], true
}

func (r *Request) FirstFlow() (*Flow, bool) {
	if r.Data == nil || len(r.Data.Flow) == 0 {
		return nil, false
	}
	return &r.Data.Flow[0], true
}

func (r *Request) FirstMessage() (*Message, bool) {
	if r.Data == nil || len(r.Data.Message) == 0 {
		return nil, false
	}
	return &r.Data.Message[0], true
}

// Since is the time cursor of update and pagination queries.
func (r *Request) Since() int64 {
	if r.Data == nil {
		return 0
	}
	return r.Data.Time
}
