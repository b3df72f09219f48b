package models

const DeletedText = "Message deleted"

type Message struct {
	UUID         string  `db:"uuid" validate:"required"`
	Text         *string `db:"text"`
	Time         int64   `db:"time"`
	FromUser     string  `db:"from_user" validate:"required"`
	FromFlow     string  `db:"from_flow" validate:"required"`
	FilePicture  []byte  `db:"file_picture"`
	FileVideo    []byte  `db:"file_video"`
	FileAudio    []byte  `db:"file_audio"`
	FileDocument []byte  `db:"file_document"`
	Emoji        []byte  `db:"emoji"`
	EditedTime   *int64  `db:"edited_time"`
	EditedStatus bool    `db:"edited_status"`
	Deleted      bool    `db:"deleted"`
}

// Edit replaces the text and marks the message as edited. EditedStatus never
// goes back to false.
func (m *Message) Edit(text *string, now int64) {
	m.Text = text
	m.EditedTime = &now
	m.EditedStatus = true
}

// Tombstone clears the message content but keeps the row.
func (m *Message) Tombstone(now int64) {
	text := DeletedText
	m.Edit(&text, now)
	m.FilePicture = []byte{}
	m.FileVideo = []byte{}
	m.FileAudio = []byte{}
	m.FileDocument = []byte{}
	m.Emoji = []byte{}
	m.Deleted = true
}
