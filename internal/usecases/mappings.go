package usecases

import (
	"github.com/practice-sem-2/mtp-service/internal/api"
	"github.com/practice-sem-2/mtp-service/internal/models"
)

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// UserToPublic keeps only the profile fields other users may see.
func UserToPublic(u *models.User) api.User {
	isBot := u.IsBot
	return api.User{
		UUID:     u.UUID,
		Username: value(u.Username),
		Bio:      value(u.Bio),
		Avatar:   u.Avatar,
		IsBot:    &isBot,
	}
}

func UsersToPublic(users []models.User) []api.User {
	result := make([]api.User, len(users))
	for i := range users {
		result[i] = UserToPublic(&users[i])
	}
	return result
}

func FlowToAPI(f *models.FlowWithMembers) api.Flow {
	members := make([]string, len(f.Members))
	copy(members, f.Members)
	return api.Flow{
		UUID:  f.UUID,
		Time:  f.TimeCreated,
		Type:  f.FlowType,
		Title: value(f.Title),
		Info:  value(f.Info),
		Owner: value(f.Owner),
		Users: members,
	}
}

func FlowsToAPI(flows []models.FlowWithMembers) []api.Flow {
	result := make([]api.Flow, len(flows))
	for i := range flows {
		result[i] = FlowToAPI(&flows[i])
	}
	return result
}

func MessageToAPI(m *models.Message) api.Message {
	edited := m.EditedStatus
	return api.Message{
		UUID:         m.UUID,
		Text:         value(m.Text),
		FromUser:     m.FromUser,
		FromFlow:     m.FromFlow,
		Time:         m.Time,
		FilePicture:  m.FilePicture,
		FileVideo:    m.FileVideo,
		FileAudio:    m.FileAudio,
		FileDocument: m.FileDocument,
		Emoji:        m.Emoji,
		EditedTime:   m.EditedTime,
		EditedStatus: &edited,
	}
}

func MessagesToAPI(messages []models.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i := range messages {
		result[i] = MessageToAPI(&messages[i])
	}
	return result
}

// SendMessageToModel builds the stored form of a message sent by sender.
func SendMessageToModel(uuid, sender string, time int64, m *api.Message) *models.Message {
	return &models.Message{
		UUID:         uuid,
		Text:         optional(m.Text),
		Time:         time,
		FromUser:     sender,
		FromFlow:     m.FromFlow,
		FilePicture:  m.FilePicture,
		FileVideo:    m.FileVideo,
		FileAudio:    m.FileAudio,
		FileDocument: m.FileDocument,
		Emoji:        m.Emoji,
	}
}
