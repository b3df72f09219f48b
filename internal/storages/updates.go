package storage

import (
	"fmt"
	"github.com/Shopify/sarama"
	"github.com/go-playground/validator/v10"
	"github.com/practice-sem-2/mtp-service/internal/models"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"time"
)

// Update kinds carried in the "kind" field of every published event.
const (
	KindFlowCreated    = "flow_created"
	KindMessageSent    = "message_sent"
	KindMessageEdited  = "message_edited"
	KindMessageDeleted = "message_deleted"
	KindUserDeleted    = "user_deleted"
)

// UpdatesPublisher announces committed changes to other services.
type UpdatesPublisher interface {
	FlowCreated(update *models.FlowCreated) error
	MessageSent(update *models.MessageSent) error
	MessageEdited(update *models.MessageEdited) error
	MessageDeleted(update *models.MessageDeleted) error
	UserDeleted(update *models.UserDeleted) error
}

type UpdatesStorage struct {
	cfg      *UpdatesStoreConfig
	producer sarama.SyncProducer
	validate *validator.Validate
}

type UpdatesStoreConfig struct {
	UpdatesTopic string
}

func NewUpdatesStore(p sarama.SyncProducer, v *validator.Validate, cfg *UpdatesStoreConfig) *UpdatesStorage {
	return &UpdatesStorage{
		producer: p,
		validate: v,
		cfg:      cfg,
	}
}

func (s *UpdatesStorage) putUpdate(key string, event *structpb.Struct) error {
	bytes, err := proto.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.cfg.UpdatesTopic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(bytes),
	})

	return err
}

func (s *UpdatesStorage) check(update interface{}) error {
	if s.validate == nil {
		return nil
	}
	if err := s.validate.Struct(update); err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}
	return nil
}

func stringList(values []string) []interface{} {
	list := make([]interface{}, len(values))
	for i, v := range values {
		list[i] = v
	}
	return list
}

func toProtobuf(kind string, meta models.UpdateMeta, body map[string]interface{}) (*structpb.Struct, error) {
	timestamp := meta.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return structpb.NewStruct(map[string]interface{}{
		"kind": kind,
		"meta": map[string]interface{}{
			"timestamp": timestamp.UTC().Unix(),
			"audience":  stringList(meta.Audience),
		},
		"update": body,
	})
}

func (s *UpdatesStorage) flowCreatedToProtobuf(flow *models.FlowCreated) (*structpb.Struct, error) {
	return toProtobuf(KindFlowCreated, flow.UpdateMeta, map[string]interface{}{
		"flow_uuid": flow.FlowUUID,
		"flow_type": flow.FlowType,
		"owner":     flow.Owner,
		"members":   stringList(flow.Members),
	})
}

func (s *UpdatesStorage) messageSentToProtobuf(msg *models.MessageSent) (*structpb.Struct, error) {
	return toProtobuf(KindMessageSent, msg.UpdateMeta, map[string]interface{}{
		"message_uuid": msg.MessageUUID,
		"from_user":    msg.FromUser,
		"from_flow":    msg.FromFlow,
		"text":         msg.Text,
	})
}

func (s *UpdatesStorage) messageEditedToProtobuf(msg *models.MessageEdited) (*structpb.Struct, error) {
	return toProtobuf(KindMessageEdited, msg.UpdateMeta, map[string]interface{}{
		"message_uuid": msg.MessageUUID,
		"from_flow":    msg.FromFlow,
		"text":         msg.Text,
	})
}

func (s *UpdatesStorage) messageDeletedToProtobuf(msg *models.MessageDeleted) (*structpb.Struct, error) {
	return toProtobuf(KindMessageDeleted, msg.UpdateMeta, map[string]interface{}{
		"message_uuid": msg.MessageUUID,
		"from_flow":    msg.FromFlow,
	})
}

func (s *UpdatesStorage) userDeletedToProtobuf(user *models.UserDeleted) (*structpb.Struct, error) {
	return toProtobuf(KindUserDeleted, user.UpdateMeta, map[string]interface{}{
		"user_uuid": user.UserUUID,
	})
}

func (s *UpdatesStorage) FlowCreated(flow *models.FlowCreated) error {
	if err := s.check(flow); err != nil {
		return err
	}
	update, err := s.flowCreatedToProtobuf(flow)
	if err != nil {
		return err
	}
	return s.putUpdate(flow.FlowUUID, update)
}

func (s *UpdatesStorage) MessageSent(msg *models.MessageSent) error {
	if err := s.check(msg); err != nil {
		return err
	}
	update, err := s.messageSentToProtobuf(msg)
	if err != nil {
		return err
	}
	return s.putUpdate(msg.FromFlow, update)
}

func (s *UpdatesStorage) MessageEdited(msg *models.MessageEdited) error {
	if err := s.check(msg); err != nil {
		return err
	}
	update, err := s.messageEditedToProtobuf(msg)
	if err != nil {
		return err
	}
	return s.putUpdate(msg.FromFlow, update)
}

func (s *UpdatesStorage) MessageDeleted(msg *models.MessageDeleted) error {
	if err := s.check(msg); err != nil {
		return err
	}
	update, err := s.messageDeletedToProtobuf(msg)
	if err != nil {
		return err
	}
	return s.putUpdate(msg.FromFlow, update)
}

func (s *UpdatesStorage) UserDeleted(user *models.UserDeleted) error {
	if err := s.check(user); err != nil {
		return err
	}
	update, err := s.userDeletedToProtobuf(user)
	if err != nil {
		return err
	}
	return s.putUpdate(user.UserUUID, update)
}

// NopUpdates drops every update. It is used when no broker is configured.
type NopUpdates struct{}

func (NopUpdates) FlowCreated(*models.FlowCreated) error       { return nil }
func (NopUpdates) MessageSent(*models.MessageSent) error       { return nil }
func (NopUpdates) MessageEdited(*models.MessageEdited) error   { return nil }
func (NopUpdates) MessageDeleted(*models.MessageDeleted) error { return nil }
func (NopUpdates) UserDeleted(*models.UserDeleted) error       { return nil }
