package storage

import (
	"context"
	sq "github.com/Masterminds/squirrel"
	"github.com/practice-sem-2/mtp-service/internal/models"
)

var messageColumns = []string{
	"uuid", "text", "time", "from_user", "from_flow",
	"file_picture", "file_video", "file_audio", "file_document", "emoji",
	"edited_time", "edited_status", "deleted",
}

var messageConstraints = map[string]error{
	MessagesPrimaryKey:         ErrMessageAlreadyExists,
	MessagesFromFlowForeignKey: ErrMissingFlow,
	MessagesFromUserForeignKey: ErrMissingSender,
}

type SelectOptions struct {
	Offset uint64
	Limit  uint64
}

func (s *PostgresStore) GetMessageByUUID(ctx context.Context, uuid string) (*models.Message, error) {
	query, args, err := sq.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"uuid": uuid}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	msg := models.Message{}
	if err = s.scope.GetContext(ctx, &msg, query, args...); err != nil {
		return nil, readError(err, ErrMessageNotFound)
	}
	return &msg, nil
}

func (s *PostgresStore) GetMessagesSince(ctx context.Context, since int64) ([]models.Message, error) {
	return s.SelectMessages(ctx, sq.GtOrEq{"time": since})
}

func (s *PostgresStore) GetFlowMessagesSince(ctx context.Context, flowUUID string, since int64, offset, limit uint64) ([]models.Message, error) {
	selector := sq.And{
		sq.Eq{"from_flow": flowUUID},
		sq.GtOrEq{"time": since},
	}
	return s.SelectMessages(ctx, selector, SelectOptions{
		Offset: offset,
		Limit:  limit,
	})
}

func (s *PostgresStore) CountFlowMessagesSince(ctx context.Context, flowUUID string, since int64) (uint64, error) {
	query, args, err := sq.Select("count(*)").
		From("messages").
		Where(sq.And{
			sq.Eq{"from_flow": flowUUID},
			sq.GtOrEq{"time": since},
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return 0, err
	}

	var count uint64
	if err = s.scope.GetContext(ctx, &count, query, args...); err != nil {
		return 0, readError(err, ErrFlowNotFound)
	}
	return count, nil
}

// SelectMessages returns messages in sending order.
func (s *PostgresStore) SelectMessages(ctx context.Context, selector sq.Sqlizer, options ...SelectOptions) ([]models.Message, error) {
	option := SelectOptions{}
	if len(options) > 0 {
		option = options[0]
	}

	builder := sq.Select(messageColumns...).
		From("messages").
		Where(selector).
		OrderBy("time", "seq").
		PlaceholderFormat(sq.Dollar)

	if option.Limit > 0 {
		builder = builder.Limit(option.Limit)
	}

	if option.Offset > 0 {
		builder = builder.Offset(option.Offset)
	}

	query, args, err := builder.ToSql()

	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0)
	if err = s.scope.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, readError(err, ErrMessageNotFound)
	}
	return messages, nil
}

func (s *PostgresStore) AddMessage(ctx context.Context, message *models.Message) error {
	if err := s.checkRecord(message); err != nil {
		return err
	}

	query, args, err := sq.Insert("messages").
		Columns(messageColumns...).
		Values(
			message.UUID, message.Text, message.Time, message.FromUser, message.FromFlow,
			message.FilePicture, message.FileVideo, message.FileAudio, message.FileDocument, message.Emoji,
			message.EditedTime, message.EditedStatus, message.Deleted,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.scope.ExecContext(ctx, query, args...)
	return mapConstraint(err, messageConstraints)
}

// UpdateMessage rewrites the content and edit state of a message. Sender,
// flow and sending time are immutable.
func (s *PostgresStore) UpdateMessage(ctx context.Context, message *models.Message) error {
	query, args, err := sq.Update("messages").
		SetMap(map[string]interface{}{
			"text":          message.Text,
			"file_picture":  message.FilePicture,
			"file_video":    message.FileVideo,
			"file_audio":    message.FileAudio,
			"file_document": message.FileDocument,
			"emoji":         message.Emoji,
			"edited_time":   message.EditedTime,
			"edited_status": message.EditedStatus,
			"deleted":       message.Deleted,
		}).
		Where(sq.Eq{"uuid": message.UUID}).
		Where(sq.Eq{"deleted": false}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	res, err := s.scope.ExecContext(ctx, query, args...)
	if err != nil {
		return writeError(err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return writeError(err)
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
