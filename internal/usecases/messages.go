package usecases

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/practice-sem-2/mtp-service/internal/api"
	"github.com/practice-sem-2/mtp-service/internal/catalog"
	"github.com/practice-sem-2/mtp-service/internal/models"
	storage "github.com/practice-sem-2/mtp-service/internal/storages"
)

const detailMessageRequired = "Message object is required"

func (e *Engine) getUpdate(ctx context.Context, req *api.Request) *api.Response {
	since := req.Since()

	users, err := e.store.GetAllUsers(ctx)
	if err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	flows, err := e.store.GetFlowsSince(ctx, since)
	if err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	messages, err := e.store.GetMessagesSince(ctx, since)
	if err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	return e.respond(req.Type, catalog.OK, &api.Data{
		Time:    e.timestamp(),
		User:    UsersToPublic(users),
		Flow:    FlowsToAPI(flows),
		Message: MessagesToAPI(messages),
	})
}

func (e *Engine) sendMessage(ctx context.Context, req *api.Request) *api.Response {
	in, ok := req.FirstMessage()
	if !ok {
		return e.respond(req.Type, catalog.BadRequest, nil, detailMessageRequired)
	}

	flow, err := e.store.GetFlowByUUID(ctx, in.FromFlow)
	if err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	sender, _ := req.Caller()
	now := e.timestamp()
	msg := SendMessageToModel(uuid.NewString(), sender, now, in)

	if err = e.store.AddMessage(ctx, msg); err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	e.publish(storage.KindMessageSent, func() error {
		return e.updates.MessageSent(&models.MessageSent{
			UpdateMeta:  e.meta(now, flow.Members),
			MessageUUID: msg.UUID,
			FromUser:    msg.FromUser,
			FromFlow:    msg.FromFlow,
			Text:        value(msg.Text),
		})
	})

	return e.respond(req.Type, catalog.OK, &api.Data{
		Time: now,
		Message: []api.Message{{
			UUID:     msg.UUID,
			ClientID: in.ClientID,
			FromUser: msg.FromUser,
			FromFlow: msg.FromFlow,
			Time:     msg.Time,
		}},
	})
}

// allMessages pages through a flow. Without an explicit window it returns up
// to the limit and, when more exist, the total count in message_end so the
// client can ask for a bounded window next.
func (e *Engine) allMessages(ctx context.Context, req *api.Request) *api.Response {
	in, ok := req.FirstFlow()
	if !ok {
		return e.respond(req.Type, catalog.BadRequest, nil, detailFlowRequired)
	}

	if _, err := e.store.GetFlowByUUID(ctx, in.UUID); err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	limit := uint64(e.cfg.MessagesLimit)
	since := req.Since()

	var start, end uint64
	if in.MessageStart != nil {
		start = uint64(*in.MessageStart)
	}
	if in.MessageEnd != nil {
		end = uint64(*in.MessageEnd)
	}

	if end > 0 {
		if end < start {
			return e.respond(req.Type, catalog.BadRequest, nil, "message_end must not be less than message_start")
		}
		if end-start > limit {
			return e.respond(req.Type, catalog.Forbidden, nil,
				fmt.Sprintf("Requested more messages than server limit (%d)", limit))
		}
		return e.messagePage(ctx, req, in.UUID, since, start, end-start, catalog.OK, nil)
	}

	total, err := e.store.CountFlowMessagesSince(ctx, in.UUID, since)
	if err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	if total <= limit {
		return e.messagePage(ctx, req, in.UUID, since, 0, limit, catalog.OK, nil)
	}

	messageStart, messageEnd := int64(start), int64(total)
	cursor := &api.Flow{
		UUID:         in.UUID,
		MessageStart: &messageStart,
		MessageEnd:   &messageEnd,
	}
	return e.messagePage(ctx, req, in.UUID, since, start, limit, catalog.PartialContent, cursor)
}

func (e *Engine) messagePage(
	ctx context.Context,
	req *api.Request,
	flowUUID string,
	since int64,
	offset, limit uint64,
	status catalog.Status,
	cursor *api.Flow,
) *api.Response {
	data := &api.Data{Time: e.timestamp(), Message: []api.Message{}}
	if limit > 0 {
		messages, err := e.store.GetFlowMessagesSince(ctx, flowUUID, since, offset, limit)
		if err != nil {
			status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
			return e.respond(req.Type, status, nil, detail)
		}
		data.Message = MessagesToAPI(messages)
	}
	if cursor != nil {
		data.Flow = []api.Flow{*cursor}
	}
	return e.respond(req.Type, status, data)
}

// liveMessage loads a message that can still be changed.
func (e *Engine) liveMessage(ctx context.Context, uuid string) (*models.Message, error) {
	msg, err := e.store.GetMessageByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if msg.Deleted {
		return nil, storage.ErrMessageNotFound
	}
	return msg, nil
}

func (e *Engine) editedMessage(ctx context.Context, req *api.Request) *api.Response {
	in, ok := req.FirstMessage()
	if !ok {
		return e.respond(req.Type, catalog.BadRequest, nil, detailMessageRequired)
	}

	msg, err := e.liveMessage(ctx, in.UUID)
	if err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	now := e.timestamp()
	text := in.Text
	msg.Edit(&text, now)

	if err = e.store.UpdateMessage(ctx, msg); err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	e.publish(storage.KindMessageEdited, func() error {
		return e.updates.MessageEdited(&models.MessageEdited{
			UpdateMeta:  e.meta(now, e.flowAudience(ctx, msg.FromFlow)),
			MessageUUID: msg.UUID,
			FromFlow:    msg.FromFlow,
			Text:        text,
		})
	})

	return e.respond(req.Type, catalog.OK, &api.Data{
		Time:    now,
		Message: []api.Message{MessageToAPI(msg)},
	})
}

func (e *Engine) deleteMessage(ctx context.Context, req *api.Request) *api.Response {
	in, ok := req.FirstMessage()
	if !ok {
		return e.respond(req.Type, catalog.BadRequest, nil, detailMessageRequired)
	}

	msg, err := e.liveMessage(ctx, in.UUID)
	if err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	now := e.timestamp()
	msg.Tombstone(now)

	if err = e.store.UpdateMessage(ctx, msg); err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}

	e.publish(storage.KindMessageDeleted, func() error {
		return e.updates.MessageDeleted(&models.MessageDeleted{
			UpdateMeta:  e.meta(now, e.flowAudience(ctx, msg.FromFlow)),
			MessageUUID: msg.UUID,
			FromFlow:    msg.FromFlow,
		})
	})

	return e.respond(req.Type, catalog.OK, &api.Data{
		Time:    now,
		Message: []api.Message{MessageToAPI(msg)},
	})
}
