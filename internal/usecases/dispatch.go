package usecases

import (
	"context"
	"github.com/practice-sem-2/mtp-service/internal/api"
	"github.com/practice-sem-2/mtp-service/internal/catalog"
)

type Operation string

const (
	OpRegisterUser   Operation = "register_user"
	OpAuthentication Operation = "authentication"
	OpGetUpdate      Operation = "get_update"
	OpSendMessage    Operation = "send_message"
	OpAllMessages    Operation = "all_messages"
	OpAddFlow        Operation = "add_flow"
	OpAllFlow        Operation = "all_flow"
	OpUserInfo       Operation = "user_info"
	OpDeleteUser     Operation = "delete_user"
	OpDeleteMessage  Operation = "delete_message"
	OpEditedMessage  Operation = "edited_message"
	OpPingPong       Operation = "ping_pong"
)

type handlerFunc func(ctx context.Context, req *api.Request) *api.Response

func (e *Engine) authenticatedHandlers() map[Operation]handlerFunc {
	return map[Operation]handlerFunc{
		OpGetUpdate:     e.getUpdate,
		OpSendMessage:   e.sendMessage,
		OpAllMessages:   e.allMessages,
		OpAddFlow:       e.addFlow,
		OpAllFlow:       e.allFlow,
		OpUserInfo:      e.userInfo,
		OpDeleteUser:    e.deleteUser,
		OpDeleteMessage: e.deleteMessage,
		OpEditedMessage: e.editedMessage,
		OpPingPong:      e.pingPong,
	}
}

func (e *Engine) unauthenticatedHandlers() map[Operation]handlerFunc {
	return map[Operation]handlerFunc{
		OpRegisterUser:   e.registerUser,
		OpAuthentication: e.authentication,
	}
}

// route picks the handler reachable for op in the given auth state. Every
// pair gets a handler, unknown operations fall back to an error reply.
func (e *Engine) route(op Operation, auth AuthResult) handlerFunc {
	if auth.Authenticated {
		if h, ok := e.authenticatedHandlers()[op]; ok {
			return h
		}
		return e.methodNotAllowed
	}

	if h, ok := e.unauthenticatedHandlers()[op]; ok {
		return h
	}
	return func(_ context.Context, req *api.Request) *api.Response {
		return e.respond(req.Type, catalog.Unauthorized, nil, auth.Reason)
	}
}

func (e *Engine) methodNotAllowed(_ context.Context, req *api.Request) *api.Response {
	return e.respond(req.Type, catalog.MethodNotAllowed, nil)
}

func (e *Engine) pingPong(_ context.Context, req *api.Request) *api.Response {
	return e.respond(req.Type, catalog.OK, nil)
}

// IsOperation reports whether t names one of the protocol operations.
func IsOperation(t string) bool {
	switch Operation(t) {
	case OpRegisterUser, OpAuthentication, OpGetUpdate, OpSendMessage, OpAllMessages,
		OpAddFlow, OpAllFlow, OpUserInfo, OpDeleteUser, OpDeleteMessage, OpEditedMessage, OpPingPong:
		return true
	}
	return false
}
