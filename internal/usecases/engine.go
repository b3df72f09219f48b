package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/practice-sem-2/mtp-service/internal/api"
	"github.com/practice-sem-2/mtp-service/internal/catalog"
	storage "github.com/practice-sem-2/mtp-service/internal/storages"
	"github.com/sirupsen/logrus"
	"time"
)

// Credential derives and checks password digests and auth tokens.
type Credential interface {
	NewSalt() ([]byte, error)
	NewKey() ([]byte, error)
	Digest(password string, salt, key []byte) (string, error)
	Verify(candidate, stored string) bool
	Token(identity string, salt []byte) (string, error)
}

type EngineConfig struct {
	MessagesLimit int
	UsersLimit    int
	MinVersion    string
	MaxVersion    string
}

// Engine turns one raw payload into exactly one response. It keeps no state
// between requests and is safe for concurrent use.
type Engine struct {
	store   storage.RecordStore
	creds   Credential
	updates storage.UpdatesPublisher
	parser  *api.Parser
	catalog *catalog.Catalog
	cfg     EngineConfig
	logger  logrus.FieldLogger
	now     func() time.Time
}

type Option func(*Engine)

// WithClock replaces the source of server time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
		e.catalog = catalog.New(now)
	}
}

// WithUpdates makes the engine announce committed writes.
func WithUpdates(p storage.UpdatesPublisher) Option {
	return func(e *Engine) {
		e.updates = p
	}
}

func NewEngine(
	store storage.RecordStore,
	creds Credential,
	parser *api.Parser,
	cfg EngineConfig,
	logger logrus.FieldLogger,
	opts ...Option,
) *Engine {
	e := &Engine{
		store:   store,
		creds:   creds,
		updates: storage.NopUpdates{},
		parser:  parser,
		catalog: catalog.New(time.Now),
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle never fails: schema errors, gate rejections, store faults and
// handler panics all end up in the errors block of the response.
func (e *Engine) Handle(ctx context.Context, raw []byte) (resp *api.Response) {
	reqType := api.ErrorType

	defer func() {
		if p := recover(); p != nil {
			e.logger.
				WithField("type", reqType).
				WithField("panic", p).
				Error("request handler panicked")
			resp = e.respond(reqType, catalog.UnknownError, nil, fmt.Sprint(p))
		}
		e.logger.
			WithField("type", resp.Type).
			WithField("code", resp.Errors.Code).
			Debug("request handled")
	}()

	req, err := e.parser.Parse(raw)
	if err != nil {
		return e.respond(api.ErrorType, catalog.UnsupportedMediaType, nil, err.Error())
	}
	reqType = req.Type

	if !AcceptsVersion(req.JSONAPI.Version, e.cfg.MinVersion, e.cfg.MaxVersion) {
		return e.respond(req.Type, catalog.VersionNotSupported, nil,
			fmt.Sprintf("Supported versions are %s to %s", e.cfg.MinVersion, e.cfg.MaxVersion))
	}

	uuid, authID := req.Caller()
	auth := e.Authenticate(ctx, uuid, authID)

	return e.route(Operation(req.Type), auth)(ctx, req)
}

// Process is Handle followed by JSON encoding of the response.
func (e *Engine) Process(ctx context.Context, raw []byte) ([]byte, *api.Response, error) {
	resp := e.Handle(ctx, raw)
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, resp, fmt.Errorf("can't encode response: %w", err)
	}
	return body, resp, nil
}

// Failure answers reqType with status outside of any handler. Transports use
// it for payloads that never reach Handle.
func (e *Engine) Failure(reqType string, status catalog.Status, detail string) *api.Response {
	return e.respond(reqType, status, nil, detail)
}

func (e *Engine) respond(reqType string, status catalog.Status, data *api.Data, detail ...string) *api.Response {
	return &api.Response{
		Type:    reqType,
		Data:    data,
		Errors:  e.catalog.Resolve(status, detail...),
		JSONAPI: api.ServerVersion(),
	}
}

func (e *Engine) timestamp() int64 {
	return e.now().Unix()
}
