package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/practice-sem-2/mtp-service/internal/api"
	"github.com/practice-sem-2/mtp-service/internal/catalog"
	"github.com/practice-sem-2/mtp-service/internal/credentials"
	"github.com/practice-sem-2/mtp-service/internal/models"
	storage "github.com/practice-sem-2/mtp-service/internal/storages"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"testing"
	"time"
)

const testLimit = 5

type recordedUpdates struct {
	storage.NopUpdates
	sent    []models.MessageSent
	flows   []models.FlowCreated
	deleted []models.UserDeleted
	fail    bool
}

func (r *recordedUpdates) MessageSent(u *models.MessageSent) error {
	r.sent = append(r.sent, *u)
	if r.fail {
		return errors.New("broker is down")
	}
	return nil
}

func (r *recordedUpdates) FlowCreated(u *models.FlowCreated) error {
	r.flows = append(r.flows, *u)
	return nil
}

func (r *recordedUpdates) UserDeleted(u *models.UserDeleted) error {
	r.deleted = append(r.deleted, *u)
	return nil
}

// interleavedStore runs a competing request right before the next update
// reaches the underlying store.
type interleavedStore struct {
	*storage.MemoryStore
	before func()
}

func (i *interleavedStore) runBefore() {
	if fn := i.before; fn != nil {
		i.before = nil
		fn()
	}
}

func (i *interleavedStore) UpdateUser(ctx context.Context, user *models.User) error {
	i.runBefore()
	return i.MemoryStore.UpdateUser(ctx, user)
}

func (i *interleavedStore) UpdateMessage(ctx context.Context, message *models.Message) error {
	i.runBefore()
	return i.MemoryStore.UpdateMessage(ctx, message)
}

type session struct {
	UUID   string
	AuthID string
}

type EngineTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *storage.MemoryStore
	updates *recordedUpdates

	interleaved *interleavedStore
	engine      *Engine
	logs        *logtest.Hook
	clock       int64
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, &EngineTestSuite{})
}

func (s *EngineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = storage.NewMemoryStore(validator.New())
	s.updates = &recordedUpdates{}
	s.clock = 1000

	digester, err := credentials.NewDigester(32, 16)
	require.NoError(s.T(), err)

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s.logs = hook

	s.interleaved = &interleavedStore{MemoryStore: s.store}

	s.engine = NewEngine(s.interleaved, digester, api.NewParser(validator.New()), EngineConfig{
		MessagesLimit: testLimit,
		UsersLimit:    testLimit,
		MinVersion:    "1.0",
		MaxVersion:    "1.9",
	}, logger, WithClock(func() time.Time {
		return time.Unix(s.clock, 0)
	}), WithUpdates(s.updates))
}

func (s *EngineTestSuite) call(v interface{}) *api.Response {
	raw, err := json.Marshal(v)
	require.NoError(s.T(), err)
	return s.engine.Handle(s.ctx, raw)
}

func request(reqType string, data *api.Data) api.Request {
	return api.Request{
		Type:    reqType,
		Data:    data,
		JSONAPI: &api.VersionInfo{Version: "1.0"},
	}
}

func (s *EngineTestSuite) register(login, password string) session {
	resp := s.call(request(string(OpRegisterUser), &api.Data{
		User: []api.User{{Login: login, Password: password, Username: login}},
	}))
	require.Equal(s.T(), 201, resp.Errors.Code, resp.Errors.Detail)
	require.Len(s.T(), resp.Data.User, 1)
	return session{UUID: resp.Data.User[0].UUID, AuthID: resp.Data.User[0].AuthID}
}

func (s *EngineTestSuite) as(who session, reqType string, data *api.Data) *api.Response {
	if data == nil {
		data = &api.Data{}
	}
	caller := api.User{UUID: who.UUID, AuthID: who.AuthID}
	if len(data.User) == 0 {
		data.User = []api.User{caller}
	} else {
		data.User[0].UUID = who.UUID
		data.User[0].AuthID = who.AuthID
	}
	return s.call(request(reqType, data))
}

func (s *EngineTestSuite) chat(a, b session) string {
	resp := s.as(a, string(OpAddFlow), &api.Data{
		Flow: []api.Flow{{Type: "chat", Title: "chat", Users: []string{a.UUID, b.UUID}}},
	})
	require.Equal(s.T(), 200, resp.Errors.Code, resp.Errors.Detail)
	return resp.Data.Flow[0].UUID
}

func (s *EngineTestSuite) send(who session, flow, text string) string {
	resp := s.as(who, string(OpSendMessage), &api.Data{
		Message: []api.Message{{FromFlow: flow, Text: text}},
	})
	require.Equal(s.T(), 200, resp.Errors.Code, resp.Errors.Detail)
	return resp.Data.Message[0].UUID
}

func (s *EngineTestSuite) Test_ServerVersionAlwaysAdvertised() {
	for _, raw := range []string{
		`not json`,
		`{"type":"ping_pong","jsonapi":{"version":"1.0"}}`,
		`{"type":"ping_pong","jsonapi":{"version":"5.0"}}`,
	} {
		resp := s.engine.Handle(s.ctx, []byte(raw))
		assert.Equal(s.T(), api.Version, resp.JSONAPI.Version)
		assert.Equal(s.T(), api.Revision, resp.JSONAPI.Revision)
		assert.Equal(s.T(), int64(1000), resp.Errors.Time)
	}
}

func (s *EngineTestSuite) Test_MalformedRequests() {
	for _, raw := range []string{
		`{"jsonapi":{"version":"1.0"}}`,
		`{"type":"ping_pong"}`,
		`{"type":"ping_pong","jsonapi":{}}`,
		`{"type":42,"jsonapi":{"version":"1.0"}}`,
		`{"type":"register_user","data":{"user":[{"login":"a","email":"nope"}]},"jsonapi":{"version":"1.0"}}`,
		`[]`,
	} {
		resp := s.engine.Handle(s.ctx, []byte(raw))
		assert.Equal(s.T(), api.ErrorType, resp.Type, raw)
		assert.Equal(s.T(), 415, resp.Errors.Code, raw)
	}
}

func (s *EngineTestSuite) Test_UnknownFieldsIgnored() {
	resp := s.engine.Handle(s.ctx, []byte(`{"type":"ping_pong","extra":1,"jsonapi":{"version":"1.0"}}`))
	assert.Equal(s.T(), "ping_pong", resp.Type)
	assert.Equal(s.T(), 401, resp.Errors.Code)
}

func (s *EngineTestSuite) Test_VersionGate() {
	resp := s.call(api.Request{Type: "ping_pong", JSONAPI: &api.VersionInfo{Version: "2.0"}})
	assert.Equal(s.T(), 505, resp.Errors.Code)
	assert.Equal(s.T(), "Version Not Supported", resp.Errors.Status)

	resp = s.call(api.Request{Type: "register_user", JSONAPI: &api.VersionInfo{Version: "0.9"}})
	assert.Equal(s.T(), 505, resp.Errors.Code, "gate runs before dispatch")
}

func TestAcceptsVersion(t *testing.T) {
	assert.True(t, AcceptsVersion("1.0", "1.0", "1.9"))
	assert.True(t, AcceptsVersion("1.5", "1.0", "1.9"))
	assert.False(t, AcceptsVersion("2.0", "1.0", "1.9"))
	assert.True(t, AcceptsVersion("1.10", "1.0", "1.9"), "comparison is lexical")
	assert.False(t, AcceptsVersion("10.0", "2.0", "9.0"), "comparison is lexical")
}

func TestValidateUUID(t *testing.T) {
	id := uuid.NewString()
	assert.True(t, ValidateUUID(id))
	assert.False(t, ValidateUUID("{"+id+"}"))
	assert.False(t, ValidateUUID("urn:uuid:"+id))
	assert.False(t, ValidateUUID(""))
	assert.False(t, ValidateUUID("garbage"))
}

func (s *EngineTestSuite) Test_AuthGate() {
	alice := s.register("alice", "secret")

	assert.Equal(s.T(), AuthResult{Reason: ReasonNotAuthenticated}, s.engine.Authenticate(s.ctx, uuid.NewString(), "x"))
	assert.Equal(s.T(), AuthResult{Reason: ReasonNotAuthenticated}, s.engine.Authenticate(s.ctx, "garbage", "x"))
	assert.Equal(s.T(), AuthResult{Reason: ReasonAuthFailed}, s.engine.Authenticate(s.ctx, alice.UUID, "wrong"))
	assert.Equal(s.T(), AuthResult{Reason: ReasonAuthFailed}, s.engine.Authenticate(s.ctx, alice.UUID, ""))
	assert.Equal(s.T(), AuthResult{Authenticated: true, Reason: ReasonVerified}, s.engine.Authenticate(s.ctx, alice.UUID, alice.AuthID))
}

func (s *EngineTestSuite) Test_Dispatch() {
	alice := s.register("alice", "secret")

	resp := s.as(alice, "launch_rockets", nil)
	assert.Equal(s.T(), 405, resp.Errors.Code)
	assert.Equal(s.T(), "launch_rockets", resp.Type)

	resp = s.as(session{UUID: alice.UUID, AuthID: "stale"}, "launch_rockets", nil)
	assert.Equal(s.T(), 401, resp.Errors.Code)
	assert.Equal(s.T(), ReasonAuthFailed, resp.Errors.Detail)

	resp = s.call(request(string(OpGetUpdate), nil))
	assert.Equal(s.T(), 401, resp.Errors.Code)
	assert.Equal(s.T(), ReasonNotAuthenticated, resp.Errors.Detail)

	resp = s.as(alice, string(OpRegisterUser), nil)
	assert.Equal(s.T(), 405, resp.Errors.Code, "registration is not reachable once authenticated")

	resp = s.as(alice, string(OpPingPong), nil)
	assert.Equal(s.T(), 200, resp.Errors.Code)
	assert.Equal(s.T(), "ping_pong", resp.Type)
}

func (s *EngineTestSuite) Test_RegisterUser() {
	s.register("alice", "secret")

	resp := s.call(request(string(OpRegisterUser), &api.Data{
		User: []api.User{{Login: "alice", Password: "other"}},
	}))
	assert.Equal(s.T(), 409, resp.Errors.Code)

	users, err := s.store.GetAllUsers(s.ctx)
	require.NoError(s.T(), err)
	assert.Len(s.T(), users, 1)
	assert.NotEqual(s.T(), "secret", users[0].PasswordHash)
	assert.Equal(s.T(), int64(1000), users[0].TokenTTL)

	resp = s.call(request(string(OpRegisterUser), &api.Data{User: []api.User{{Login: "bob"}}}))
	assert.Equal(s.T(), 400, resp.Errors.Code)

	resp = s.call(request(string(OpRegisterUser), nil))
	assert.Equal(s.T(), 400, resp.Errors.Code)
}

func (s *EngineTestSuite) Test_Authentication() {
	alice := s.register("alice", "secret")
	s.clock = 2000

	resp := s.call(request(string(OpAuthentication), &api.Data{
		User: []api.User{{Login: "alice", Password: "secret"}},
	}))
	require.Equal(s.T(), 200, resp.Errors.Code)
	fresh := resp.Data.User[0]
	assert.Equal(s.T(), alice.UUID, fresh.UUID)
	assert.NotEqual(s.T(), alice.AuthID, fresh.AuthID, "token is rotated")
	assert.Equal(s.T(), int64(2000), fresh.TokenTTL)

	assert.False(s.T(), s.engine.Authenticate(s.ctx, alice.UUID, alice.AuthID).Authenticated)
	assert.True(s.T(), s.engine.Authenticate(s.ctx, alice.UUID, fresh.AuthID).Authenticated)

	resp = s.call(request(string(OpAuthentication), &api.Data{
		User: []api.User{{Login: "alice", Password: "wrong"}},
	}))
	assert.Equal(s.T(), 401, resp.Errors.Code)

	resp = s.call(request(string(OpAuthentication), &api.Data{
		User: []api.User{{Login: "nobody", Password: "secret"}},
	}))
	assert.Equal(s.T(), 404, resp.Errors.Code)
}

func (s *EngineTestSuite) Test_GetUpdate() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")
	flow := s.chat(alice, bob)
	s.send(alice, flow, "early")

	s.clock = 3000
	s.send(bob, flow, "late")

	resp := s.as(alice, string(OpGetUpdate), &api.Data{Time: 2000})
	require.Equal(s.T(), 200, resp.Errors.Code)
	assert.Len(s.T(), resp.Data.User, 2)
	assert.Empty(s.T(), resp.Data.Flow, "flow was created before the cursor")
	require.Len(s.T(), resp.Data.Message, 1)
	assert.Equal(s.T(), "late", resp.Data.Message[0].Text)
	for _, u := range resp.Data.User {
		assert.Empty(s.T(), u.AuthID)
		assert.Empty(s.T(), u.Password)
	}

	resp = s.as(alice, string(OpGetUpdate), &api.Data{Time: 0})
	require.Len(s.T(), resp.Data.Flow, 1)
	assert.ElementsMatch(s.T(), []string{alice.UUID, bob.UUID}, resp.Data.Flow[0].Users)
	assert.Len(s.T(), resp.Data.Message, 2)

	resp = s.as(alice, string(OpGetUpdate), &api.Data{Time: 99999})
	assert.Equal(s.T(), 200, resp.Errors.Code)
}

func (s *EngineTestSuite) Test_SendMessage() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")
	flow := s.chat(alice, bob)

	clientID := int64(7)
	resp := s.as(alice, string(OpSendMessage), &api.Data{
		Message: []api.Message{{FromFlow: flow, Text: "hi", ClientID: &clientID}},
	})
	require.Equal(s.T(), 200, resp.Errors.Code)
	echo := resp.Data.Message[0]
	assert.Equal(s.T(), alice.UUID, echo.FromUser)
	assert.Equal(s.T(), flow, echo.FromFlow)
	assert.Equal(s.T(), &clientID, echo.ClientID)
	assert.Equal(s.T(), int64(1000), echo.Time)

	require.Len(s.T(), s.updates.sent, 1)
	assert.ElementsMatch(s.T(), []string{alice.UUID, bob.UUID}, s.updates.sent[0].Audience)

	resp = s.as(alice, string(OpSendMessage), &api.Data{
		Message: []api.Message{{FromFlow: uuid.NewString(), Text: "hi"}},
	})
	assert.Equal(s.T(), 404, resp.Errors.Code)
}

func (s *EngineTestSuite) Test_SendMessage_PublishFailureIgnored() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")
	flow := s.chat(alice, bob)
	s.updates.fail = true

	s.send(alice, flow, "hi")

	warned := false
	for _, entry := range s.logs.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "can't publish update" {
			warned = true
		}
	}
	assert.True(s.T(), warned)
}

func (s *EngineTestSuite) Test_AllMessages_Pagination() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")
	flow := s.chat(alice, bob)
	for i := 0; i < testLimit+10; i++ {
		s.send(alice, flow, fmt.Sprintf("m%d", i))
	}

	resp := s.as(alice, string(OpAllMessages), &api.Data{Flow: []api.Flow{{UUID: flow}}})
	require.Equal(s.T(), 206, resp.Errors.Code)
	assert.Len(s.T(), resp.Data.Message, testLimit)
	require.Len(s.T(), resp.Data.Flow, 1)
	assert.Equal(s.T(), int64(0), *resp.Data.Flow[0].MessageStart)
	assert.Equal(s.T(), int64(testLimit+10), *resp.Data.Flow[0].MessageEnd)

	start, end := int64(3), int64(3+testLimit)
	resp = s.as(alice, string(OpAllMessages), &api.Data{
		Flow: []api.Flow{{UUID: flow, MessageStart: &start, MessageEnd: &end}},
	})
	require.Equal(s.T(), 200, resp.Errors.Code)
	require.Len(s.T(), resp.Data.Message, testLimit)
	assert.Equal(s.T(), "m3", resp.Data.Message[0].Text)

	end = start + testLimit + 1
	resp = s.as(alice, string(OpAllMessages), &api.Data{
		Flow: []api.Flow{{UUID: flow, MessageStart: &start, MessageEnd: &end}},
	})
	assert.Equal(s.T(), 403, resp.Errors.Code)
	assert.Equal(s.T(), fmt.Sprintf("Requested more messages than server limit (%d)", testLimit), resp.Errors.Detail)
	assert.Nil(s.T(), resp.Data)

	start, end = 4, 2
	resp = s.as(alice, string(OpAllMessages), &api.Data{
		Flow: []api.Flow{{UUID: flow, MessageStart: &start, MessageEnd: &end}},
	})
	assert.Equal(s.T(), 400, resp.Errors.Code)

	resp = s.as(alice, string(OpAllMessages), &api.Data{Flow: []api.Flow{{UUID: uuid.NewString()}}})
	assert.Equal(s.T(), 404, resp.Errors.Code)
}

func (s *EngineTestSuite) Test_AllMessages_WithinLimit() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")
	flow := s.chat(alice, bob)
	s.send(alice, flow, "one")
	s.send(bob, flow, "two")

	resp := s.as(alice, string(OpAllMessages), &api.Data{Flow: []api.Flow{{UUID: flow}}})
	require.Equal(s.T(), 200, resp.Errors.Code)
	assert.Len(s.T(), resp.Data.Message, 2)
	assert.Empty(s.T(), resp.Data.Flow, "no cursor when everything fits")

	start := int64(1)
	resp = s.as(alice, string(OpAllMessages), &api.Data{Flow: []api.Flow{{UUID: flow, MessageStart: &start}}})
	require.Equal(s.T(), 200, resp.Errors.Code)
	assert.Len(s.T(), resp.Data.Message, 2, "start without end still returns everything")
}

func (s *EngineTestSuite) Test_EditRacingDelete() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")
	msg := s.send(alice, s.chat(alice, bob), "hello")

	var deleted *api.Response
	s.interleaved.before = func() {
		deleted = s.as(alice, string(OpDeleteMessage), &api.Data{Message: []api.Message{{UUID: msg}}})
	}
	resp := s.as(alice, string(OpEditedMessage), &api.Data{Message: []api.Message{{UUID: msg, Text: "edited"}}})

	require.NotNil(s.T(), deleted)
	assert.Equal(s.T(), 200, deleted.Errors.Code)
	assert.Equal(s.T(), 404, resp.Errors.Code)

	stored, err := s.store.GetMessageByUUID(s.ctx, msg)
	require.NoError(s.T(), err)
	assert.True(s.T(), stored.Deleted)
	assert.Equal(s.T(), models.DeletedText, *stored.Text)
}

func (s *EngineTestSuite) Test_AuthenticationRacingDeleteUser() {
	alice := s.register("alice", "secret")

	var deleted *api.Response
	s.interleaved.before = func() {
		deleted = s.as(alice, string(OpDeleteUser), &api.Data{
			User: []api.User{{Login: "alice", Password: "secret"}},
		})
	}
	resp := s.call(request(string(OpAuthentication), &api.Data{
		User: []api.User{{Login: "alice", Password: "secret"}},
	}))

	require.NotNil(s.T(), deleted)
	assert.Equal(s.T(), 200, deleted.Errors.Code)
	assert.Equal(s.T(), 404, resp.Errors.Code)

	_, err := s.store.GetUserByLogin(s.ctx, "alice")
	assert.ErrorIs(s.T(), err, storage.ErrLoginNotFound)
}

func (s *EngineTestSuite) Test_AddFlow() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")
	carol := s.register("carol", "secret")

	for _, members := range [][]string{
		{alice.UUID},
		{alice.UUID, bob.UUID, carol.UUID},
	} {
		resp := s.as(alice, string(OpAddFlow), &api.Data{
			Flow: []api.Flow{{Type: "chat", Users: members}},
		})
		assert.Equal(s.T(), 400, resp.Errors.Code)
	}

	resp := s.as(alice, string(OpAddFlow), &api.Data{Flow: []api.Flow{{Type: "room"}}})
	assert.Equal(s.T(), 400, resp.Errors.Code)

	count, err := s.store.Count(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(0), count.FlowCount)

	resp = s.as(alice, string(OpAddFlow), &api.Data{
		Flow: []api.Flow{{Type: "group", Title: "team", Users: []string{alice.UUID, bob.UUID, carol.UUID}}},
	})
	require.Equal(s.T(), 200, resp.Errors.Code)
	created := resp.Data.Flow[0]
	assert.Equal(s.T(), "team", created.Title)
	assert.Equal(s.T(), alice.UUID, created.Owner)
	assert.Equal(s.T(), []string{alice.UUID, bob.UUID, carol.UUID}, created.Users)
	require.Len(s.T(), s.updates.flows, 1)

	resp = s.as(alice, string(OpAddFlow), &api.Data{
		Flow: []api.Flow{{Type: "channel", Users: []string{uuid.NewString()}}},
	})
	assert.Equal(s.T(), 404, resp.Errors.Code, "store write failure")
}

func (s *EngineTestSuite) Test_AllFlow() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")

	resp := s.as(alice, string(OpAllFlow), nil)
	assert.Equal(s.T(), 404, resp.Errors.Code)

	s.chat(alice, bob)
	resp = s.as(alice, string(OpAllFlow), nil)
	require.Equal(s.T(), 200, resp.Errors.Code)
	assert.Len(s.T(), resp.Data.Flow, 1)
}

func (s *EngineTestSuite) Test_UserInfo() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")

	resp := s.as(alice, string(OpUserInfo), &api.Data{
		User: []api.User{{}, {UUID: bob.UUID}},
	})
	require.Equal(s.T(), 200, resp.Errors.Code)
	require.Len(s.T(), resp.Data.User, 1)
	assert.Equal(s.T(), bob.UUID, resp.Data.User[0].UUID)
	assert.Equal(s.T(), "bob", resp.Data.User[0].Username)
	assert.Empty(s.T(), resp.Data.User[0].AuthID)

	missing := uuid.NewString()
	resp = s.as(alice, string(OpUserInfo), &api.Data{
		User: []api.User{{}, {UUID: missing}, {UUID: bob.UUID}},
	})
	assert.Equal(s.T(), 520, resp.Errors.Code)
	assert.Contains(s.T(), resp.Errors.Detail, missing)
	assert.Len(s.T(), resp.Data.User, 1, "batch continues after a failed lookup")

	users := []api.User{{}}
	for i := 0; i <= testLimit; i++ {
		users = append(users, api.User{UUID: bob.UUID})
	}
	resp = s.as(alice, string(OpUserInfo), &api.Data{User: users})
	assert.Equal(s.T(), 429, resp.Errors.Code)
	assert.Equal(s.T(), fmt.Sprintf("Requested more users than server limit (%d), the caller is not counted", testLimit), resp.Errors.Detail)

	resp = s.as(alice, string(OpUserInfo), &api.Data{User: users[:testLimit+1]})
	assert.Equal(s.T(), 200, resp.Errors.Code, "the caller entry does not count towards the limit")
}

func (s *EngineTestSuite) Test_DeleteUser() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")
	flow := s.chat(alice, bob)
	s.send(bob, flow, "bye")

	resp := s.as(alice, string(OpDeleteUser), &api.Data{
		User: []api.User{{Login: "bob", Password: "wrong"}},
	})
	assert.Equal(s.T(), 404, resp.Errors.Code)

	resp = s.as(alice, string(OpDeleteUser), &api.Data{
		User: []api.User{{Login: "bob", Password: "secret"}},
	})
	require.Equal(s.T(), 200, resp.Errors.Code)
	require.Len(s.T(), s.updates.deleted, 1)

	_, err := s.store.GetUserByLogin(s.ctx, "bob")
	assert.ErrorIs(s.T(), err, storage.ErrNotFound)

	tomb, err := s.store.GetUserByLogin(s.ctx, models.DeletedLogin)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), bob.UUID, tomb.UUID)
	assert.Equal(s.T(), models.DeletedSecret, tomb.Key)
	assert.Equal(s.T(), models.DeletedSecret, tomb.Salt)
	assert.Equal(s.T(), models.DeletedUsername, *tomb.Username)
	assert.Equal(s.T(), models.DeletedBio, *tomb.Bio)
	assert.NotEqual(s.T(), bob.AuthID, tomb.AuthID)
	assert.False(s.T(), s.engine.Authenticate(s.ctx, bob.UUID, bob.AuthID).Authenticated)

	count, err := s.store.Count(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), count.MessageCount, "messages of deleted users stay")

	resp = s.as(alice, string(OpDeleteUser), &api.Data{
		User: []api.User{{Login: "bob", Password: "secret"}},
	})
	assert.Equal(s.T(), 404, resp.Errors.Code)

	s.register("bob", "again")
}

func (s *EngineTestSuite) Test_EditedMessage() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")
	flow := s.chat(alice, bob)
	id := s.send(alice, flow, "first")

	s.clock = 1500
	resp := s.as(alice, string(OpEditedMessage), &api.Data{
		Message: []api.Message{{UUID: id, Text: "second"}},
	})
	require.Equal(s.T(), 200, resp.Errors.Code)

	msg, err := s.store.GetMessageByUUID(s.ctx, id)
	require.NoError(s.T(), err)
	assert.True(s.T(), msg.EditedStatus)
	assert.Equal(s.T(), "second", *msg.Text)
	assert.Equal(s.T(), int64(1500), *msg.EditedTime)

	s.clock = 1600
	s.as(alice, string(OpEditedMessage), &api.Data{
		Message: []api.Message{{UUID: id, Text: "third"}},
	})
	msg, err = s.store.GetMessageByUUID(s.ctx, id)
	require.NoError(s.T(), err)
	assert.True(s.T(), msg.EditedStatus)
	assert.Equal(s.T(), "third", *msg.Text)
	assert.Equal(s.T(), int64(1000), msg.Time)

	resp = s.as(alice, string(OpEditedMessage), &api.Data{
		Message: []api.Message{{UUID: uuid.NewString(), Text: "x"}},
	})
	assert.Equal(s.T(), 404, resp.Errors.Code)
}

func (s *EngineTestSuite) Test_DeleteMessage() {
	alice := s.register("alice", "secret")
	bob := s.register("bob", "secret")
	flow := s.chat(alice, bob)
	id := s.send(alice, flow, "oops")

	resp := s.as(alice, string(OpDeleteMessage), &api.Data{Message: []api.Message{{UUID: id}}})
	require.Equal(s.T(), 200, resp.Errors.Code)

	msg, err := s.store.GetMessageByUUID(s.ctx, id)
	require.NoError(s.T(), err)
	assert.True(s.T(), msg.Deleted)
	assert.True(s.T(), msg.EditedStatus)
	assert.Equal(s.T(), models.DeletedText, *msg.Text)

	resp = s.as(alice, string(OpDeleteMessage), &api.Data{Message: []api.Message{{UUID: id}}})
	assert.Equal(s.T(), 404, resp.Errors.Code)

	resp = s.as(alice, string(OpEditedMessage), &api.Data{Message: []api.Message{{UUID: id, Text: "back"}}})
	assert.Equal(s.T(), 404, resp.Errors.Code)

	resp = s.as(alice, string(OpDeleteMessage), nil)
	assert.Equal(s.T(), 400, resp.Errors.Code)
}

type panickingStore struct {
	storage.RecordStore
}

func (panickingStore) GetUserByUUID(context.Context, string) (*models.User, error) {
	panic("store exploded")
}

func TestEngine_RecoversPanics(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	digester, err := credentials.NewDigester(32, 16)
	require.NoError(t, err)

	engine := NewEngine(panickingStore{}, digester, api.NewParser(validator.New()), EngineConfig{
		MessagesLimit: 1, UsersLimit: 1, MinVersion: "1.0", MaxVersion: "1.9",
	}, logger)

	resp := engine.Handle(context.Background(),
		[]byte(`{"type":"ping_pong","data":{"user":[{"uuid":"253becbb-76b1-4471-9ff3-529462925899"}]},"jsonapi":{"version":"1.0"}}`))
	assert.Equal(t, 520, resp.Errors.Code)
	assert.Equal(t, "ping_pong", resp.Type)
	assert.Equal(t, "store exploded", resp.Errors.Detail)
}

func TestEngine_Process(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	digester, err := credentials.NewDigester(32, 16)
	require.NoError(t, err)
	engine := NewEngine(storage.NewMemoryStore(nil), digester, api.NewParser(validator.New()), EngineConfig{
		MessagesLimit: 1, UsersLimit: 1, MinVersion: "1.0", MaxVersion: "1.9",
	}, logger)

	body, resp, err := engine.Process(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 415, resp.Errors.Code)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, api.ErrorType, decoded["type"])
	assert.Contains(t, decoded, "errors")
	assert.Contains(t, decoded, "jsonapi")
}

func TestWrapError(t *testing.T) {
	assert.Equal(t, catalog.NotFound, wrapError(storage.ErrFlowNotFound, catalog.UnknownError))
	assert.Equal(t, catalog.Conflict, wrapError(storage.ErrLoginAlreadyExists, catalog.UnknownError))
	assert.Equal(t, catalog.NotFound, wrapError(storage.ErrMissingFlow, catalog.UnknownError))
	assert.Equal(t, catalog.UnknownError, wrapError(storage.ErrReadAccess, catalog.UnknownError))
	assert.Equal(t, catalog.NotFound, wrapError(storage.ErrMemberNotFound, catalog.NotFound))
}
