package storage

import (
	"context"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/practice-sem-2/mtp-service/internal/models"
	"sort"
	"sync"
)

// MemoryStore keeps every record in process memory. It enforces the same
// uniqueness and reference rules as the Postgres schema and hands out copies,
// so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	validate *validator.Validate

	users    map[string]models.User
	flows    map[string]models.FlowWithMembers
	messages map[string]storedMessage
	seq      uint64
}

type storedMessage struct {
	models.Message
	seq uint64
}

func NewMemoryStore(v *validator.Validate) *MemoryStore {
	return &MemoryStore{
		validate: v,
		users:    make(map[string]models.User),
		flows:    make(map[string]models.FlowWithMembers),
		messages: make(map[string]storedMessage),
	}
}

func (s *MemoryStore) checkRecord(record interface{}) error {
	if s.validate == nil {
		return nil
	}
	if err := s.validate.Struct(record); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

func copyUser(u models.User) models.User {
	u.Avatar = cloneBytes(u.Avatar)
	u.Salt = cloneBytes(u.Salt)
	u.Key = cloneBytes(u.Key)
	return u
}

func copyFlow(f models.FlowWithMembers) models.FlowWithMembers {
	f.Members = append([]string{}, f.Members...)
	return f
}

func copyMessage(m models.Message) models.Message {
	m.FilePicture = cloneBytes(m.FilePicture)
	m.FileVideo = cloneBytes(m.FileVideo)
	m.FileAudio = cloneBytes(m.FileAudio)
	m.FileDocument = cloneBytes(m.FileDocument)
	m.Emoji = cloneBytes(m.Emoji)
	return m
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

func (s *MemoryStore) GetUserByUUID(_ context.Context, uuid string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[uuid]
	if !ok {
		return nil, ErrUserNotFound
	}
	u = copyUser(u)
	return &u, nil
}

func (s *MemoryStore) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.User
	for _, u := range s.users {
		if u.Login != login {
			continue
		}
		if found == nil || (found.Deleted && !u.Deleted) {
			c := copyUser(u)
			found = &c
		}
	}
	if found == nil {
		return nil, ErrLoginNotFound
	}
	return found, nil
}

func (s *MemoryStore) GetAllUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Login != users[j].Login {
			return users[i].Login < users[j].Login
		}
		return users[i].UUID < users[j].UUID
	})
	return users, nil
}

func (s *MemoryStore) liveLoginTaken(login, except string) bool {
	for _, u := range s.users {
		if u.UUID != except && !u.Deleted && u.Login == login {
			return true
		}
	}
	return false
}

func (s *MemoryStore) AddUser(_ context.Context, user *models.User) error {
	if err := s.checkRecord(user); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.UUID]; ok {
		return ErrUserAlreadyExists
	}
	if !user.Deleted && s.liveLoginTaken(user.Login, user.UUID) {
		return ErrLoginAlreadyExists
	}
	s.users[user.UUID] = copyUser(*user)
	return nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.users[user.UUID]; !ok || stored.Deleted {
		return ErrUserNotFound
	}
	if !user.Deleted && s.liveLoginTaken(user.Login, user.UUID) {
		return ErrLoginAlreadyExists
	}
	s.users[user.UUID] = copyUser(*user)
	return nil
}

func (s *MemoryStore) GetFlowByUUID(_ context.Context, uuid string) (*models.FlowWithMembers, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flows[uuid]
	if !ok {
		return nil, ErrFlowNotFound
	}
	f = copyFlow(f)
	return &f, nil
}

func (s *MemoryStore) GetAllFlows(_ context.Context) ([]models.FlowWithMembers, error) {
	return s.selectFlows(func(models.FlowWithMembers) bool { return true }), nil
}

func (s *MemoryStore) GetFlowsSince(_ context.Context, since int64) ([]models.FlowWithMembers, error) {
	return s.selectFlows(func(f models.FlowWithMembers) bool {
		return f.TimeCreated >= since
	}), nil
}

func (s *MemoryStore) selectFlows(match func(models.FlowWithMembers) bool) []models.FlowWithMembers {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flows := make([]models.FlowWithMembers, 0)
	for _, f := range s.flows {
		if match(f) {
			flows = append(flows, copyFlow(f))
		}
	}
	sort.Slice(flows, func(i, j int) bool {
		if flows[i].TimeCreated != flows[j].TimeCreated {
			return flows[i].TimeCreated < flows[j].TimeCreated
		}
		return flows[i].UUID < flows[j].UUID
	})
	return flows
}

func (s *MemoryStore) AddFlow(_ context.Context, flow *models.FlowWithMembers) error {
	if err := s.checkRecord(&flow.Flow); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flows[flow.UUID]; ok {
		return ErrFlowAlreadyExists
	}

	seen := make(map[string]struct{}, len(flow.Members))
	for _, member := range flow.Members {
		if _, ok := seen[member]; ok {
			return ErrDuplicateMember
		}
		if _, ok := s.users[member]; !ok {
			return ErrMemberNotFound
		}
		seen[member] = struct{}{}
	}

	s.flows[flow.UUID] = copyFlow(*flow)
	return nil
}

func (s *MemoryStore) GetMessageByUUID(_ context.Context, uuid string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[uuid]
	if !ok {
		return nil, ErrMessageNotFound
	}
	msg := copyMessage(m.Message)
	return &msg, nil
}

func (s *MemoryStore) GetMessagesSince(_ context.Context, since int64) ([]models.Message, error) {
	return s.selectMessages(func(m models.Message) bool {
		return m.Time >= since
	}, 0, 0), nil
}

func (s *MemoryStore) CountFlowMessagesSince(_ context.Context, flowUUID string, since int64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count uint64
	for _, m := range s.messages {
		if m.FromFlow == flowUUID && m.Time >= since {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) GetFlowMessagesSince(_ context.Context, flowUUID string, since int64, offset, limit uint64) ([]models.Message, error) {
	return s.selectMessages(func(m models.Message) bool {
		return m.FromFlow == flowUUID && m.Time >= since
	}, offset, limit), nil
}

// selectMessages orders by time and then insertion order. A zero limit means
// no limit.
func (s *MemoryStore) selectMessages(match func(models.Message) bool, offset, limit uint64) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := make([]storedMessage, 0)
	for _, m := range s.messages {
		if match(m.Message) {
			stored = append(stored, m)
		}
	}
	sort.Slice(stored, func(i, j int) bool {
		if stored[i].Time != stored[j].Time {
			return stored[i].Time < stored[j].Time
		}
		return stored[i].seq < stored[j].seq
	})

	if offset >= uint64(len(stored)) {
		return []models.Message{}
	}
	stored = stored[offset:]
	if limit > 0 && limit < uint64(len(stored)) {
		stored = stored[:limit]
	}

	messages := make([]models.Message, len(stored))
	for i, m := range stored {
		messages[i] = copyMessage(m.Message)
	}
	return messages
}

func (s *MemoryStore) AddMessage(_ context.Context, message *models.Message) error {
	if err := s.checkRecord(message); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[message.UUID]; ok {
		return ErrMessageAlreadyExists
	}
	if _, ok := s.flows[message.FromFlow]; !ok {
		return ErrMissingFlow
	}
	if _, ok := s.users[message.FromUser]; !ok {
		return ErrMissingSender
	}

	s.seq++
	s.messages[message.UUID] = storedMessage{Message: copyMessage(*message), seq: s.seq}
	return nil
}

func (s *MemoryStore) UpdateMessage(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.messages[message.UUID]
	if !ok || stored.Deleted {
		return ErrMessageNotFound
	}

	updated := copyMessage(*message)
	updated.Time = stored.Time
	updated.FromUser = stored.FromUser
	updated.FromFlow = stored.FromFlow
	stored.Message = updated
	s.messages[message.UUID] = stored
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (*models.TableCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &models.TableCount{
		UserCount:    int64(len(s.users)),
		FlowCount:    int64(len(s.flows)),
		MessageCount: int64(len(s.messages)),
	}, nil
}
