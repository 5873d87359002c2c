package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	rooms    map[string]RoomRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[string]Account),
		rooms:    make(map[string]RoomRecord),
	}
}

func (s *InMemoryStore) CreateAccount(_ context.Context, username string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	account := Account{
		ID:             uuid.NewString(),
		Username:       username,
		CurrentHouse:   1,
		CurrentFloor:   1,
		CompletedTasks: []string{},
		CreatedAt:      now,
		LastActiveAt:   now,
	}
	s.accounts[account.ID] = cloneAccount(account)
	return account, nil
}

func (s *InMemoryStore) GetAccount(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return cloneAccount(account), nil
}

func (s *InMemoryStore) TouchAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	account.LastActiveAt = time.Now().UTC()
	s.accounts[id] = account
	return nil
}

func (s *InMemoryStore) UpdateAccountProgress(_ context.Context, id string, update ProgressUpdate) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	account = cloneAccount(account)
	applyProgress(&account, update)
	s.accounts[id] = cloneAccount(account)
	return account, nil
}

func (s *InMemoryStore) SaveRoom(_ context.Context, record RoomRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[record.ID] = cloneRoom(record)
	return nil
}

func (s *InMemoryStore) GetRoom(_ context.Context, id string) (RoomRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.rooms[id]
	if !ok {
		return RoomRecord{}, ErrNotFound
	}
	return cloneRoom(record), nil
}

func (s *InMemoryStore) ListActiveRooms(_ context.Context) ([]RoomRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomRecord, 0, len(s.rooms))
	for _, record := range s.rooms {
		if record.Active {
			out = append(out, cloneRoom(record))
		}
	}
	return out, nil
}

func (s *InMemoryStore) Ping(_ context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }

func cloneAccount(account Account) Account {
	c := account
	c.CompletedTasks = append([]string(nil), account.CompletedTasks...)
	return c
}

func cloneRoom(record RoomRecord) RoomRecord {
	c := record
	c.ActiveTasks = append([]string(nil), record.ActiveTasks...)
	c.CompletedTasks = append([]string(nil), record.CompletedTasks...)
	c.Participants = append([]ParticipantRecord(nil), record.Participants...)
	return c
}
