package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
)

// MockStorage is an in-memory Storage for tests. Error fields let tests
// force failures per operation.
type MockStorage struct {
	mu       sync.Mutex
	games    map[uuid.UUID]*game.Game
	cases    map[uuid.UUID]*mystery.Case
	messages map[uuid.UUID][]game.Message
	guesses  map[uuid.UUID]*game.Guess

	CreateGameErr    error
	GetGameErr       error
	SaveGameErr      error
	AppendMessageErr error
	ListMessagesErr  error
	UpsertGuessErr   error
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		games:    make(map[uuid.UUID]*game.Game),
		cases:    make(map[uuid.UUID]*mystery.Case),
		messages: make(map[uuid.UUID][]game.Message),
		guesses:  make(map[uuid.UUID]*game.Guess),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error { return nil }

func (m *MockStorage) Close() error { return nil }

func (m *MockStorage) CreateGame(ctx context.Context, g *game.Game, c *mystery.Case) error {
	if m.CreateGameErr != nil {
		return m.CreateGameErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	gc := *g
	cc := *c
	m.games[g.ID] = &gc
	m.cases[g.ID] = &cc
	return nil
}

func (m *MockStorage) GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	if m.GetGameErr != nil {
		return nil, m.GetGameErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	gc := *g
	return &gc, nil
}

func (m *MockStorage) GetCase(ctx context.Context, gameID uuid.UUID) (*mystery.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[gameID]
	if !ok {
		return nil, nil
	}
	cc := *c
	return &cc, nil
}

func (m *MockStorage) SaveGame(ctx context.Context, g *game.Game) error {
	if m.SaveGameErr != nil {
		return m.SaveGameErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	gc := *g
	m.games[g.ID] = &gc
	return nil
}

func (m *MockStorage) AppendMessage(ctx context.Context, msg *game.Message) error {
	if m.AppendMessageErr != nil {
		return m.AppendMessageErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.GameID] = append(m.messages[msg.GameID], *msg)
	return nil
}

func (m *MockStorage) ListMessages(ctx context.Context, gameID uuid.UUID) ([]game.Message, error) {
	if m.ListMessagesErr != nil {
		return nil, m.ListMessagesErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := make([]game.Message, len(m.messages[gameID]))
	copy(msgs, m.messages[gameID])
	return msgs, nil
}

func (m *MockStorage) UpsertGuess(ctx context.Context, g *game.Guess) error {
	if m.UpsertGuessErr != nil {
		return m.UpsertGuessErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	gc := *g
	m.guesses[g.GameID] = &gc
	return nil
}

func (m *MockStorage) GetGuess(ctx context.Context, gameID uuid.UUID) (*game.Guess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.guesses[gameID]
	if !ok {
		return nil, nil
	}
	gc := *g
	return &gc, nil
}

// DeleteGame removes a game and its aggregate. Test helper.
func (m *MockStorage) DeleteGame(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	delete(m.cases, id)
	delete(m.messages, id)
	delete(m.guesses, id)
}
