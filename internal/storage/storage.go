// Package storage persists the game aggregate. The engine treats this as
// an external collaborator: not-found is reported as a nil value, and the
// engine maps it to its own error taxonomy.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// Storage defines the interface for game persistence.
type Storage interface {
	HealthChecker
	Closer

	// CreateGame persists a new game together with its case. The pair is
	// written atomically; a game without a case is an integrity breach.
	CreateGame(ctx context.Context, g *game.Game, c *mystery.Case) error

	// GetGame retrieves a game by id. Returns nil if it doesn't exist.
	GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error)

	// GetCase retrieves the case owned by a game. Returns nil if absent.
	GetCase(ctx context.Context, gameID uuid.UUID) (*mystery.Case, error)

	// SaveGame updates an existing game's mutable fields.
	SaveGame(ctx context.Context, g *game.Game) error

	// AppendMessage appends one question/answer exchange to the game's
	// message log. Messages are never mutated after creation.
	AppendMessage(ctx context.Context, m *game.Message) error

	// ListMessages returns the game's messages ordered by creation time.
	ListMessages(ctx context.Context, gameID uuid.UUID) ([]game.Message, error)

	// UpsertGuess creates or overwrites the game's single guess record.
	UpsertGuess(ctx context.Context, g *game.Guess) error

	// GetGuess retrieves the game's guess. Returns nil if none exists.
	GetGuess(ctx context.Context, gameID uuid.UUID) (*game.Guess, error)
}
