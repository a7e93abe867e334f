package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
)

// RedisStorage implements the Storage interface using Redis. The game and
// its case are JSON documents; the message log is a Redis list so append
// order is creation order.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	return &RedisStorage{
		client: rdb,
		logger: logger,
	}
}

func gameKey(id uuid.UUID) string     { return "game:" + id.String() }
func caseKey(id uuid.UUID) string     { return "case:" + id.String() }
func messagesKey(id uuid.UUID) string { return "messages:" + id.String() }
func guessKey(id uuid.UUID) string    { return "guess:" + id.String() }

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (r *RedisStorage) CreateGame(ctx context.Context, g *game.Game, c *mystery.Case) error {
	g.UpdatedAt = time.Now().UTC()

	gameData, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}
	caseData, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal case: %w", err)
	}

	// Single pipeline so the game never exists without its case.
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, gameKey(g.ID), gameData, 0)
	pipe.Set(ctx, caseKey(g.ID), caseData, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to create game", "game_id", g.ID, "error", err)
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	data, err := r.client.Get(ctx, gameKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load game", "game_id", id, "error", err)
		return nil, fmt.Errorf("failed to load game: %w", err)
	}

	var g game.Game
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}
	return &g, nil
}

func (r *RedisStorage) GetCase(ctx context.Context, gameID uuid.UUID) (*mystery.Case, error) {
	data, err := r.client.Get(ctx, caseKey(gameID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to load case", "game_id", gameID, "error", err)
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	var c mystery.Case
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal case: %w", err)
	}
	return &c, nil
}

func (r *RedisStorage) SaveGame(ctx context.Context, g *game.Game) error {
	g.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}
	if err := r.client.Set(ctx, gameKey(g.ID), data, 0).Err(); err != nil {
		r.logger.Error("Failed to save game", "game_id", g.ID, "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (r *RedisStorage) AppendMessage(ctx context.Context, m *game.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := r.client.RPush(ctx, messagesKey(m.GameID), data).Err(); err != nil {
		r.logger.Error("Failed to append message", "game_id", m.GameID, "error", err)
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListMessages(ctx context.Context, gameID uuid.UUID) ([]game.Message, error) {
	rows, err := r.client.LRange(ctx, messagesKey(gameID), 0, -1).Result()
	if err != nil {
		r.logger.Error("Failed to list messages", "game_id", gameID, "error", err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]game.Message, 0, len(rows))
	for _, row := range rows {
		var m game.Message
		if err := json.Unmarshal([]byte(row), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (r *RedisStorage) UpsertGuess(ctx context.Context, g *game.Guess) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal guess: %w", err)
	}
	if err := r.client.Set(ctx, guessKey(g.GameID), data, 0).Err(); err != nil {
		r.logger.Error("Failed to upsert guess", "game_id", g.GameID, "error", err)
		return fmt.Errorf("failed to upsert guess: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetGuess(ctx context.Context, gameID uuid.UUID) (*game.Guess, error) {
	data, err := r.client.Get(ctx, guessKey(gameID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to load guess", "game_id", gameID, "error", err)
		return nil, fmt.Errorf("failed to load guess: %w", err)
	}

	var g game.Guess
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guess: %w", err)
	}
	return &g, nil
}
