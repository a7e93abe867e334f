package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
)

// SQLiteStorage implements the Storage interface on SQLite. The case is
// stored as a JSON payload next to the game row, mirroring the aggregate
// ownership: deleting a game cascades to its case, messages, and guess.
type SQLiteStorage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ Storage = (*SQLiteStorage)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL CHECK (status IN ('INIT','PLAYING','GUESSING','RESULT','ENDED')),
	remaining_questions INTEGER NOT NULL CHECK (remaining_questions >= 0),
	language_mode TEXT NOT NULL CHECK (language_mode IN ('ja','en')),
	unlocked_evidence_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS cases (
	game_id TEXT PRIMARY KEY REFERENCES games(id) ON DELETE CASCADE,
	case_id TEXT NOT NULL,
	title TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	question TEXT NOT NULL,
	answer_text TEXT NOT NULL,
	language_mode TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_game_created ON messages(game_id, created_at);

CREATE TABLE IF NOT EXISTS guesses (
	game_id TEXT PRIMARY KEY REFERENCES games(id) ON DELETE CASCADE,
	killer TEXT NOT NULL,
	motive TEXT NOT NULL,
	method TEXT NOT NULL,
	trick TEXT NOT NULL,
	reasoning TEXT NOT NULL,
	score INTEGER NOT NULL,
	grade TEXT NOT NULL,
	feedback TEXT NOT NULL,
	weaknesses_top3 TEXT NOT NULL,
	solution_summary TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// NewSQLiteStorage opens (and migrates) a SQLite database at path.
func NewSQLiteStorage(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return &SQLiteStorage{db: db, logger: logger}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close sqlite database", "error", err)
		return err
	}
	return nil
}

type gameRow struct {
	ID                 string    `db:"id"`
	Status             string    `db:"status"`
	RemainingQuestions int       `db:"remaining_questions"`
	LanguageMode       string    `db:"language_mode"`
	UnlockedEvidence   int       `db:"unlocked_evidence_count"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (s *SQLiteStorage) CreateGame(ctx context.Context, g *game.Game, c *mystery.Case) error {
	g.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal case: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO games (id, status, remaining_questions, language_mode, unlocked_evidence_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID.String(), string(g.Status), g.RemainingQuestions, string(g.Language), g.UnlockedEvidence, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO cases (game_id, case_id, title, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		g.ID.String(), c.CaseID, c.Title, string(payload), g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert case: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit game creation: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	var row gameRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM games WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}

	gameID, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt game id %q: %w", row.ID, err)
	}
	return &game.Game{
		ID:                 gameID,
		Status:             game.Status(row.Status),
		RemainingQuestions: row.RemainingQuestions,
		Language:           game.Language(row.LanguageMode),
		UnlockedEvidence:   row.UnlockedEvidence,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}, nil
}

func (s *SQLiteStorage) GetCase(ctx context.Context, gameID uuid.UUID) (*mystery.Case, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM cases WHERE game_id = ?`, gameID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	var c mystery.Case
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal case: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStorage) SaveGame(ctx context.Context, g *game.Game) error {
	g.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE games SET status = ?, remaining_questions = ?, language_mode = ?, unlocked_evidence_count = ?, updated_at = ?
		 WHERE id = ?`,
		string(g.Status), g.RemainingQuestions, string(g.Language), g.UnlockedEvidence, g.UpdatedAt, g.ID.String())
	if err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("game %s does not exist", g.ID)
	}
	return nil
}

func (s *SQLiteStorage) AppendMessage(ctx context.Context, m *game.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, game_id, question, answer_text, language_mode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.GameID.String(), m.Question, m.AnswerText, string(m.Language), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListMessages(ctx context.Context, gameID uuid.UUID) ([]game.Message, error) {
	type messageRow struct {
		ID           string    `db:"id"`
		GameID       string    `db:"game_id"`
		Question     string    `db:"question"`
		AnswerText   string    `db:"answer_text"`
		LanguageMode string    `db:"language_mode"`
		CreatedAt    time.Time `db:"created_at"`
	}

	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM messages WHERE game_id = ? ORDER BY created_at, id`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]game.Message, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("corrupt message id %q: %w", row.ID, err)
		}
		messages = append(messages, game.Message{
			ID:         id,
			GameID:     gameID,
			Question:   row.Question,
			AnswerText: row.AnswerText,
			Language:   game.Language(row.LanguageMode),
			CreatedAt:  row.CreatedAt,
		})
	}
	return messages, nil
}

func (s *SQLiteStorage) UpsertGuess(ctx context.Context, g *game.Guess) error {
	weaknesses, err := json.Marshal(g.WeaknessesTop3)
	if err != nil {
		return fmt.Errorf("failed to marshal weaknesses: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO guesses (game_id, killer, motive, method, trick, reasoning, score, grade, feedback, weaknesses_top3, solution_summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(game_id) DO UPDATE SET
			killer = excluded.killer,
			motive = excluded.motive,
			method = excluded.method,
			trick = excluded.trick,
			reasoning = excluded.reasoning,
			score = excluded.score,
			grade = excluded.grade,
			feedback = excluded.feedback,
			weaknesses_top3 = excluded.weaknesses_top3,
			solution_summary = excluded.solution_summary`,
		g.GameID.String(), g.Killer, g.Motive, g.Method, g.Trick, g.Reasoning,
		g.Score, g.Grade, g.Feedback, string(weaknesses), g.SolutionSummary, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert guess: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetGuess(ctx context.Context, gameID uuid.UUID) (*game.Guess, error) {
	type guessRow struct {
		GameID          string    `db:"game_id"`
		Killer          string    `db:"killer"`
		Motive          string    `db:"motive"`
		Method          string    `db:"method"`
		Trick           string    `db:"trick"`
		Reasoning       string    `db:"reasoning"`
		Score           int       `db:"score"`
		Grade           string    `db:"grade"`
		Feedback        string    `db:"feedback"`
		WeaknessesTop3  string    `db:"weaknesses_top3"`
		SolutionSummary string    `db:"solution_summary"`
		CreatedAt       time.Time `db:"created_at"`
	}

	var row guessRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM guesses WHERE game_id = ?`, gameID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guess: %w", err)
	}

	var weaknesses []string
	if err := json.Unmarshal([]byte(row.WeaknessesTop3), &weaknesses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weaknesses: %w", err)
	}
	return &game.Guess{
		GameID:          gameID,
		Killer:          row.Killer,
		Motive:          row.Motive,
		Method:          row.Method,
		Trick:           row.Trick,
		Reasoning:       row.Reasoning,
		Score:           row.Score,
		Grade:           row.Grade,
		Feedback:        row.Feedback,
		WeaknessesTop3:  weaknesses,
		SolutionSummary: row.SolutionSummary,
		CreatedAt:       row.CreatedAt,
	}, nil
}
