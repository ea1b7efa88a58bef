// Package gamestore keeps finished and in-progress games in a sqlite
// database.
package gamestore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"
	_ "modernc.org/sqlite"

	"github.com/domino14/gridwar/game"
	"github.com/domino14/gridwar/move"
)

var ErrNotFound = errors.New("game not found")

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	players TEXT NOT NULL,
	config TEXT NOT NULL,
	history TEXT NOT NULL,
	winner TEXT NOT NULL,
	plies INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS games_created_at ON games(created_at);
`

// Record is one stored game.
type Record struct {
	ID      string             `json:"id" yaml:"id"`
	Created time.Time          `json:"created" yaml:"created"`
	Players string             `json:"players" yaml:"players"`
	Config  game.VariantConfig `json:"config" yaml:"config"`
	History []move.Move        `json:"history" yaml:"history"`
	Winner  game.Winner        `json:"winner" yaml:"winner"`
	Plies   int                `json:"plies" yaml:"plies"`
}

// NewID returns a random identifier for a game.
func NewID() string {
	return hex.EncodeToString(frand.Bytes(8))
}

// RecordFromState builds a record for st. Blocks placed at the start are
// not part of the history, so Replay only reproduces games without them.
func RecordFromState(id, players string, st *game.GameState) *Record {
	if id == "" {
		id = NewID()
	}
	return &Record{
		ID:      id,
		Created: time.Now().UTC(),
		Players: players,
		Config:  st.Config,
		History: append([]move.Move(nil), st.History...),
		Winner:  st.Winner,
		Plies:   len(st.History),
	}
}

// Replay rebuilds the final state of a record by playing its history from
// an empty board.
func (r *Record) Replay() (*game.GameState, error) {
	cfg := r.Config
	cfg.RandomBlocks = 0
	st, err := game.CreateGame(cfg)
	if err != nil {
		return nil, err
	}
	for i := range r.History {
		st, err = game.ApplyMove(st, &r.History[i])
		if err != nil {
			return nil, fmt.Errorf("replaying move %d of %s: %w", i+1, r.ID, err)
		}
	}
	return st, nil
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer at a time.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("opened-game-store")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a record.
func (s *Store) Save(ctx context.Context, r *Record) error {
	cfg, err := json.Marshal(r.Config)
	if err != nil {
		return err
	}
	hist, err := json.Marshal(r.History)
	if err != nil {
		return err
	}
	winner, err := json.Marshal(r.Winner)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO games
		(id, created_at, players, config, history, winner, plies)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Created.UnixMilli(), r.Players, string(cfg), string(hist), string(winner), r.Plies)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r                     Record
		created               int64
		cfg, hist, winnerJSON string
	)
	if err := row.Scan(&r.ID, &created, &r.Players, &cfg, &hist, &winnerJSON, &r.Plies); err != nil {
		return nil, err
	}
	r.Created = time.UnixMilli(created).UTC()
	if err := json.Unmarshal([]byte(cfg), &r.Config); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(hist), &r.History); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(winnerJSON), &r.Winner); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, created_at, players, config, history, winner, plies
		FROM games WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// List returns the most recent games first.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, players, config, history, winner, plies
		FROM games ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Count returns the number of stored games.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n)
	return n, err
}
