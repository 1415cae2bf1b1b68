package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kapu/chess-arena/internal/arena"
	"github.com/kapu/chess-arena/internal/oracle"
)

// Repository persists final game results to Postgres. Optional: a nil
// repository is a no-op.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a finished game.
func (r *Repository) SaveResult(ctx context.Context, res *arena.Result) error {
	if r == nil || r.db == nil || res == nil {
		return nil
	}

	movesUCIRaw, _ := json.Marshal(res.MovesUCI())
	movesSANRaw, _ := json.Marshal(res.MovesSAN())
	duration := res.EndedAt.Sub(res.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO arena_games (
	    room_id, white_name, black_name,
	    outcome, fen, moves_uci, moves_san, pgn,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
	  ) ON CONFLICT (room_id) DO UPDATE SET
	    white_name=EXCLUDED.white_name,
	    black_name=EXCLUDED.black_name,
	    outcome=EXCLUDED.outcome,
	    fen=EXCLUDED.fen,
	    moves_uci=EXCLUDED.moves_uci,
	    moves_san=EXCLUDED.moves_san,
	    pgn=EXCLUDED.pgn,
	    started_at=EXCLUDED.started_at,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		res.RoomID,
		res.WhiteName, res.BlackName,
		string(res.Outcome), res.FEN,
		string(movesUCIRaw), string(movesSANRaw), BuildPGN(res),
		res.StartedAt, res.EndedAt, duration,
	)
	return err
}

// BuildPGN renders the finished game as PGN text.
func BuildPGN(res *arena.Result) string {
	if res == nil {
		return ""
	}
	pgnResult := mapOutcomeToPGN(res.Outcome)

	var b strings.Builder
	date := res.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Arena\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"room %s\"]\n", sanitizePGN(res.RoomID)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(res.WhiteName)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(res.BlackName)))
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	san := res.MovesSAN()
	for i := 0; i < len(san); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(san[i])))
		if i+1 < len(san) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(san[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func mapOutcomeToPGN(o oracle.Outcome) string {
	switch o {
	case oracle.OutcomeWhite:
		return "1-0"
	case oracle.OutcomeBlack:
		return "0-1"
	case oracle.OutcomeDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
