package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-hopboard/pkg/boarddto"
)

const schemaBoardMoves = `CREATE TABLE IF NOT EXISTS board_moves (
    session_id   TEXT        NOT NULL,
    epoch        INTEGER     NOT NULL,
    seq          INTEGER     NOT NULL,
    outcome      TEXT        NOT NULL,
    piece_id     INTEGER     NOT NULL,
    color        TEXT        NOT NULL,
    kind         TEXT        NOT NULL,
    from_place   TEXT        NOT NULL,
    to_place     TEXT        NOT NULL,
    captured_id  INTEGER,
    captured     TEXT,
    clock_ms     BIGINT      NOT NULL,
    recorded_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (session_id, epoch, seq)
)`

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
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
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schemaBoardMoves); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create board_moves: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// moveRow is one board_moves row.
type moveRow struct {
	SessionID  string
	Epoch      int
	Seq        int
	Outcome    string
	PieceID    int
	Color      string
	Kind       string
	From       string
	To         string
	CapturedID sql.NullInt64
	Captured   sql.NullString
	ClockMS    int64
	RecordedAt time.Time
}

// rowFor maps a finished-move event to a row; ok is false for events that
// carry no move or are not terminal.
func rowFor(ev boarddto.Event, epoch int) (moveRow, bool) {
	if ev.Move == nil {
		return moveRow{}, false
	}
	if ev.Type != eventMoveCompleted && ev.Type != eventMoveAbandoned {
		return moveRow{}, false
	}
	m := ev.Move
	row := moveRow{
		SessionID:  ev.State.SessionID,
		Epoch:      epoch,
		Seq:        m.Seq,
		Outcome:    strings.TrimPrefix(ev.Type, "move_"),
		PieceID:    m.Piece,
		Color:      m.Color,
		Kind:       m.Kind,
		From:       placementText(m.From),
		To:         placementText(m.To),
		ClockMS:    ev.ClockMS,
		RecordedAt: ev.At,
	}
	if row.RecordedAt.IsZero() {
		row.RecordedAt = time.Now().UTC()
	}
	if m.Capture != nil {
		row.CapturedID = sql.NullInt64{Int64: int64(m.Capture.Piece), Valid: true}
		row.Captured = sql.NullString{String: m.Capture.Color + " " + m.Capture.Kind, Valid: true}
	}
	return row, true
}

func placementText(p boarddto.Placement) string {
	if p.Square != "" {
		return p.Square
	}
	if p.Slot != nil {
		return fmt.Sprintf("%s:%d", p.Kind, *p.Slot)
	}
	return p.Kind
}

// SaveMove upserts one finished move. Events without a move are ignored.
func (r *Repository) SaveMove(ctx context.Context, ev boarddto.Event, epoch int) error {
	if r == nil || r.db == nil {
		return nil
	}
	row, ok := rowFor(ev, epoch)
	if !ok {
		return nil
	}
	q := `INSERT INTO board_moves (
        session_id, epoch, seq, outcome, piece_id, color, kind,
        from_place, to_place, captured_id, captured, clock_ms, recorded_at
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
      ) ON CONFLICT (session_id, epoch, seq) DO UPDATE SET
        outcome=EXCLUDED.outcome,
        clock_ms=EXCLUDED.clock_ms,
        recorded_at=EXCLUDED.recorded_at`
	_, err := r.db.ExecContext(ctx, q,
		row.SessionID, row.Epoch, row.Seq, row.Outcome, row.PieceID, row.Color, row.Kind,
		row.From, row.To, row.CapturedID, row.Captured, row.ClockMS, row.RecordedAt,
	)
	return err
}

// CountMoves returns how many moves are stored for a session.
func (r *Repository) CountMoves(ctx context.Context, sessionID string) (int, error) {
	if r == nil || r.db == nil {
		return 0, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM board_moves WHERE session_id=$1`, sessionID).Scan(&n)
	return n, err
}
