package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLog persists room events in PostgreSQL.
type PostgresLog struct {
	pool *pgxpool.Pool
}

func NewPostgresLog(ctx context.Context, databaseURL string) (*PostgresLog, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initEventSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresLog{pool: pool}, nil
}

func initEventSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS room_events (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			seq BIGINT NOT NULL,
			kind TEXT NOT NULL,
			actor_id TEXT NOT NULL DEFAULT '',
			payload JSONB NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_room_events_room_seq ON room_events (room_id, seq);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init event schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (l *PostgresLog) Append(ctx context.Context, event Event) (Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	// Appends for one room arrive serialized, so max+1 cannot race with
	// itself; the unique index backstops any misuse.
	row := l.pool.QueryRow(ctx,
		`INSERT INTO room_events (id, room_id, seq, kind, actor_id, payload, created_at)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(seq), 0) + 1 FROM room_events WHERE room_id = $2), $3, $4, $5, $6)
		 RETURNING seq`,
		event.ID,
		event.RoomID,
		string(event.Kind),
		event.ActorID,
		event.Payload,
		event.CreatedAt,
	)
	if err := row.Scan(&event.Seq); err != nil {
		return Event{}, fmt.Errorf("append event: %w", err)
	}
	return event, nil
}

func (l *PostgresLog) ListByRoom(ctx context.Context, roomID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, room_id, seq, kind, actor_id, payload, created_at
		   FROM room_events WHERE room_id=$1 ORDER BY seq DESC LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	items := make([]Event, 0, limit)
	for rows.Next() {
		var (
			e    Event
			kind string
		)
		if err := rows.Scan(&e.ID, &e.RoomID, &e.Seq, &kind, &e.ActorID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Kind = Kind(kind)
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	// Reverse into ascending seq order.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

func (l *PostgresLog) Close() error {
	l.pool.Close()
	return nil
}
