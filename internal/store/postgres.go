package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists accounts and room snapshots in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			current_house INTEGER NOT NULL DEFAULT 1,
			current_floor INTEGER NOT NULL DEFAULT 1,
			completed_tasks JSONB NOT NULL DEFAULT '[]',
			total_score INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			last_active_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_last_active ON accounts (last_active_at DESC);`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			host_id TEXT NOT NULL,
			house_id INTEGER NOT NULL,
			floor INTEGER NOT NULL,
			max_players INTEGER NOT NULL,
			active_tasks JSONB NOT NULL DEFAULT '[]',
			completed_tasks JSONB NOT NULL DEFAULT '[]',
			participants JSONB NOT NULL DEFAULT '[]',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			started BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			last_activity_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_active_activity ON rooms (active, last_activity_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, username string) (Account, error) {
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

	completed, err := json.Marshal(account.CompletedTasks)
	if err != nil {
		return Account{}, fmt.Errorf("marshal completed tasks: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO accounts (id, username, current_house, current_floor, completed_tasks, total_score, created_at, last_active_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID,
		account.Username,
		account.CurrentHouse,
		account.CurrentFloor,
		completed,
		account.TotalScore,
		account.CreatedAt,
		account.LastActiveAt,
	)
	if err != nil {
		return Account{}, fmt.Errorf("insert account: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, username, current_house, current_floor, completed_tasks, total_score, created_at, last_active_at
		   FROM accounts WHERE id=$1`,
		id,
	)
	account, err := scanAccount(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) TouchAccount(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET last_active_at=$2 WHERE id=$1`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("touch account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateAccountProgress(ctx context.Context, id string, update ProgressUpdate) (Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`SELECT id, username, current_house, current_floor, completed_tasks, total_score, created_at, last_active_at
		   FROM accounts WHERE id=$1 FOR UPDATE`,
		id,
	)
	account, err := scanAccount(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("load account: %w", err)
	}

	applyProgress(&account, update)

	completed, err := json.Marshal(account.CompletedTasks)
	if err != nil {
		return Account{}, fmt.Errorf("marshal completed tasks: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE accounts SET current_house=$2, current_floor=$3, completed_tasks=$4, total_score=$5, last_active_at=$6
		  WHERE id=$1`,
		account.ID,
		account.CurrentHouse,
		account.CurrentFloor,
		completed,
		account.TotalScore,
		account.LastActiveAt,
	)
	if err != nil {
		return Account{}, fmt.Errorf("update account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, fmt.Errorf("commit tx: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) SaveRoom(ctx context.Context, record RoomRecord) error {
	activeTasks, err := json.Marshal(record.ActiveTasks)
	if err != nil {
		return fmt.Errorf("marshal active tasks: %w", err)
	}
	completedTasks, err := json.Marshal(record.CompletedTasks)
	if err != nil {
		return fmt.Errorf("marshal completed tasks: %w", err)
	}
	participants, err := json.Marshal(record.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO rooms (
			id, name, host_id, house_id, floor, max_players,
			active_tasks, completed_tasks, participants, active, started, created_at, last_activity_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
		)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			host_id=EXCLUDED.host_id,
			house_id=EXCLUDED.house_id,
			floor=EXCLUDED.floor,
			max_players=EXCLUDED.max_players,
			active_tasks=EXCLUDED.active_tasks,
			completed_tasks=EXCLUDED.completed_tasks,
			participants=EXCLUDED.participants,
			active=EXCLUDED.active,
			started=EXCLUDED.started,
			last_activity_at=EXCLUDED.last_activity_at`,
		record.ID,
		record.Name,
		record.HostID,
		record.HouseID,
		record.Floor,
		record.MaxPlayers,
		activeTasks,
		completedTasks,
		participants,
		record.Active,
		record.Started,
		record.CreatedAt,
		record.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRoom(ctx context.Context, id string) (RoomRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, host_id, house_id, floor, max_players,
		        active_tasks, completed_tasks, participants, active, started, created_at, last_activity_at
		   FROM rooms WHERE id=$1`,
		id,
	)
	record, err := scanRoom(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return RoomRecord{}, ErrNotFound
		}
		return RoomRecord{}, fmt.Errorf("get room: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListActiveRooms(ctx context.Context) ([]RoomRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, host_id, house_id, floor, max_players,
		        active_tasks, completed_tasks, participants, active, started, created_at, last_activity_at
		   FROM rooms WHERE active=TRUE ORDER BY last_activity_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	out := make([]RoomRecord, 0, 8)
	for rows.Next() {
		record, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room row: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		account   Account
		completed []byte
	)
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.CurrentHouse,
		&account.CurrentFloor,
		&completed,
		&account.TotalScore,
		&account.CreatedAt,
		&account.LastActiveAt,
	); err != nil {
		return Account{}, err
	}
	if err := json.Unmarshal(completed, &account.CompletedTasks); err != nil {
		return Account{}, fmt.Errorf("decode completed tasks: %w", err)
	}
	return account, nil
}

func scanRoom(row pgx.Row) (RoomRecord, error) {
	var (
		record         RoomRecord
		activeTasks    []byte
		completedTasks []byte
		participants   []byte
	)
	if err := row.Scan(
		&record.ID,
		&record.Name,
		&record.HostID,
		&record.HouseID,
		&record.Floor,
		&record.MaxPlayers,
		&activeTasks,
		&completedTasks,
		&participants,
		&record.Active,
		&record.Started,
		&record.CreatedAt,
		&record.LastActivityAt,
	); err != nil {
		return RoomRecord{}, err
	}
	if err := json.Unmarshal(activeTasks, &record.ActiveTasks); err != nil {
		return RoomRecord{}, fmt.Errorf("decode active tasks: %w", err)
	}
	if err := json.Unmarshal(completedTasks, &record.CompletedTasks); err != nil {
		return RoomRecord{}, fmt.Errorf("decode completed tasks: %w", err)
	}
	if err := json.Unmarshal(participants, &record.Participants); err != nil {
		return RoomRecord{}, fmt.Errorf("decode participants: %w", err)
	}
	return record, nil
}

func applyProgress(account *Account, update ProgressUpdate) {
	if update.HouseID > 0 {
		account.CurrentHouse = update.HouseID
	}
	if update.Floor > 0 {
		account.CurrentFloor = update.Floor
	}
	for _, id := range update.TaskIDs {
		if !containsTask(account.CompletedTasks, id) {
			account.CompletedTasks = append(account.CompletedTasks, id)
		}
	}
	account.TotalScore += update.ScoreDelta
	account.LastActiveAt = time.Now().UTC()
}

func containsTask(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
