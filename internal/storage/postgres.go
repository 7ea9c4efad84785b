package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/config"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the detections table when it does not exist yet, so a
// fresh monitor can start against an empty database.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS detections (
			id            UUID PRIMARY KEY,
			user_email    TEXT NOT NULL DEFAULT '',
			session_id    UUID NOT NULL,
			category      TEXT NOT NULL,
			confidence    REAL NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			snapshot_key  TEXT NOT NULL DEFAULT '',
			email_sent    BOOLEAN NOT NULL DEFAULT FALSE,
			beep_played   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_detections_session ON detections (session_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_detections_category ON detections (category, created_at DESC)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// --- Detections ---

func (s *PostgresStore) LogDetection(ctx context.Context, rec *models.DetectionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO detections (id, user_email, session_id, category, confidence, description, snapshot_key, email_sent, beep_played, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.UserEmail, rec.SessionID, rec.Category, rec.Confidence,
		rec.Description, rec.SnapshotKey, rec.EmailSent, rec.BeepPlayed, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("log detection: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE detections SET email_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkBeepPlayed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE detections SET beep_played = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark beep played: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDetection(ctx context.Context, id uuid.UUID) (*models.DetectionRecord, error) {
	rec := &models.DetectionRecord{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_email, session_id, category, confidence, description, snapshot_key, email_sent, beep_played, created_at
		 FROM detections WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.UserEmail, &rec.SessionID, &rec.Category, &rec.Confidence,
		&rec.Description, &rec.SnapshotKey, &rec.EmailSent, &rec.BeepPlayed, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get detection: %w", err)
	}
	return rec, nil
}

// ListDetections returns a page of records, newest first, optionally filtered
// by category, session and time range.
func (s *PostgresStore) ListDetections(ctx context.Context, category, sessionID string, from, to *time.Time, limit, offset int) ([]models.DetectionRecord, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if category != "" {
		where += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, category)
		argIdx++
	}
	if sessionID != "" {
		where += fmt.Sprintf(" AND session_id = $%d::uuid", argIdx)
		args = append(args, sessionID)
		argIdx++
	}
	if from != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		where += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *to)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM detections " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count detections: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, user_email, session_id, category, confidence, description, snapshot_key, email_sent, beep_played, created_at
		 FROM detections %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list detections: %w", err)
	}
	defer rows.Close()

	var records []models.DetectionRecord
	for rows.Next() {
		var rec models.DetectionRecord
		if err := rows.Scan(&rec.ID, &rec.UserEmail, &rec.SessionID, &rec.Category, &rec.Confidence,
			&rec.Description, &rec.SnapshotKey, &rec.EmailSent, &rec.BeepPlayed, &rec.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan detection: %w", err)
		}
		records = append(records, rec)
	}
	return records, total, nil
}

// CategoryCounts aggregates alert volume per category since the given time.
func (s *PostgresStore) CategoryCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM detections WHERE created_at >= $1 GROUP BY category`, since)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[category] = n
	}
	return counts, nil
}
