package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"call-audit-go/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	id       TEXT PRIMARY KEY,
	date     INTEGER NOT NULL,
	operator TEXT NOT NULL,
	phone    TEXT,
	duration INTEGER NOT NULL,
	audio_url TEXT,
	status   TEXT NOT NULL,
	ai_data  TEXT
);
CREATE INDEX IF NOT EXISTS idx_calls_status_date ON calls (status, date);
`

// SQLiteStore persists call records in a local sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ CallStore = (*SQLiteStore)(nil)

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Find returns matching records ordered by date ascending.
func (s *SQLiteStore) Find(ctx context.Context, f Filter) ([]*types.CallRecord, error) {
	q := sq.Select("id", "date", "operator", "phone", "duration", "audio_url", "status", "ai_data").
		From("calls").
		OrderBy("date ASC")
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	}
	if !f.From.IsZero() {
		q = q.Where(sq.GtOrEq{"date": f.From.Unix()})
	}
	if !f.To.IsZero() {
		q = q.Where(sq.LtOrEq{"date": f.To.Unix()})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var out []*types.CallRecord
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// Upsert inserts the record or replaces all mutable fields of an
// existing one.
func (s *SQLiteStore) Upsert(ctx context.Context, call *types.CallRecord) error {
	var aiData sql.NullString
	if call.Analysis != nil {
		raw, err := json.Marshal(call.Analysis)
		if err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
		aiData = sql.NullString{String: string(raw), Valid: true}
	}

	query, args, err := sq.Insert("calls").
		Columns("id", "date", "operator", "phone", "duration", "audio_url", "status", "ai_data").
		Values(call.ID, call.Date.Unix(), call.Operator, call.Phone, call.Duration, call.AudioURL, string(call.Status), aiData).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			date = excluded.date,
			operator = excluded.operator,
			phone = excluded.phone,
			duration = excluded.duration,
			audio_url = excluded.audio_url,
			status = excluded.status,
			ai_data = excluded.ai_data`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert call %s: %w", call.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	query, args, err := sq.Select("1").From("calls").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}
	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", id, err)
	}
	return true, nil
}

func scanCall(rows *sql.Rows) (*types.CallRecord, error) {
	var (
		rec    types.CallRecord
		date   int64
		status string
		phone  sql.NullString
		audio  sql.NullString
		aiData sql.NullString
	)
	if err := rows.Scan(&rec.ID, &date, &rec.Operator, &phone, &rec.Duration, &audio, &status, &aiData); err != nil {
		return nil, fmt.Errorf("scan call: %w", err)
	}
	rec.Date = time.Unix(date, 0)
	rec.Phone = phone.String
	rec.AudioURL = audio.String
	rec.Status = types.CallStatus(status)
	if aiData.Valid && aiData.String != "" {
		var analysis types.RubricResult
		if err := json.Unmarshal([]byte(aiData.String), &analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis for %s: %w", rec.ID, err)
		}
		rec.Analysis = &analysis
	}
	return &rec, nil
}
