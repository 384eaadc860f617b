package cookies

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/catermarket/caterauth/internal/dbx"
)

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository keeps cookie records in the local database, so every
// process opening the same file shares one jar. The table is created by
// the storage migrations.
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// WithClock replaces the time source used for expiry checks.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func expiresAt(rec record) int64 {
	if rec.Expires.IsZero() {
		return 0
	}
	return rec.Expires.UnixMilli()
}

func (r *SQLiteRepository) get(ctx context.Context, db dbx.DBTX, name string, now time.Time) (*http.Cookie, error) {
	var raw []byte
	err := db.QueryRowContext(ctx, `SELECT record FROM cookies WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cookie[%s]: %w", name, err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode cookie[%s]: %w", name, err)
	}
	if rec.expired(now) {
		return nil, nil
	}
	return rec.cookie(), nil
}

// GetMany reads names in one snapshot. Missing and expired cookies are
// absent from the map.
func (r *SQLiteRepository) GetMany(ctx context.Context, names []string) (map[string]*http.Cookie, error) {
	out := make(map[string]*http.Cookie, len(names))
	now := r.now()
	err := r.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		for _, n := range names {
			c, err := r.get(ctx, tx, n, now)
			if err != nil {
				return err
			}
			if c != nil {
				out[n] = c
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetMany writes all cookies in one transaction and prunes rows whose
// expiry has passed. A cookie that is already expired is deleted instead.
func (r *SQLiteRepository) SetMany(ctx context.Context, cookies []*http.Cookie) error {
	now := r.now()
	return r.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cookies WHERE expires_at > 0 AND expires_at <= ?`, now.UnixMilli()); err != nil {
			return fmt.Errorf("failed to prune cookies: %w", err)
		}
		for _, c := range cookies {
			rec := toRecord(c)
			if rec.expired(now) {
				if _, err := tx.ExecContext(ctx, `DELETE FROM cookies WHERE name = ?`, c.Name); err != nil {
					return fmt.Errorf("failed to delete cookie[%s]: %w", c.Name, err)
				}
				continue
			}
			payload, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO cookies (name, record, expires_at) VALUES (?, ?, ?)
				ON CONFLICT(name) DO UPDATE SET record = excluded.record, expires_at = excluded.expires_at
			`, c.Name, payload, expiresAt(rec))
			if err != nil {
				return fmt.Errorf("failed to set cookie[%s]: %w", c.Name, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteMany(ctx context.Context, names []string) error {
	return r.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		for _, n := range names {
			if _, err := tx.ExecContext(ctx, `DELETE FROM cookies WHERE name = ?`, n); err != nil {
				return fmt.Errorf("failed to delete cookie[%s]: %w", n, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*http.Cookie, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT record FROM cookies`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cookies: %w", err)
	}
	defer rows.Close()

	now := r.now()
	var out []*http.Cookie
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan cookie row: %w", err)
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if !rec.expired(now) {
			out = append(out, rec.cookie())
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cookie rows: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	starter, ok := r.db.(dbx.TxStarter)
	if !ok {
		return fn(ctx, r.db)
	}
	return dbx.WithTx(ctx, starter, nil, fn)
}
