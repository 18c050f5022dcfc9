// Package sqlitestub backs internal/pipeline.Source with the same
// modernc.org/sqlite database the C2 hash store already uses, rather than
// introducing a second database dependency for a component spec §1 names
// as an external collaborator whose own dialect is out of scope. It reads
// the authorized_updates/site_list tables defined in
// internal/store/sqlite's schema.sql.
package sqlitestub

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lucho00cuba/baseline-core/internal/apperr"
	"github.com/lucho00cuba/baseline-core/internal/model"
)

// Source reads/writes the authorized_updates and site_list tables.
type Source struct {
	db *sql.DB
}

// New wraps an already-open *sql.DB (the same handle internal/store/sqlite
// uses) for the pipeline stub tables.
func New(db *sql.DB) *Source {
	return &Source{db: db}
}

func (s *Source) Updates(ctx context.Context) ([]model.PipelineUpdate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tc_id, timestamp, update_path, update_size, hash_value
		FROM authorized_updates
		ORDER BY timestamp ASC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "pipeline updates", err)
	}
	defer rows.Close()

	var out []model.PipelineUpdate
	for rows.Next() {
		var u model.PipelineUpdate
		var hashValue sql.NullString
		if err := rows.Scan(&u.ID, &u.TCID, &u.Timestamp, &u.UpdatePath, &u.UpdateSize, &hashValue); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "pipeline updates scan", err)
		}
		u.HashValue = hashValue.String
		out = append(out, u)
	}
	return out, nil
}

func (s *Source) Sites(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM site_list ORDER BY name`)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "pipeline sites", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "pipeline sites scan", err)
		}
		out = append(out, name)
	}
	return out, nil
}

func (s *Source) MarkHashed(ctx context.Context, updatePath, hashValue string) error {
	updatePath = strings.TrimSpace(updatePath)
	hashValue = strings.TrimSpace(hashValue)
	if updatePath == "" || hashValue == "" {
		return apperr.Validationf("update_path and hash_value must be provided")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE authorized_updates SET hash_value = ?
		WHERE id = (
			SELECT id FROM authorized_updates
			WHERE update_path = ? AND hash_value IS NULL
			ORDER BY id LIMIT 1
		)`, hashValue, updatePath)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, "pipeline mark hashed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, "pipeline mark hashed rows affected", err)
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "no unprocessed update found for path: "+updatePath)
	}
	return nil
}

func (s *Source) Health(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}
