package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goroute-booking/internal/preferences/migrations"
	"github.com/pressly/goose/v3"
)

// PostgresStore keeps settings in goroute.preferences, one row per storage
// key. Kiosks sharing a database use it so a restart keeps the display.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(database *sql.DB) *PostgresStore {
	return &PostgresStore{db: database}
}

// Migrate brings goroute.preferences up to date
func (p *PostgresStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, p.db, "."); err != nil {
		return fmt.Errorf("migrating preferences: %w", err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context, key string) (Settings, bool, error) {
	var s Settings
	err := p.db.QueryRowContext(ctx, `
		SELECT theme, language FROM goroute.preferences
		WHERE storage_key = $1`, key).Scan(&s.Theme, &s.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, fmt.Errorf("loading preferences: %w", err)
	}
	return s, true, nil
}

func (p *PostgresStore) Save(ctx context.Context, key string, s Settings) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO goroute.preferences (storage_key, theme, language, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (storage_key) DO UPDATE
		SET theme = EXCLUDED.theme, language = EXCLUDED.language, updated_at = NOW()`,
		key, string(s.Theme), string(s.Language))
	if err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

// PruneStale deletes records not touched for retentionDays and returns how
// many went.
func (p *PostgresStore) PruneStale(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %d", retentionDays)
	}
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM goroute.preferences
		WHERE updated_at < NOW() - make_interval(days => $1)`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("pruning preferences: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned preferences: %w", err)
	}
	return n, nil
}
