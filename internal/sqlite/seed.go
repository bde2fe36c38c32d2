package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

// seedDefaultSettings inserts every default setting that is absent. Values
// the user already changed are left alone.
func seedDefaultSettings(ctx context.Context, db *sqlx.DB, now time.Time) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	stamp := formatTime(now)
	for _, s := range types.DefaultSettings {
		if _, err := tx.ExecContext(ctx, insertSettingIfAbsent, s.Key, s.Value, stamp); err != nil {
			return fmt.Errorf("seeding setting %s: %w", s.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed transaction: %w", err)
	}
	return nil
}
