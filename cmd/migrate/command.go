// Package migrate provides the "migrate" command, which provisions a fresh
// SQLite baseline store (and, with --seed, a small set of pipeline-stub
// demo rows) before a site's first "serve"/"coordinate" run.
package migrate

import (
	"context"

	"github.com/lucho00cuba/baseline-core/internal/config"
	"github.com/lucho00cuba/baseline-core/internal/logger"
	"github.com/lucho00cuba/baseline-core/internal/store/sqlite"

	"github.com/lucho00cuba/baseline-core/cmd"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the C2/pipeline-stub schema to a fresh SQLite file",
	RunE: func(c *cobra.Command, args []string) error {
		envFile, _ := c.Flags().GetString("env-file")
		seed, _ := c.Flags().GetBool("seed")

		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		log := logger.With("component", "migrate", "path", cfg.SQLitePath)

		db, err := sqlite.Open(cfg.SQLitePath, logger.Logger())
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("schema applied")

		if seed {
			if err := seedDemoData(c.Context(), db, cfg); err != nil {
				return err
			}
			log.Info("demo data seeded")
		}

		return nil
	},
}

// seedDemoData writes one authorized_updates row and the deployment's own
// site name into site_list, so a freshly migrated core database has
// something for GET /api/pipeline?action=updates|sites to return on a demo
// run (SPEC_FULL.md §4.6).
func seedDemoData(ctx context.Context, db *sqlite.Store, cfg *config.Config) error {
	sql := db.DB()
	if _, err := sql.ExecContext(ctx, `
		INSERT INTO authorized_updates (tc_id, timestamp, update_path, update_size, hash_value)
		VALUES (1, strftime('%s','now'), ?, 0, NULL)`, cfg.Baseline); err != nil {
		return err
	}
	if _, err := sql.ExecContext(ctx, `
		INSERT OR IGNORE INTO site_list (name) VALUES (?)`, cfg.SiteName); err != nil {
		return err
	}
	return nil
}

func init() {
	migrateCmd.Flags().String("env-file", ".env", "Path to a .env file layered under real environment variables")
	migrateCmd.Flags().Bool("seed", false, "Also insert a small set of pipeline-stub demo rows")
	cmd.Register(migrateCmd)
}
