// Package coordinate provides the "coordinate" command, which runs the C5
// reconciliation loop: once with --once, or continuously on the configured
// interval otherwise.
package coordinate

import (
	"os/signal"
	"syscall"

	"github.com/lucho00cuba/baseline-core/internal/config"
	"github.com/lucho00cuba/baseline-core/internal/coordinator"
	"github.com/lucho00cuba/baseline-core/internal/hashfn"
	"github.com/lucho00cuba/baseline-core/internal/logger"
	"github.com/lucho00cuba/baseline-core/internal/merkle"
	"github.com/lucho00cuba/baseline-core/internal/pipeline"
	"github.com/lucho00cuba/baseline-core/internal/pipeline/sqlitestub"
	"github.com/lucho00cuba/baseline-core/internal/restclient"
	"github.com/lucho00cuba/baseline-core/internal/store/sqlite"

	"github.com/lucho00cuba/baseline-core/cmd"
	"github.com/spf13/cobra"
)

var coordinateCmd = &cobra.Command{
	Use:   "coordinate",
	Short: "Run the C5 reconciliation loop (verify integrity, dispatch core/remote work, forward logs)",
	RunE: func(c *cobra.Command, args []string) error {
		envFile, _ := c.Flags().GetString("env-file")
		once, _ := c.Flags().GetBool("once")

		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}

		log := logger.With("component", "coordinate", "site", cfg.SiteName)

		db, err := sqlite.Open(cfg.SQLitePath, logger.Logger())
		if err != nil {
			return err
		}
		defer db.Close()

		f, err := hashfn.New(hashfn.Algorithm(cfg.HashAlgorithm))
		if err != nil {
			return err
		}

		engine := merkle.NewEngine(cfg.Baseline, f, db, nil, logger.Logger())

		var pipelineSource pipeline.Source
		var remote coordinator.RemoteReporter
		if cfg.IsCore() {
			pipelineSource = sqlitestub.New(db.DB())
		} else {
			remote = restclient.New(cfg.CoreAPIURL(), cfg.RequestTimeout, cfg.MaxRetries, cfg.InnerAttempts, cfg.InnerDelay, cfg.OuterDelay, logger.Logger())
		}

		coord := coordinator.New(db, db, engine, pipelineSource, remote, cfg.SiteName, cfg.Baseline, cfg.IsCore(), cfg.ShortCircuitEqualSubtrees, logger.Logger())

		if once {
			result := coord.Run(c.Context())
			if result.PartialFailure {
				log.Error("coordinator pass completed with partial failure", "error_count", len(result.Errors))
				return result.Errors[0]
			}
			log.Info("coordinator pass completed successfully")
			return nil
		}

		ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		coordinator.RunLoop(ctx, coord, cfg.CoordinatorInterval, logger.Logger())
		return nil
	},
}

func init() {
	coordinateCmd.Flags().String("env-file", ".env", "Path to a .env file layered under real environment variables")
	coordinateCmd.Flags().Bool("once", false, "Run a single reconciliation pass and exit instead of looping")
	cmd.Register(coordinateCmd)
}
