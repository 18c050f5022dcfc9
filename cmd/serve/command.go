// Package serve provides the "serve" command, which runs the C3 REST
// boundary over a SQLite-backed C2 store until interrupted.
package serve

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lucho00cuba/baseline-core/internal/config"
	"github.com/lucho00cuba/baseline-core/internal/logger"
	"github.com/lucho00cuba/baseline-core/internal/pipeline"
	"github.com/lucho00cuba/baseline-core/internal/pipeline/sqlitestub"
	"github.com/lucho00cuba/baseline-core/internal/restapi"
	"github.com/lucho00cuba/baseline-core/internal/store/sqlite"

	"github.com/lucho00cuba/baseline-core/cmd"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST service over the local SQLite baseline store",
	RunE: func(c *cobra.Command, args []string) error {
		envFile, _ := c.Flags().GetString("env-file")
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}

		log := logger.With("component", "serve", "site", cfg.SiteName)

		db, err := sqlite.Open(cfg.SQLitePath, logger.Logger())
		if err != nil {
			return err
		}
		defer db.Close()

		var pipelineSource pipeline.Source
		if cfg.IsCore() {
			pipelineSource = sqlitestub.New(db.DB())
		}

		srv := restapi.NewServer(db, db, pipelineSource, recordCounter{db}, db, cfg.SiteName, cfg.IsCore(), logger.Logger())

		httpServer := &http.Server{
			Addr:    cfg.RESTAPIHost + ":" + strconv.Itoa(cfg.RESTAPIPort),
			Handler: srv,
		}

		ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("REST service listening", "addr", httpServer.Addr)
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
		case <-ctx.Done():
			log.Info("shutting down REST service")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		}
		return nil
	},
}

type recordCounter struct {
	db *sqlite.Store
}

func (r recordCounter) HashRecordCount() (int64, error) {
	return r.db.Counts(context.Background())
}

func (r recordCounter) LogEntryCount() (int64, error) {
	return r.db.LogCounts(context.Background())
}

func init() {
	serveCmd.Flags().String("env-file", ".env", "Path to a .env file layered under real environment variables")
	cmd.Register(serveCmd)
}
