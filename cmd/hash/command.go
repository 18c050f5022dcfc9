// Package hash provides the "hash" command for computing the Merkle root
// fingerprint of a directory tree, using the same Engine the REST/coordinator
// services run, against a throwaway in-memory store.
package hash

import (
	"fmt"
	"time"

	"github.com/lucho00cuba/baseline-core/internal/hashfn"
	"github.com/lucho00cuba/baseline-core/internal/logger"
	"github.com/lucho00cuba/baseline-core/internal/merkle"
	"github.com/lucho00cuba/baseline-core/internal/model"
	"github.com/lucho00cuba/baseline-core/internal/store/memory"

	"github.com/lucho00cuba/baseline-core/cmd"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash [path]",
	Short: "Compute the Merkle root fingerprint of a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		log := logger.With("path", path, "command", "hash")

		algName, err := cmd.Flags().GetString("algorithm")
		if err != nil {
			log.Warn("failed to read algorithm flag", "error", err)
			algName = string(hashfn.SHA1)
		}
		f, err := hashfn.New(hashfn.Algorithm(algName))
		if err != nil {
			return fmt.Errorf("hash: %w", err)
		}

		log.Info("starting hash computation")
		start := time.Now()

		hashStore := memory.New(time.Now().Unix)
		engine := merkle.NewEngine(path, f, hashStore, nil, logger.Logger())

		result, err := engine.ComputeMerkleTree(cmd.Context(), path, model.NewSessionID())
		if err != nil {
			log.Error("hash computation failed", "error", err, "duration", time.Since(start))
			return err
		}

		log.Info("hash computation completed", "duration", time.Since(start), "hash", result)
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, result); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	},
}

func init() {
	hashCmd.Flags().StringP("algorithm", "a", string(hashfn.SHA1), "Hash algorithm: sha1, sha256, or blake3")
	cmd.Register(hashCmd)
}
