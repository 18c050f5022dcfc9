// Package calc provides the "calc" command for verifying that a directory
// tree matches a given expected Merkle root hash.
package calc

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

var calcCmd = &cobra.Command{
	Use:   "calc [path] [hash]",
	Short: "Verify that a directory matches the given Merkle root hash",
	Long: `Verify that a directory matches the given Merkle root hash.
Computes the Merkle root fingerprint of the specified path and compares it
with the provided hash. Exits with code 0 if they match, non-zero otherwise.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		expectedHash := args[1]
		log := logger.With("path", path, "command", "calc", "expected_hash", expectedHash)

		algName, err := cmd.Flags().GetString("algorithm")
		if err != nil {
			log.Warn("failed to read algorithm flag", "error", err)
			algName = string(hashfn.SHA1)
		}
		f, err := hashfn.New(hashfn.Algorithm(algName))
		if err != nil {
			return fmt.Errorf("calc: %w", err)
		}

		log.Info("starting hash computation for verification")
		start := time.Now()

		hashStore := memory.New(time.Now().Unix)
		engine := merkle.NewEngine(path, f, hashStore, nil, logger.Logger())
		computed, err := engine.ComputeMerkleTree(cmd.Context(), path, model.NewSessionID())
		if err != nil {
			log.Error("hash computation failed", "error", err, "duration", time.Since(start))
			return err
		}

		log.Info("hash computation completed", "duration", time.Since(start), "computed_hash", computed)

		if computed == expectedHash {
			log.Info("hash verification successful", "hash", computed)
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Hash matches: %s\n", computed); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return nil
		}

		log.Error("hash verification failed", "computed_hash", computed, "expected_hash", expectedHash)
		fmt.Fprintf(cmd.OutOrStderr(), "Hash mismatch!\nComputed: %s\nExpected: %s\n", computed, expectedHash)
		return fmt.Errorf("hash mismatch")
	},
}

func init() {
	calcCmd.Flags().StringP("algorithm", "a", string(hashfn.SHA1), "Hash algorithm: sha1, sha256, or blake3")
	cmd.Register(calcCmd)
}
