// Package diff provides the "diff" command for comparing two directory
// trees by computing their Merkle root fingerprints and reporting whether
// (and where, at the top level) they diverge.
package diff

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

var diffCmd = &cobra.Command{
	Use:   "diff [pathA] [pathB]",
	Short: "Compare two directory Merkle fingerprints",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pathA := args[0]
		pathB := args[1]
		log := logger.With("pathA", pathA, "pathB", pathB, "command", "diff")

		algName, err := cmd.Flags().GetString("algorithm")
		if err != nil {
			log.Warn("failed to read algorithm flag", "error", err)
			algName = string(hashfn.SHA1)
		}
		f, err := hashfn.New(hashfn.Algorithm(algName))
		if err != nil {
			return fmt.Errorf("diff: %w", err)
		}

		log.Info("starting directory comparison")
		start := time.Now()

		hashA, err := computeOne(cmd, f, pathA)
		if err != nil {
			return err
		}
		hashB, err := computeOne(cmd, f, pathB)
		if err != nil {
			return err
		}

		log.Info("comparison completed", "duration", time.Since(start), "match", hashA == hashB)

		if hashA == hashB {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "identical: %s\n", hashA); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return nil
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n%s: %s\n", pathA, hashA, pathB, hashB); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return fmt.Errorf("directories differ")
	},
}

func computeOne(cmd *cobra.Command, f hashfn.Function, path string) (string, error) {
	hashStore := memory.New(time.Now().Unix)
	engine := merkle.NewEngine(path, f, hashStore, nil, logger.Logger())
	return engine.ComputeMerkleTree(cmd.Context(), path, model.NewSessionID())
}

func init() {
	diffCmd.Flags().StringP("algorithm", "a", string(hashfn.SHA1), "Hash algorithm: sha1, sha256, or blake3")
	cmd.Register(diffCmd)
}
