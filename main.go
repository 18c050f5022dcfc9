// Package main is the entry point for the baseline-core CLI application.
// It initializes all subcommands and executes the root command.
package main

import (
	"github.com/lucho00cuba/baseline-core/cmd"
	_ "github.com/lucho00cuba/baseline-core/cmd/calc"
	_ "github.com/lucho00cuba/baseline-core/cmd/coordinate"
	_ "github.com/lucho00cuba/baseline-core/cmd/diff"
	_ "github.com/lucho00cuba/baseline-core/cmd/hash"
	_ "github.com/lucho00cuba/baseline-core/cmd/migrate"
	_ "github.com/lucho00cuba/baseline-core/cmd/serve"
)

// main is the entry point of the application.
// It executes the root command which handles all CLI interactions.
func main() {
	cmd.Execute()
}
