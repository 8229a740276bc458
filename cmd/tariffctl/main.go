// Package main implements tariffctl, the administrative CLI for the
// tariffstack evidence pipeline and duty calculator (spec.md §6):
// `ingest`, `reindex-chunks`, `verify`, `review list|resolve|dismiss`,
// and `stats`. Command implementations are split across cmd_*.go
// files; this file holds the entry point, root command, and global
// flags, mirroring the teacher's cmd/nerd/main.go layout.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tariffstack/internal/logging"
)

var (
	verbose    bool
	workspace  string
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "tariffctl",
	Short:         "Admin CLI for the tariffstack tariff evidence pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `tariffctl drives the ingestion orchestrator, the evidence
Write Gate, and the temporal tariff store from the command line:
fetching trusted-source documents, rebuilding chunk embeddings,
running the Reader/Validator verification pipeline for a given HTS
code and program, and triaging the needs-review queue.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: <workspace>/.tariffstack/config.yaml)")

	rootCmd.AddCommand(
		ingestCmd,
		reindexChunksCmd,
		verifyCmd,
		reviewCmd,
		statsCmd,
	)
}

// resolvedConfigPath returns --config, or its workspace-relative
// default when unset.
func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	ws := workspace
	if ws == "" {
		ws, _ = os.Getwd()
	}
	return filepath.Join(ws, ".tariffstack", "config.yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
