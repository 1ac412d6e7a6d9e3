package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"permitnorm/internal/config"
	"permitnorm/internal/logging"
	"permitnorm/internal/storage"
	"permitnorm/internal/vocab"
)

var rootCmd = &cobra.Command{
	Use:   "permitnorm",
	Short: "Normalize AHJ permit and inspection exports",
	Long: `permitnorm merges the permit/inspection exports of one AHJ, maps free-text
categories to a closed vocabulary, merges one-row-per-inspection data into
one row per permit and writes a fixed 43-column Clean.xlsx.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(normalizeCmd, batchCmd, runsCmd, reviewCmd, vocabCmd, intakeCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every command needs. db is nil for commands that do not
// touch the run ledger.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	vocab  *vocab.Set
	db     *storage.DB
}

func newApp(withDB bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	set, err := vocab.Load(cfg.VocabPath)
	if err != nil {
		return nil, err
	}
	for _, c := range set.Conflicts {
		logger.Warn("vocabulary entry refused", zap.String("conflict", c.String()))
	}
	a := &app{cfg: cfg, logger: logger, vocab: set}
	if withDB {
		if a.db, err = storage.Open(cfg.DBPath); err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logger.Sync()
}
