// Package cli implements the ledgerstore command line interface.
package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/eigerco/ledgerstore/pkg/log"
	"github.com/eigerco/ledgerstore/pkg/store"
)

// envConfig carries defaults read from the environment; flags override.
type envConfig struct {
	DSN       string `env:"LEDGERSTORE_DSN"`
	Namespace string `env:"LEDGERSTORE_NAMESPACE" envDefault:"default"`
	Key       string `env:"LEDGERSTORE_KEY"`
}

// RootOptions holds the global flags shared by every command.
type RootOptions struct {
	DSN       string
	Namespace string
	Key       string
	Write     bool
	Verbose   bool
}

// NewRootCommand creates the ledgerstore root command.
func NewRootCommand() *cobra.Command {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		cfg = envConfig{Namespace: store.DefaultNamespace}
	}

	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ledgerstore",
		Short: "Namespaced key/value, time-series and event store",
		Long: `ledgerstore stores key/value pairs, time series and event-sourced
dictionaries in one namespaced physical store.

The backend is selected by the DSN scheme:
  pebble://<dir>   embedded pebble database
  sqlite://<file>  relational sqlite database
  memory://        in-memory store (testing only)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := log.ParseLogLevel("info")
			if opts.Verbose {
				level, _ = log.ParseLogLevel("debug")
			}
			log.Init(log.Options{LogLevel: level, Type: log.ConsoleLogger})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", cfg.DSN, "backend DSN (env LEDGERSTORE_DSN)")
	cmd.PersistentFlags().StringVar(&opts.Namespace, "namespace", cfg.Namespace, "namespace (env LEDGERSTORE_NAMESPACE)")
	cmd.PersistentFlags().StringVar(&opts.Key, "key", cfg.Key, "hex encryption key (env LEDGERSTORE_KEY)")
	cmd.PersistentFlags().BoolVar(&opts.Write, "write", false, "open the store in read-write mode")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newGetCommand(opts),
		newSetCommand(opts),
		newDelCommand(opts),
		newKeysCommand(opts),
		newFindCommand(opts),
		newTSCommand(opts),
		newEventsCommand(opts),
		newCurrentCommand(opts),
		newApplyCommand(opts),
		newPruneCommand(opts),
		newDiscardCommand(opts),
	)

	return cmd
}

// openStore opens a session from the global flags.
func openStore(opts *RootOptions) (*store.Store, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("no DSN given (use --dsn or LEDGERSTORE_DSN)")
	}

	storeOpts := []store.Option{
		store.WithNamespace(opts.Namespace),
		store.WithLogger(log.Store),
	}
	if opts.Write {
		storeOpts = append(storeOpts, store.ReadWrite())
	}
	if opts.Key != "" {
		key, err := hex.DecodeString(opts.Key)
		if err != nil {
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
		storeOpts = append(storeOpts, store.WithEncryptionKey(key))
	}

	return store.Open(opts.DSN, storeOpts...)
}
