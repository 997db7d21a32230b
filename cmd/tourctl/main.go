package main

import (
	"fmt"
	"io"
	"os"

	"tourbook/internal/bootstrap"
	"tourbook/internal/config"
	"tourbook/internal/domain"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "tourctl",
		Short:         "tourbook admin CLI",
		Long:          "Seed the catalog, provision users, mint API tokens and export bookings.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", bootstrap.ConfigPath(), "path to config.yaml")

	boot := func() (*env, error) { return openEnv(configPath) }

	// Catalog
	root.AddCommand(newSeedCmd(boot))

	// Users
	root.AddCommand(newUserCmd(boot))
	root.AddCommand(newTokenCmd(boot))

	// Operations
	root.AddCommand(newExportCmd(boot))
	root.AddCommand(newBackupCmd(boot))
	return root
}

// env is what every subcommand needs after boot.
type env struct {
	cfg    *config.Config
	logger *zerolog.Logger
	store  domain.Store
	closer io.Closer
}

func openEnv(configPath string) (*env, error) {
	cfg, logger, closer, err := bootstrap.LoadConfigAndLogger(configPath, "tourctl")
	if err != nil {
		return nil, err
	}
	store, _, err := bootstrap.OpenStore(cfg.Database, logger)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, store: store, closer: closer}, nil
}

func (e *env) Close() {
	_ = e.store.Close()
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

type bootFunc func() (*env, error)
