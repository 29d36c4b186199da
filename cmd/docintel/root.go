// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/docintel/internal/config"
	"github.com/sigil-dev/docintel/internal/secrets"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// secretStoreFactory creates the secrets.Store used for keyring:// values
// and the secret commands. Tests substitute an in-memory store.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// cli carries state shared by every subcommand of one root command.
type cli struct {
	v *viper.Viper
}

// NewRootCmd creates the root docintel command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "docintel",
		Short:         "docintel answers questions from your documents",
		Long:          "docintel ingests PDF and text documents, indexes them in a vector store and answers questions grounded in the retrieved passages.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newIngestCmd(c),
		newIndexCmd(c),
		newQueryCmd(c),
		newCollectionCmd(c),
		newServeCmd(c),
		newDoctorCmd(c),
		newSecretCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper layers flags over DOCINTEL_* env over the config file over
// defaults. A .env file in the working directory is loaded first.
func (c *cli) initViper(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "reading .env: %v", err)
	}

	v := c.v
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "reading config file: %v", err)
		}
	} else {
		// SetConfigType is omitted so viper never matches the bare
		// ./docintel binary as a config file.
		v.SetConfigName("docintel")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/docintel")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "reading config: %v", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %v", err)
				}
			}
		}
	}

	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return sigilerr.Errorf(sigilerr.CodeCLISetupFailure, "binding verbose flag: %v", err)
	}
	config.WarnInsecurePermissions(v.ConfigFileUsed(), ".env")
	return nil
}

// loadConfig resolves keyring references, decodes and validates the config,
// then installs the configured logger.
func (c *cli) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := secrets.ResolveViper(c.v, secretStoreFactory()); err != nil {
		return nil, err
	}
	cfg, err := config.FromViper(c.v)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cmd, cfg.Logging, c.v.GetBool("verbose")))
	return cfg, nil
}

func newLogger(cmd *cobra.Command, lc config.LoggingConfig, verbose bool) *slog.Logger {
	var level slog.Level
	if verbose {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	w := cmd.ErrOrStderr()
	if w == nil {
		w = os.Stderr
	}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
