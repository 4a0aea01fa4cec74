package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dahlia-labs/deployctl/configs"
	"github.com/dahlia-labs/deployctl/internal/deploy"
	"github.com/dahlia-labs/deployctl/internal/deployconfig"
	"github.com/dahlia-labs/deployctl/internal/devnet"
	"github.com/dahlia-labs/deployctl/internal/logger"
	"github.com/dahlia-labs/deployctl/internal/setup"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "deployctl"

var (
	tee *logger.Tee

	rootCmd = &cobra.Command{
		Use:   appName,
		Short: "Deploy contract systems across networks with forge",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Initialize(slog.LevelInfo)

			if err := loadConfig(); err != nil {
				return err
			}

			level, err := configs.Values.Log.SlogLevel()
			if err != nil {
				return err
			}

			tee, err = logger.OpenTee(configs.Values.Log.Dir, appName, runLabel(cmd), time.Now())
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			logger.Initialize(level, tee)
			cmd.SetContext(logger.ContextWithTee(cmd.Context(), tee))

			slog.With("log_file", tee.Path()).Debug("logging to file")
			slog.With("config", configs.Values).Debug("configuration loaded")

			return nil
		},
	}
)

func init() {
	fs := rootCmd.PersistentFlags()
	for _, err := range []error{
		declareFlags(fs, stringFlags),
		declareFlags(fs, intFlags),
		declareFlags(fs, boolFlags),
		declareFlags(fs, stringSliceFlags),
	} {
		if err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(deploy.CMD)
	rootCmd.AddCommand(deploy.AllCMD)
	rootCmd.AddCommand(devnet.CMD)
	rootCmd.AddCommand(deployconfig.CMD)
	rootCmd.AddCommand(setup.CMD)
}

// loadConfig layers config.yaml (if found) and flags over the embedded defaults.
func loadConfig() error {
	viper.SetConfigType("yaml")
	if err := viper.ReadConfig(strings.NewReader(configs.DefaultYAML())); err != nil {
		return fmt.Errorf("failed to read embedded defaults: %w", err)
	}

	viper.SetConfigName("config")
	if execPath, err := os.Executable(); err == nil {
		viper.AddConfigPath(filepath.Dir(execPath))
	}
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	if err := viper.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			const errMsg = "error reading config file"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}
		slog.Debug("no config file found, relying on defaults and flags")
	} else {
		slog.With("config_file", viper.ConfigFileUsed()).Debug("config file loaded")
	}

	if err := viper.Unmarshal(&configs.Values); err != nil {
		const errMsg = "unable to decode application config"
		slog.With("err", err.Error()).Error(errMsg)
		return errors.Join(err, errors.New(errMsg))
	}

	return nil
}

// runLabel names the log file after the command and, for deploy, its script.
func runLabel(cmd *cobra.Command) string {
	label := cmd.Name()
	if flag := cmd.Flags().Lookup(deploy.ScriptFlag); flag != nil && flag.Value.String() != "" {
		label += "-" + flag.Value.String()
	}
	return label
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	if tee != nil {
		_ = tee.Close()
	}
	stop()

	if err != nil {
		slog.With("err", err.Error()).Error("failed to execute command")
		os.Exit(1)
	}
}
