// Command schemaflow runs the schema-attaching stream service: it consumes
// schemaless JSON from the configured input topics, attaches the configured
// Kafka Connect schemas, and produces the wrapped messages to the output
// topics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/drblury/schemaflow/internal/config"
	"github.com/drblury/schemaflow/internal/logging"
	"github.com/drblury/schemaflow/internal/routes"
	"github.com/drblury/schemaflow/internal/stream"
	channeltransport "github.com/drblury/schemaflow/internal/transport/channel"
	kafkatransport "github.com/drblury/schemaflow/internal/transport/kafka"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "schemaflow <properties-file>",
	Short: "Attach inline Kafka Connect schemas to streaming JSON messages",
	Long: `schemaflow sits between a streaming SQL engine's sink topics and a
Kafka Connect sink connector. For each configured route it consumes schemaless
JSON messages, coerces string-encoded numeric fields to their declared types,
wraps the result in a {schema, payload} envelope, and produces it to the
output topic. Tombstones pass through untouched so deletes keep working.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "L", "info",
		"log at this level (debug, info, warn, error)")
	rootCmd.SilenceUsage = true
}

func run(ctx context.Context, propertiesPath string) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := logging.NewSlogServiceLogger(slog.New(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	))

	conf, err := config.Load(propertiesPath)
	if err != nil {
		return err
	}
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Info("loaded configuration", logging.LogFields{
		"path":      propertiesPath,
		"transport": conf.Transport,
	})

	// All startup errors below are fatal before any stream processing
	// begins: no partial route set ever runs.
	routeList, err := routes.Resolve(conf.Properties)
	if err != nil {
		return fmt.Errorf("resolve routes: %w", err)
	}

	kafkatransport.Register()
	channeltransport.Register()

	svc, err := stream.NewService(ctx, conf, logger, stream.Dependencies{})
	if err != nil {
		return err
	}
	if err := svc.RegisterRoutes(routeList); err != nil {
		return err
	}

	logger.Info("starting stream service", logging.LogFields{
		"routes": len(routeList),
	})
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
