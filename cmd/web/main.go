package main

import (
	"fmt"
	"net"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pyxhealth/cloudaudit/pkg/server"
	"github.com/pyxhealth/cloudaudit/pkg/store/duckdb"
	"github.com/pyxhealth/cloudaudit/pkg/store/duckdb/history"
)

var dbPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Serve stored audit runs over HTTP",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&dbPath, "db", "d", "cloudaudit.db",
		"Path to the run history database")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: dbPath})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	store, err := history.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create history store: %w", err)
	}

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")
	if host == "" || port == "" {
		logger.Error().Msgf("Missing server configuration from .env file")
		os.Exit(1)
	}

	api := server.NewWebAPI(server.Config{
		Addr: net.JoinHostPort(host, port),
		Dependencies: server.Dependencies{
			History: store,
			Logger:  logger,
		},
	})

	return api.Start()
}
