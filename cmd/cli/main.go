package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/pyxhealth/cloudaudit/pkg/runtime/terminal"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger

	cli := terminal.NewCLI(terminal.Options{
		Input:  os.Stdin,
		Output: os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
