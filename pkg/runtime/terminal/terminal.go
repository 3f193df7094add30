// Package terminal assembles the cloudaudit command tree.
package terminal

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pyxhealth/cloudaudit/pkg/runtime/terminal/commands"
)

// CLI represents the command-line interface
type CLI struct {
	rootCmd *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Input  io.Reader
	Output io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{}
	cli.rootCmd = cli.newRootCmd(opts)
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) newRootCmd(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cloudaudit",
		Short: "Audit and remediate the Azure and Databricks estate",
	}

	cmd.AddCommand(commands.NewScopesCmd(opts.Output))
	cmd.AddCommand(commands.NewAuditCmd(opts.Output))
	cmd.AddCommand(commands.NewRemediateCmd(opts.Input, opts.Output))
	cmd.AddCommand(commands.NewReportCmd(opts.Output))

	return cmd
}
