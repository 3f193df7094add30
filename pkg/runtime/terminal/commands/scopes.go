package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

type ScopesCmd struct {
	common commonFlags
	output io.Writer
}

func NewScopesCmd(output io.Writer) *cobra.Command {
	sc := &ScopesCmd{output: output}
	cmd := &cobra.Command{
		Use:   "scopes",
		Short: "List the subscriptions and workspaces a run would cover",
		RunE:  sc.run,
	}

	sc.common.register(cmd)
	return cmd
}

func (sc *ScopesCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	est, err := buildEstate(ctx, sc.common)
	if err != nil {
		return err
	}

	scopes, err := est.resolveScopes(ctx, scopeFlags{platform: "all"})
	if err != nil {
		return err
	}

	for _, s := range scopes {
		env := s.Environment
		if env == "" {
			env = "-"
		}
		fmt.Fprintf(sc.output, "%-12s  %-40s  env=%s\n", s.Kind, displayName(s), env)
	}
	return nil
}

func displayName(s domain.Scope) string {
	if s.DisplayName != "" && s.DisplayName != s.ID {
		return fmt.Sprintf("%s (%s)", s.DisplayName, s.ID)
	}
	return s.ID
}
