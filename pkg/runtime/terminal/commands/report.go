package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pyxhealth/cloudaudit/pkg/adapters"
	"github.com/pyxhealth/cloudaudit/pkg/export"
	"github.com/pyxhealth/cloudaudit/pkg/store/duckdb"
	"github.com/pyxhealth/cloudaudit/pkg/store/duckdb/history"
)

type ReportCmd struct {
	dbPath string
	runID  string
	outDir string

	output io.Writer
}

func NewReportCmd(output io.Writer) *cobra.Command {
	rc := &ReportCmd{output: output}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "List stored runs or re-render one as CSV and HTML",
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.dbPath, "db", "cloudaudit.db", "path to the run history database")
	cmd.Flags().StringVar(&rc.runID, "run", "", "run id to render; omit to list runs")
	cmd.Flags().StringVar(&rc.outDir, "out", "reports", "directory for the rendered artifacts")

	return cmd
}

func (rc *ReportCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: rc.dbPath})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	store, err := history.NewStore(db)
	if err != nil {
		return err
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}

	if rc.runID == "" {
		if len(runs) == 0 {
			fmt.Fprintln(rc.output, "no stored runs")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(rc.output, "%s  %s  resources=%d findings=%d\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Entries, r.Findings)
		}
		return nil
	}

	for _, r := range runs {
		if r.ID != rc.runID {
			continue
		}
		entries, err := store.GetEntries(ctx, rc.runID)
		if err != nil {
			return err
		}
		report := adapters.MapRunStoreToDomainReport(r, entries)

		csvPath, htmlPath, err := export.WriteFiles(rc.outDir, report, r.FinishedAt)
		if err != nil {
			return err
		}
		fmt.Fprintf(rc.output, "rendered %s and %s\n", csvPath, htmlPath)
		return nil
	}

	return fmt.Errorf("run %q not found", rc.runID)
}
