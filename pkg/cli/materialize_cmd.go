package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bdp/internal/domain"
)

const timePrecision = time.Millisecond

func newMaterializeCmd(flags *configFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "materialize [asset...]",
		Short: "Materialize assets in dependency order",
		Long: `Materialize every asset, or only the named assets plus their transitive
dependencies. A failing asset skips its downstream consumers; unrelated
branches keep running.`,
		Example: `  # Full refresh of every asset
  bdp materialize

  # Only orders and whatever it depends on
  bdp materialize orders`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, eng, _, err := openService(cmd, flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := svc.Run(ctx, args)
			if err != nil {
				return err
			}

			printReport(report)
			if !report.OK() {
				return fmt.Errorf("run %s finished with failures", report.ID)
			}
			return nil
		},
	}
}

func printReport(report *domain.RunReport) {
	fmt.Fprintf(os.Stdout, "Run %s (%s)\n", report.ID, report.FinishedAt.Sub(report.StartedAt).Round(timePrecision))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, res := range report.Results {
		line := fmt.Sprintf("  %s\t%s\t%s", res.Status, res.Name, res.Target)
		if res.Detail != "" {
			line += "\t" + res.Detail
		}
		fmt.Fprintln(w, line)
	}
	_ = w.Flush()
}
