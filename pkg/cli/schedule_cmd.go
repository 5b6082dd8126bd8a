package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bdp/internal/service/materialize"
)

func newScheduleCmd(flags *configFlags) *cobra.Command {
	var cronSpec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run full refreshes on a cron schedule",
		Long: `Start a long-running scheduler that materializes every asset on the given
cron expression until interrupted.`,
		Example: `  # Refresh every morning at 06:00
  bdp schedule --cron "0 6 * * *"

  # Refresh hourly
  bdp schedule --cron "@every 1h"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, eng, logger, err := openService(cmd, flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			sched := materialize.NewScheduler(svc, logger)
			if _, err := sched.Add(cronSpec); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sched.Start()
			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&cronSpec, "cron", "", "Cron expression for the refresh schedule")
	_ = cmd.MarkFlagRequired("cron")

	return cmd
}
