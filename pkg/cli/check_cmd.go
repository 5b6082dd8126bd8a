package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCheckCmd(flags *configFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the asset set without executing anything",
		Long: `Parse every asset file and build the dependency graph. Reports the first
failing rule and exits non-zero; nothing is materialized.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, eng, _, err := openService(cmd, flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			failed := false
			for _, res := range svc.Check(cmd.Context()) {
				if res.Err != nil {
					failed = true
					fmt.Fprintf(os.Stdout, "FAIL  %s\n      %v\n", res.Rule, res.Err)
					continue
				}
				fmt.Fprintf(os.Stdout, "OK    %s\n", res.Rule)
			}
			if failed {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
}
