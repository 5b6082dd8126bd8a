package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(flags *configFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered assets and their dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, eng, _, err := openService(cmd, flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			assets, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tTARGET\tDEPENDS ON")
			for _, asset := range assets {
				deps := make([]string, 0, len(asset.DependsOn))
				for _, ref := range asset.DependsOn {
					deps = append(deps, ref.String())
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					asset.Name, asset.Kind, asset.Target, strings.Join(deps, ", "))
			}
			return w.Flush()
		},
	}
}
