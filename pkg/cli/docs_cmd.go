package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bdp/internal/docsgen"
)

func newDocsCmd(flags *configFlags) *cobra.Command {
	var (
		outDir     string
		sampleRows int
	)

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Generate a static HTML catalog of all assets",
		Long: `Render an HTML page per asset with its metadata, dependencies, row count,
and a data sample, plus an index page linking them together.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, eng, _, err := openService(cmd, flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			set, graph, err := svc.Load(cmd.Context())
			if err != nil {
				return err
			}

			gen := docsgen.New(eng, sampleRows)
			if err := gen.Generate(cmd.Context(), set, graph, outDir); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Wrote docs for %d assets to %s\n", set.Len(), outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "docs", "Output directory for the generated site")
	cmd.Flags().IntVar(&sampleRows, "sample-rows", 10, "Rows to sample per asset page (0 disables)")

	return cmd
}
