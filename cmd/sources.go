package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/contest-crawler/internal/classify"
	"github.com/JakeFAU/contest-crawler/internal/source"
)

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "sources",
		Short:       "Lists the registered listing sites",
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printSources(cmd.OutOrStdout(), source.Default(classify.Default()))
		},
	}
}

func printSources(w io.Writer, reg *source.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOUNTRY\tURLS\tADAPTER\tRENDER")
	for _, src := range reg.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%t\n",
			src.ID, src.Name, src.Country, len(src.URLs), reg.Adapter(src.ID).Name(), src.Render)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write sources: %w", err)
	}
	return nil
}
