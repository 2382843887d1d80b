package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/contest-crawler/internal/refresh"
)

func newScrapeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs one scrape, merges it into the corpus and saves it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := appInstance.Runner().Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("scrape: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res.Corpus.LastScrape); err != nil {
					return fmt.Errorf("encode stats: %w", err)
				}
				return nil
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print run stats as JSON")
	return cmd
}

func printResult(w io.Writer, res refresh.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", res.Stats.RunID)
	fmt.Fprintf(tw, "duration\t%dms\n", res.Stats.Duration)
	fmt.Fprintf(tw, "found\t%d\n", res.Stats.Found)
	fmt.Fprintf(tw, "total\t%d\n", res.Corpus.Total)
	fmt.Fprintf(tw, "saved\t%t\n", res.Saved)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "SOURCE\tFOUND\tSKIPPED\tFAILED URLS\tERROR")
	for _, r := range res.Batch.Reports {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d/%d\t%s\n", r.Source, r.Found, r.Skipped, r.Failed, r.Attempted, r.Error)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
