package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/parley/pkg/cli"
	"github.com/haivivi/parley/pkg/usagelog"
)

var (
	usageSince  time.Duration
	usageFormat string
	usageList   bool
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show recorded token usage",
	Long: `Summarize the token usage recorded in usage_dir.

Examples:
  parley usage
  parley usage --since 24h --list
  parley usage --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRealtime()
		if err != nil {
			return err
		}
		if rt.UsageDir == "" {
			return fmt.Errorf("usage_dir is not set; enable it with 'parley config set <context> realtime usage_dir <dir>'")
		}
		store, err := usagelog.NewBadger(usagelog.BadgerOptions{Dir: rt.UsageDir, Logger: stderrLogger()})
		if err != nil {
			return err
		}
		defer store.Close()

		var since time.Time
		if usageSince > 0 {
			since = time.Now().Add(-usageSince)
		}
		records, err := usagelog.Collect(store.List(cmd.Context(), since))
		if err != nil {
			return err
		}
		totals := usagelog.Sum(records)

		if usageFormat != "" {
			f, err := cli.ParseFormat(usageFormat)
			if err != nil {
				return err
			}
			report := struct {
				Totals  usagelog.Totals   `json:"totals" yaml:"totals"`
				Records []usagelog.Record `json:"records,omitempty" yaml:"records,omitempty"`
			}{Totals: totals}
			if usageList {
				report.Records = records
			}
			return cli.Output(cmd.OutOrStdout(), f, report)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		if usageList {
			fmt.Fprintln(w, "TIME\tSESSION\tRESPONSE\tINPUT\tOUTPUT\tTOTAL")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					r.Time.Local().Format(time.DateTime), r.SessionID, r.ResponseID,
					r.InputTokens, r.OutputTokens, r.TotalTokens)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "sessions\t%d\n", totals.Sessions)
		fmt.Fprintf(w, "responses\t%d\n", totals.Responses)
		fmt.Fprintf(w, "input tokens\t%d\n", totals.InputTokens)
		fmt.Fprintf(w, "output tokens\t%d\n", totals.OutputTokens)
		fmt.Fprintf(w, "total tokens\t%d\n", totals.TotalTokens)
		return w.Flush()
	},
}

func init() {
	usageCmd.Flags().DurationVar(&usageSince, "since", 0, "only records newer than this (e.g. 24h)")
	usageCmd.Flags().StringVar(&usageFormat, "format", "", "output format (yaml, json)")
	usageCmd.Flags().BoolVar(&usageList, "list", false, "list individual responses")
	rootCmd.AddCommand(usageCmd)
}
