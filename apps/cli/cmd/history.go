package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arkadyv/reqforge/packages/output"
)

var (
	historyLimitFlag int
	historyStatsFlag bool
	historyClearFlag bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the execution history log",
	Long: `Show recent request executions, newest first. History records method,
URL, status and timing only; headers and bodies are never logged.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "number of entries to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyStatsFlag, "stats", false, "show aggregate statistics instead of entries")
	historyCmd.Flags().BoolVar(&historyClearFlag, "clear", false, "delete all history entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	if historyClearFlag {
		if err := st.ClearHistory(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
		return nil
	}

	if historyStatsFlag {
		stats, err := st.Stats()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "total:         %d\n", stats.Total)
		fmt.Fprintf(out, "succeeded:     %d\n", stats.Succeeded)
		fmt.Fprintf(out, "client errors: %d\n", stats.ClientErrors)
		fmt.Fprintf(out, "server errors: %d\n", stats.ServerErrors)
		fmt.Fprintf(out, "failed:        %d\n", stats.Failed)
		if stats.Total > 0 {
			fmt.Fprintf(out, "duration:      min %s / avg %s / max %s\n",
				output.FormatDuration(stats.MinDuration),
				output.FormatDuration(stats.AvgDuration),
				output.FormatDuration(stats.MaxDuration))
		}
		return nil
	}

	entries, err := st.History(historyLimitFlag)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no history")
		return nil
	}

	dim := color.New(color.Faint).SprintFunc()
	for _, entry := range entries {
		status := "----"
		if entry.Status > 0 {
			status = statusColor(entry.Status)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %-7s %-50s %8s %10s\n",
			dim(entry.Timestamp.Format("2006-01-02 15:04:05")),
			status,
			methodColor(entry.Method),
			entry.URL,
			output.FormatDuration(entry.Duration),
			output.FormatBytes(entry.Size))
	}
	return nil
}

func statusColor(code int) string {
	text := fmt.Sprintf("%d", code)
	switch {
	case code >= 500:
		return color.RedString(text)
	case code >= 400:
		return color.YellowString(text)
	case code >= 300:
		return color.CyanString(text)
	default:
		return color.GreenString(text)
	}
}
