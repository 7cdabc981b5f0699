package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arkadyv/reqforge/packages/store"
)

var (
	listCollectionFlag string
	listFuzzyFlag      string
)

var listCmd = &cobra.Command{
	Use:   "list [filter]",
	Short: "List saved requests",
	Long: `List saved requests, newest first. A filter argument keeps requests
whose name, method, URL or collection contains it. Use --find for
fuzzy matching against names when you only remember part of one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listCollectionFlag, "collection", "c", "", "only show requests in this collection")
	listCmd.Flags().StringVar(&listFuzzyFlag, "find", "", "fuzzy-match saved request names")
}

func runList(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	if listFuzzyFlag != "" {
		matches, err := st.FuzzyFind(listFuzzyFlag, 10)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no saved request matches %q\n", listFuzzyFlag)
			return nil
		}
		for _, match := range matches {
			fmt.Fprintln(cmd.OutOrStdout(), match.Name)
		}
		return nil
	}

	var requests []*store.SavedRequest
	if listCollectionFlag != "" {
		requests, err = st.ListByCollection(listCollectionFlag)
	} else {
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		requests, err = st.ListRequests(filter)
	}
	if err != nil {
		return err
	}

	if len(requests) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no saved requests")
		return nil
	}

	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	for _, saved := range requests {
		line := fmt.Sprintf("%-24s %-7s %s", bold(saved.Name), methodColor(saved.Descriptor.Method), saved.Descriptor.URL)
		if saved.Collection != "" {
			line += dim(" [" + saved.Collection + "]")
		}
		if !saved.LastUsedAt.IsZero() {
			line += dim(" used " + humanAge(saved.LastUsedAt))
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

func methodColor(method string) string {
	switch method {
	case "GET":
		return color.GreenString(method)
	case "POST":
		return color.YellowString(method)
	case "PUT", "PATCH":
		return color.CyanString(method)
	case "DELETE":
		return color.RedString(method)
	default:
		return method
	}
}

func humanAge(t time.Time) string {
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
