package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection [name]",
	Short: "List collections, or the requests in one",
	Long: `Collections group saved requests under a shared tag. Without an
argument, list the collection names; with one, list that collection's
requests.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			names, err := st.Collections()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no collections")
				return nil
			}
			for _, name := range names {
				requests, err := st.ListByCollection(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", name, len(requests))
			}
			return nil
		}

		requests, err := st.ListByCollection(args[0])
		if err != nil {
			return err
		}
		if len(requests) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no requests in collection %q\n", args[0])
			return nil
		}
		for _, saved := range requests {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-7s %s\n", saved.Name, methodColor(saved.Descriptor.Method), saved.Descriptor.URL)
		}
		return nil
	},
}
