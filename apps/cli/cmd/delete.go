package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arkadyv/reqforge/packages/store"
)

var deleteResetFlag bool

var deleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a saved request",
	Long: `Delete a saved request by name. With --reset, reinitialize the whole
store instead: saved requests and environments are replaced with empty
files, which is the way out after a corrupt-store error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteResetFlag, "reset", false, "reinitialize the store with empty state files")
}

func runDelete(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	if deleteResetFlag {
		if err := st.Reset(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "store reset: %s\n", st.Dir())
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("a request name is required unless --reset is given")
	}
	name := args[0]

	if err := st.DeleteRequest(name); err != nil {
		if store.IsNotFound(err) {
			if hint := suggestName(st, name); hint != "" {
				return fmt.Errorf("%w (did you mean %q?)", err, hint)
			}
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted request %q\n", name)
	return nil
}

// suggestName offers the closest saved name for a miss, best effort.
func suggestName(st *store.Store, name string) string {
	matches, err := st.FuzzyFind(name, 1)
	if err != nil || len(matches) == 0 {
		return ""
	}
	if strings.EqualFold(matches[0].Name, name) {
		return ""
	}
	return matches[0].Name
}
