package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage template variable environments",
	Long: `Environments are named variable sets that seed {{placeholder}}
resolution. Select one per request with 'send --env NAME', or set a
default in config.toml.`,
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List environment names",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, cfg, err := openStore()
		if err != nil {
			return err
		}
		names, err := st.ListEnvironments()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no environments")
			return nil
		}
		for _, name := range names {
			if name == cfg.DefaultEnvironment {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", name, color.New(color.Faint).Sprint("(default)"))
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var envShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show an environment's variables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore()
		if err != nil {
			return err
		}
		variables, err := st.GetEnvironment(args[0])
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(variables))
		for key := range variables {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", key, variables[key])
		}
		return nil
	},
}

var envSetCmd = &cobra.Command{
	Use:   "set NAME KEY=VALUE [KEY=VALUE...]",
	Short: "Set variables in an environment, creating it if needed",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore()
		if err != nil {
			return err
		}
		name := args[0]
		for _, pair := range args[1:] {
			key, value, found := strings.Cut(pair, "=")
			if !found || key == "" {
				return fmt.Errorf("invalid variable %q: expected KEY=VALUE", pair)
			}
			if err := st.SetEnvironmentVariable(name, key, value); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "environment %q updated\n", name)
		return nil
	},
}

var envDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete an environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore()
		if err != nil {
			return err
		}
		if err := st.DeleteEnvironment(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted environment %q\n", args[0])
		return nil
	},
}

func init() {
	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envShowCmd)
	envCmd.AddCommand(envSetCmd)
	envCmd.AddCommand(envDeleteCmd)
}
