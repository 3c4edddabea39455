package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// newRootCommand builds the confsync command tree.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "confsync",
		Short:         "Inspect and edit synchronized settings",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newGetCommand(),
		newSetCommand(),
		newListCommand(),
		newRemoveCommand(),
		newClearCommand(),
		newInitCommand(),
	)
	return root
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>...",
		Short: "Print setting values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.close()

			if len(args) == 1 {
				v, err := env.service.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printValue(cmd, args[0], v)
			}

			values, err := env.service.GetMultiple(cmd.Context(), args)
			if err != nil {
				return err
			}
			for _, k := range args {
				if err := printValue(cmd, k, values[k]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write one setting",
		Long:  "Write one setting. The value is parsed as JSON; anything that is not valid JSON is stored as a string.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.close()

			return env.service.Set(cmd.Context(), args[0], parseValue(args[1]))
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every setting with its effective value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.close()

			values := env.service.GetAll(cmd.Context())
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				if err := printValue(cmd, k, values[k]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove one setting, reverting it to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.close()

			return env.service.Remove(cmd.Context(), args[0])
		},
	}
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every known setting from both areas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.close()

			return env.service.ClearAll(cmd.Context())
		},
	}
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-defaults",
		Short: "Write defaults for settings not yet present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.close()

			return env.service.SetDefaultsForMissingKeys(cmd.Context())
		},
	}
}

// printValue writes one key=value line with the value JSON-encoded.
func printValue(cmd *cobra.Command, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", key, raw)
	return err
}

// parseValue interprets a CLI argument as a JSON value, falling back
// to a plain string.
func parseValue(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return arg
	}
	return v
}
