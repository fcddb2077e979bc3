package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey/vertretungsanalyse/internal/core"
	"github.com/mikey/vertretungsanalyse/internal/credentials"
)

func newKeyCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored OpenAI API key",
	}

	cmd.AddCommand(newKeySetCmd(opts))
	cmd.AddCommand(newKeyShowCmd(opts))

	return cmd
}

func newKeySetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set [value]",
		Short: "Validate and store an API key in the local and roaming stores",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) == 1 {
				value = args[0]
			} else {
				prompter := credentials.NewConsolePrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				entered, err := prompter.Prompt(cmd.Context(), "OpenAI API key: ")
				if err != nil {
					return fmt.Errorf("failed to read API key: %w", err)
				}
				value = entered
			}

			return opts.run(nil, func(store *credentials.Store) error {
				if err := store.Set(cmd.Context(), value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "API key %s saved\n", credentials.Hint(strings.TrimSpace(value)))
				return nil
			})
		},
	}
}

func newKeyShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show which API key is stored and where it was found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(nil, func(store *credentials.Store) error {
				key, err := store.Obtain(cmd.Context())
				if errors.Is(err, core.ErrNoCredential) {
					fmt.Fprintln(cmd.OutOrStdout(), "no API key stored")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", credentials.Hint(key), store.Source())
				return nil
			})
		},
	}
}
