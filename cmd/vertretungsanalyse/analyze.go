package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/vertretungsanalyse/internal/adapters/mailsource"
	"github.com/mikey/vertretungsanalyse/internal/core"
	"github.com/mikey/vertretungsanalyse/internal/credentials"
)

func newAnalyzeCmd(opts *globalOptions) *cobra.Command {
	var mboxPath string

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze an email and print the substitution entry",
		Long: `Reads a single RFC 5322 message from file, or from stdin when no file is
given, and prints the summary for the substitution schedule. With --mbox every
message in the mailbox is analyzed in turn.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mboxPath != "" {
				if len(args) > 0 {
					return errors.New("a file argument cannot be combined with --mbox")
				}
				return analyzeMbox(cmd, opts, mboxPath)
			}
			return analyzeMessage(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&mboxPath, "mbox", "", "Analyze every message of an mbox file")

	return cmd
}

func analyzeMessage(cmd *cobra.Command, opts *globalOptions, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	// Stdin carries the message, so the key cannot be asked for there
	var prompter credentials.Prompter
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open message: %w", err)
		}
		defer f.Close()
		in = f
		prompter = credentials.NewConsolePrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	}

	email, err := mailsource.ParseMessage(in)
	if err != nil {
		return err
	}

	return opts.run(prompter, func(svc *core.AnalysisService, logger *zap.Logger) error {
		result, err := svc.AnalyzeEmail(cmd.Context(), email)
		if errors.Is(err, core.ErrSenderNotAllowed) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Sender %s is not in the allowlist, message skipped\n", email.From)
			return nil
		}
		if err != nil {
			return err
		}

		logger.Debug("Email analyzed",
			zap.String("subject", email.Subject),
			zap.String("model", result.ModelUsed),
			zap.Bool("cached", result.FromCache))
		fmt.Fprintln(cmd.OutOrStdout(), result.Text)
		return nil
	})
}

func analyzeMbox(cmd *cobra.Command, opts *globalOptions, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open mbox: %w", err)
	}
	defer f.Close()

	prompter := credentials.NewConsolePrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

	return opts.run(prompter, func(svc *core.AnalysisService, logger *zap.Logger) error {
		var analyzed, failed int
		err := mailsource.ReadMbox(f, func(index int, email *core.Email, err error) error {
			if err != nil {
				failed++
				logger.Warn("Skipping unreadable message", zap.Int("index", index), zap.Error(err))
				return nil
			}

			result, err := svc.AnalyzeEmail(cmd.Context(), email)
			switch {
			case errors.Is(err, core.ErrSenderNotAllowed):
				return nil
			case errors.Is(err, core.ErrNoCredential), errors.Is(err, core.ErrInvalidCredentialFormat):
				// Every further message would fail the same way
				return err
			case err != nil:
				failed++
				logger.Error("Failed to analyze message",
					zap.Int("index", index),
					zap.String("subject", email.Subject),
					zap.Error(err))
				return nil
			}

			analyzed++
			fmt.Fprintf(cmd.OutOrStdout(), "# %d %s\n%s\n\n", index+1, email.Subject, result.Text)
			return cmd.Context().Err()
		})
		if err != nil {
			return err
		}

		logger.Info("Mailbox processed",
			zap.String("file", path),
			zap.Int("analyzed", analyzed),
			zap.Int("failed", failed))
		return nil
	})
}
