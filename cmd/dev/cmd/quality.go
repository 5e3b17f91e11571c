package cmd

import (
	"fmt"
	"log/slog"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func qualityCmd(use, short string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("running", "step", use)
			if err := run(); err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			return nil
		},
	}
}

func TestCmd() *cobra.Command {
	return qualityCmd("test", "Run unit tests (driver, buses, sampler)", test.Test)
}

func LintCmd() *cobra.Command {
	return qualityCmd("lint", "Run linting", test.Lint)
}

// IntegrationTestCmd runs tests that need a MAG3110 attached to the host.
func IntegrationTestCmd() *cobra.Command {
	return qualityCmd("integration-test", "Run integration tests against real hardware", test.Integ)
}
