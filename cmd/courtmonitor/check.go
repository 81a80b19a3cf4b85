package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check every active subscription once and notify on new filings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.Check(cmd.Context())
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout(), !noColor)
			p.Header("Subscription check")
			p.Print("checked %d, unchanged %d, notified %d, failed %d",
				report.Checked, report.Unchanged, report.Notified, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d subscription(s) failed", report.Failed)
			}
			p.Success("done")
			return nil
		},
	}
}
