package main

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newSubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <search term> <email>",
		Short: "Track a search term and email new filings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.TrimSpace(args[0])
			if term == "" {
				return fmt.Errorf("search term is required")
			}
			addr, err := mail.ParseAddress(args[1])
			if err != nil {
				return fmt.Errorf("invalid email %q: %w", args[1], err)
			}

			application, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			sub, err := application.Subscriptions().Create(cmd.Context(), term, addr.Address)
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout(), !noColor)
			p.Success("subscription %d created for %q", sub.ID, sub.Query)
			p.Print("unsubscribe: %s/api/unsubscribe/%s", cfg.Notifications.PublicBaseURL, sub.UnsubscribeToken)
			return nil
		},
	}
}

func newSubscriptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"ls"},
		Short:   "List active subscriptions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			subs, err := application.Subscriptions().ListActive(cmd.Context())
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout(), !noColor)
			if len(subs) == 0 {
				p.Info("no active subscriptions")
				return nil
			}
			p.Header("Active subscriptions")
			t := newTable(cmd.OutOrStdout(), []string{"ID", "QUERY", "EMAIL", "LAST SEEN", "CREATED"})
			for _, s := range subs {
				last := s.LastSeenKey
				if last == "" {
					last = p.Dim("never")
				}
				t.AddRow([]string{strconv.FormatInt(s.ID, 10), p.Bold(s.Query), s.Email, last, s.CreatedAt.Format("2006-01-02")})
			}
			t.Render()
			return nil
		},
	}
}
