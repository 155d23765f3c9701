package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func webhooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Inspect and repair the payment webhook ledger",
	}
	cmd.AddCommand(webhooksListCmd(a))
	cmd.AddCommand(webhooksResolveCmd(a))
	return cmd
}

func webhooksListCmd(a *app) *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded webhook events",
		Example: `  storefrontctl webhooks list
  storefrontctl webhooks list --status quarantined`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd, func(ctx context.Context, gdb *gorm.DB) error {
				svc, closer := a.reconciler(gdb)
				defer closer()

				list, err := svc.ListEvents(ctx, models.WebhookStatus(status), limit)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "EVENT\tTYPE\tSESSION\tSTATUS\tRECEIVED\tREASON")
				for _, ev := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						ev.EventID, ev.EventType, ev.SessionID, ev.Status, ev.CreatedAt.UTC().Format(time.RFC3339), ev.Reason)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (processed, ignored, quarantined, resolved)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum events to show")
	return cmd
}

func webhooksResolveCmd(a *app) *cobra.Command {
	var userID, cartID uint

	cmd := &cobra.Command{
		Use:   "resolve <event-id>",
		Short: "Replay a quarantined event with the correct user and cart",
		Long: `Replay a quarantined checkout.session.completed event.

Events land in quarantine when the session carries no usable userId/cartId
metadata. Supply the ids and the event is reconciled into an order exactly as
a normal delivery would be.`,
		Example: "  storefrontctl webhooks resolve evt_1Nx... --user 42 --cart 17",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd, func(ctx context.Context, gdb *gorm.DB) error {
				svc, closer := a.reconciler(gdb)
				defer closer()

				outcome, err := svc.Resolve(ctx, args[0], userID, cartID)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "event %s resolved: %s\n", args[0], outcome)
				return nil
			})
		},
	}

	cmd.Flags().UintVar(&userID, "user", 0, "user id that paid for the session")
	cmd.Flags().UintVar(&cartID, "cart", 0, "cart id the session was created for")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("cart")
	return cmd
}
