package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) notificationsCommand() *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notifs"},
		Short:   "List notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			list, err := a.api.Notifications(page, limit)
			if err != nil {
				return describeError(err)
			}
			return a.print.notifications(list)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "Notifications per page")

	cmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Show the unread count",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			n, err := a.api.UnreadCount(cmd.Context())
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(map[string]int64{"unread_count": n})
			}
			fmt.Fprintln(a.out, n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			if err := a.api.MarkRead(args[0]); err != nil {
				return describeError(err)
			}
			a.print.success("Marked read")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			n, err := a.api.MarkAllRead()
			if err != nil {
				return describeError(err)
			}
			a.print.success("Marked %d read", n)
			return nil
		},
	})

	return cmd
}
