package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) followCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <user-id>",
		Short: "Follow a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			resp, err := a.api.Follow(args[0])
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(resp)
			}
			if resp.Changed {
				a.print.success("Following %s", args[0])
			} else {
				a.print.info("Already following %s", args[0])
			}
			return nil
		},
	}
}

func (a *app) unfollowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow <user-id>",
		Short: "Unfollow a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			resp, err := a.api.Unfollow(args[0])
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(resp)
			}
			if resp.Changed {
				a.print.success("Unfollowed %s", args[0])
			} else {
				a.print.info("Not following %s", args[0])
			}
			return nil
		},
	}
}

func (a *app) profileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile [user-id]",
		Short: "Show a profile (yours by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.session()
			if err != nil {
				return err
			}
			userID := creds.UserID
			if len(args) == 1 {
				userID = args[0]
			}

			profile, err := a.api.Profile(userID)
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(profile)
			}

			fmt.Fprintln(a.out, author(profile.PublicUser))
			fmt.Fprintf(a.out, "%d followers · %d following\n", profile.FollowerCount, profile.FollowingCount)
			if profile.IsFollowing {
				a.print.info("You follow them")
			}
			return nil
		},
	}
}
