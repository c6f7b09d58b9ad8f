package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/zfogg/huddle/internal/client"
	"github.com/zfogg/huddle/internal/dto"
)

func (a *app) feedCommand() *cobra.Command {
	var params client.FeedParams

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the feed",
		Long:  "Show posts newest first, or ranked by likes with --sort recommended",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			page, err := a.api.ListPosts(params)
			if err != nil {
				return describeError(err)
			}
			return a.print.posts(page.Posts)
		},
	}
	cmd.Flags().StringVar(&params.UserID, "user", "", "Only posts by this user id")
	cmd.Flags().StringVar(&params.Sort, "sort", "latest", "latest or recommended")
	cmd.Flags().IntVar(&params.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&params.Limit, "limit", 20, "Posts per page")
	return cmd
}

func (a *app) postCommand() *cobra.Command {
	var image string

	cmd := &cobra.Command{
		Use:   "post [text...]",
		Short: "Publish a post",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			req := dto.CreatePostRequest{Content: strings.Join(args, " ")}
			if image != "" {
				req.ImageURL = &image
			}
			post, err := a.api.CreatePost(req)
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(post)
			}
			a.print.success("Posted %s", post.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "Image URL to attach")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			if err := a.api.DeletePost(args[0]); err != nil {
				return describeError(err)
			}
			a.print.success("Deleted %s", args[0])
			return nil
		},
	}
}

func (a *app) likeCommand() *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "like <post-id>",
		Short: "Like a post (--undo to remove the like)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			var (
				resp *dto.LikeResponse
				err  error
			)
			if undo {
				resp, err = a.api.Unlike(args[0])
			} else {
				resp, err = a.api.Like(args[0])
			}
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(resp)
			}
			a.print.success("♥ %d", resp.LikeCount)
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Remove your like")
	return cmd
}

func (a *app) commentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <post-id> <text...>",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			comments, err := a.api.Comment(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(comments)
			}
			a.print.success("Commented (%d comments)", len(comments))
			return nil
		},
	}
}

func (a *app) replyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reply <post-id> <comment-id> <text...>",
		Short: "Reply to a comment",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			replies, err := a.api.Reply(args[0], args[1], strings.Join(args[2:], " "))
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(replies)
			}
			a.print.success("Replied (%d replies)", len(replies))
			return nil
		},
	}
}

func (a *app) shareCommand() *cobra.Command {
	var quote string

	cmd := &cobra.Command{
		Use:   "share <post-id>",
		Short: "Repost a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			resp, err := a.api.Share(args[0], quote)
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(resp)
			}
			a.print.success("Shared as %s (↻ %d)", resp.Repost.ID, resp.Shares)
			return nil
		},
	}
	cmd.Flags().StringVar(&quote, "quote", "", "Text to add to the repost")
	return cmd
}
