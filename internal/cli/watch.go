package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/zfogg/huddle/internal/client"
	"github.com/zfogg/huddle/internal/client/feedstate"
	"github.com/zfogg/huddle/internal/client/relay"
	"github.com/zfogg/huddle/internal/client/unread"
	"github.com/zfogg/huddle/internal/dto"
)

func (a *app) watchCommand() *cobra.Command {
	var (
		sort  string
		limit int
		mute  bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live feed and get notified about new notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, client.FeedParams{Sort: sort, Limit: limit}, mute)
		},
	}
	cmd.Flags().StringVar(&sort, "sort", "latest", "latest or recommended")
	cmd.Flags().IntVar(&limit, "limit", 20, "Posts to load initially")
	cmd.Flags().BoolVar(&mute, "mute", false, "Don't raise notifications")
	return cmd
}

// watch joins the feed topic before loading so pushes that race the initial
// fetch are buffered by the store and merged once it loads.
func (a *app) watch(ctx context.Context, params client.FeedParams, mute bool) error {
	creds, err := a.session()
	if err != nil {
		return err
	}

	store := feedstate.New()
	var outMu sync.Mutex

	cfg := relay.DefaultConfig()
	cfg.URL = relayURL(a.config)
	cfg.Token = creds.Token
	cfg.Logger = a.logger
	conn, err := relay.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.On(relay.TypeNewPost, func(f *relay.Frame) {
		var post dto.PostResponse
		if err := f.Decode(&post); err != nil {
			a.logger.Debug("Undecodable new-post frame", "error", err)
			return
		}
		if store.MergeRelay(post) {
			outMu.Lock()
			color.New(color.FgMagenta).Fprintln(a.out, "── new post ──")
			a.print.post(post)
			outMu.Unlock()
		}
	})
	conn.On(relay.TypeNotify, func(f *relay.Frame) {
		var n dto.NotificationResponse
		if f.Decode(&n) != nil {
			return
		}
		who := "someone"
		if n.Sender != nil {
			who = "@" + n.Sender.Username
		}
		outMu.Lock()
		a.print.info("• %s", describeNotification(string(n.Type), who))
		outMu.Unlock()
	})

	if err := conn.Join(relay.FeedTopic); err != nil {
		return err
	}

	page, err := a.api.ListPosts(params)
	if err != nil {
		return describeError(err)
	}
	store.Load(page.Posts, creds.UserID)

	outMu.Lock()
	for _, v := range store.Posts() {
		a.print.post(v.Post)
		fmt.Fprintln(a.out)
	}
	a.print.info("Watching the feed (%d posts). Ctrl-C to stop.", store.Len())
	outMu.Unlock()

	counter := unread.NewCounter(a.api, unread.NewTerminalNotifier(a.out, mute),
		unread.WithInterval(a.config.GetDuration("unread.interval")),
		unread.WithLogger(a.logger),
	)
	go counter.Start(ctx)

	select {
	case <-ctx.Done():
	case <-conn.Done():
		a.logger.Warn("Relay connection closed")
	}
	return nil
}
