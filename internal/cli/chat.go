package cli

import (
	"bufio"
	"context"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/zfogg/huddle/internal/client/relay"
	"github.com/zfogg/huddle/internal/dto"
)

// typingDecay is how long a typing indicator lasts without a new typing event
const typingDecay = 2 * time.Second

func (a *app) chatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <room>",
		Short: "Show the last messages in a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			msgs, err := a.api.ChatHistory(args[0])
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(msgs)
			}
			if len(msgs) == 0 {
				a.print.info("No messages in %s", args[0])
			}
			for _, m := range msgs {
				a.print.chatMessage(m)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "send <room> <text...>",
		Short: "Send a message to a room",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			msg, err := a.api.SendChat(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(msg)
			}
			a.print.chatMessage(*msg)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "join <room>",
		Short: "Chat live in a room; each input line is sent as a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.liveChat(cmd.Context(), args[0])
		},
	})

	return cmd
}

// typingTracker shows who is typing and forgets them after typingDecay
type typingTracker struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// touch reports whether user just started typing
func (t *typingTracker) touch(user string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timers == nil {
		t.timers = make(map[string]*time.Timer)
	}
	if timer, ok := t.timers[user]; ok {
		timer.Reset(typingDecay)
		return false
	}
	t.timers[user] = time.AfterFunc(typingDecay, func() {
		t.mu.Lock()
		delete(t.timers, user)
		t.mu.Unlock()
	})
	return true
}

func (a *app) liveChat(ctx context.Context, room string) error {
	creds, err := a.session()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history, err := a.api.ChatHistory(room)
	if err != nil {
		return describeError(err)
	}
	for _, m := range history {
		a.print.chatMessage(m)
	}

	cfg := relay.DefaultConfig()
	cfg.URL = relayURL(a.config)
	cfg.Token = creds.Token
	cfg.Logger = a.logger
	conn, err := relay.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	var outMu sync.Mutex
	typing := &typingTracker{}
	faint := color.New(color.Faint)

	conn.On(relay.TypeChatMessage, func(f *relay.Frame) {
		var m dto.ChatMessageResponse
		if f.Decode(&m) != nil {
			return
		}
		outMu.Lock()
		a.print.chatMessage(m)
		outMu.Unlock()
	})
	conn.On(relay.TypeTyping, func(f *relay.Frame) {
		var p struct {
			Username string `json:"username"`
		}
		if f.Decode(&p) != nil || p.Username == "" {
			return
		}
		if typing.touch(p.Username) {
			outMu.Lock()
			faint.Fprintf(a.out, "%s is typing…\n", p.Username)
			outMu.Unlock()
		}
	})
	conn.On(relay.TypeError, func(f *relay.Frame) {
		var p struct {
			Message string `json:"message"`
		}
		_ = f.Decode(&p)
		a.logger.Warn("Relay error", "message", p.Message)
	})

	if err := conn.Join(relay.ChatTopic(room)); err != nil {
		return err
	}
	a.print.info("Joined %s. Type a message and press enter; Ctrl-C to leave.", room)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			_ = conn.Emit(relay.TypeTyping, map[string]string{"topic": relay.ChatTopic(room)})
			err := conn.Emit(relay.TypeChatMessage, map[string]string{"room": room, "content": line})
			if err != nil {
				a.logger.Warn("Message not sent", "error", err)
				a.print.info("(not sent: %v)", err)
			}
		}
	}
}
