package unread

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// TerminalNotifier prints notifications to a terminal. It starts in
// PermissionDefault and is granted on the first request unless muted.
type TerminalNotifier struct {
	out   io.Writer
	muted bool

	mu         sync.Mutex
	permission Permission
}

// NewTerminalNotifier writes to out; muted notifiers deny permission
func NewTerminalNotifier(out io.Writer, muted bool) *TerminalNotifier {
	return &TerminalNotifier{out: out, muted: muted, permission: PermissionDefault}
}

// Permission implements Notifier
func (n *TerminalNotifier) Permission() Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.permission
}

// RequestPermission implements Notifier
func (n *TerminalNotifier) RequestPermission(context.Context) Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.permission == PermissionDefault {
		if n.muted {
			n.permission = PermissionDenied
		} else {
			n.permission = PermissionGranted
		}
	}
	return n.permission
}

// Notify implements Notifier
func (n *TerminalNotifier) Notify(title, body string) error {
	_, err := fmt.Fprintf(n.out, "\a%s %s\n", color.New(color.FgYellow, color.Bold).Sprint("🔔 "+title), body)
	return err
}
