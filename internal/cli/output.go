package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	json "github.com/json-iterator/go"
	"github.com/zfogg/huddle/internal/dto"
)

// printer renders results as text, table or json
type printer struct {
	out    io.Writer
	format string
}

func (p printer) json(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

func (p printer) success(msg string, args ...interface{}) {
	if p.format == "json" {
		return
	}
	color.New(color.FgGreen).Fprintf(p.out, msg+"\n", args...)
}

func (p printer) info(msg string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(p.out, msg+"\n", args...)
}

func (p printer) table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

func ago(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("Jan 2")
	}
}

func author(u dto.PublicUser) string {
	if u.DisplayName != "" && u.DisplayName != u.Username {
		return fmt.Sprintf("%s (@%s)", u.DisplayName, u.Username)
	}
	return "@" + u.Username
}

func (p printer) post(post dto.PostResponse) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	bold.Fprint(p.out, author(post.Author))
	faint.Fprintf(p.out, "  %s  %s\n", ago(post.CreatedAt), post.ID)
	if post.SharedFrom != nil {
		faint.Fprintf(p.out, "  ↻ shared from %s: %s\n", author(post.SharedFrom.Author), post.SharedFrom.Content)
	}
	if post.Content != "" {
		fmt.Fprintf(p.out, "  %s\n", post.Content)
	}
	if post.ImageURL != nil {
		faint.Fprintf(p.out, "  [image] %s\n", *post.ImageURL)
	}
	faint.Fprintf(p.out, "  ♥ %d  💬 %d  ↻ %d\n", post.LikeCount, len(post.Comments), post.Shares)
	for _, c := range post.Comments {
		fmt.Fprintf(p.out, "    %s: %s  ", author(c.Author), c.Content)
		faint.Fprintf(p.out, "%s\n", c.ID)
		for _, r := range c.Replies {
			fmt.Fprintf(p.out, "      ↳ %s: %s\n", author(r.Author), r.Content)
		}
	}
}

func (p printer) posts(posts []dto.PostResponse) error {
	switch p.format {
	case "json":
		return p.json(posts)
	case "table":
		rows := make([][]string, 0, len(posts))
		for _, post := range posts {
			rows = append(rows, []string{
				post.ID, "@" + post.Author.Username, truncate(post.Content, 40),
				fmt.Sprint(post.LikeCount), fmt.Sprint(len(post.Comments)), fmt.Sprint(post.Shares),
			})
		}
		p.table([]string{"ID", "AUTHOR", "CONTENT", "LIKES", "COMMENTS", "SHARES"}, rows)
		return nil
	}

	if len(posts) == 0 {
		p.info("No posts yet")
		return nil
	}
	for i, post := range posts {
		if i > 0 {
			fmt.Fprintln(p.out)
		}
		p.post(post)
	}
	return nil
}

func (p printer) notifications(list []dto.NotificationResponse) error {
	if p.format == "json" {
		return p.json(list)
	}
	if len(list) == 0 {
		p.info("No notifications")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, n := range list {
		who := "someone"
		if n.Sender != nil {
			who = "@" + n.Sender.Username
		}
		status := "unread"
		if n.Read {
			status = "read"
		}
		rows = append(rows, []string{n.ID, status, describeNotification(string(n.Type), who), ago(n.CreatedAt)})
	}
	p.table([]string{"ID", "STATUS", "WHAT", "WHEN"}, rows)
	return nil
}

func describeNotification(kind, who string) string {
	switch kind {
	case "like":
		return who + " liked your post"
	case "comment":
		return who + " commented on your post"
	case "reply":
		return who + " replied to your comment"
	case "follow":
		return who + " followed you"
	default:
		return who + " " + kind
	}
}

func (p printer) chatMessage(m dto.ChatMessageResponse) {
	color.New(color.Faint).Fprintf(p.out, "[%s] ", m.CreatedAt.Local().Format("15:04"))
	color.New(color.Bold).Fprintf(p.out, "%s: ", author(m.Sender))
	fmt.Fprintln(p.out, m.Content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
