// Package cli implements the huddle command-line client.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zfogg/huddle/internal/client"
)

var errNotLoggedIn = errors.New("not logged in (run `huddle login`)")

// app is the state shared by every command of one invocation
type app struct {
	out    io.Writer
	in     io.Reader
	config *viper.Viper
	logger *log.Logger
	creds  credentialStore
	api    *client.Client
	print  printer

	configPath string
	verbose    bool
	format     string

	logFile *os.File
}

// NewRootCommand builds the command tree writing to out and reading from in
func NewRootCommand(out io.Writer, in io.Reader) *cobra.Command {
	a := &app{out: out, in: in}

	root := &cobra.Command{
		Use:   "huddle",
		Short: "Huddle CLI - posts, follows, notifications and chat from the terminal",
		Long: `huddle is a command-line client for the Huddle social network.
Read and write the feed, like and comment, follow people, watch
notifications and chat in rooms in real time.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logFile != nil {
				a.logFile.Close()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file (default: ~/.config/huddle/config.toml)")
	root.PersistentFlags().StringVarP(&a.format, "output", "o", "", "Output format: text, table, json")

	root.AddCommand(
		a.registerCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.feedCommand(),
		a.postCommand(),
		a.deleteCommand(),
		a.likeCommand(),
		a.commentCommand(),
		a.replyCommand(),
		a.shareCommand(),
		a.followCommand(),
		a.unfollowCommand(),
		a.profileCommand(),
		a.notificationsCommand(),
		a.chatCommand(),
		a.watchCommand(),
	)
	return root
}

// Execute runs the CLI against the process's stdio
func Execute() {
	if err := NewRootCommand(os.Stdout, os.Stdin).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	v, dir, err := loadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.config = v
	a.creds = newCredentialStore(dir)

	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	var logOut io.Writer = os.Stderr
	if f, err := os.OpenFile(v.GetString("log.file"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600); err == nil {
		a.logFile = f
		logOut = f
	}
	a.logger = log.NewWithOptions(logOut, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "huddle",
	})

	format := a.format
	if format == "" {
		format = v.GetString("output.format")
	}
	a.print = printer{out: a.out, format: format}

	a.api = client.New(client.Options{
		BaseURL: v.GetString("api.base_url"),
		Timeout: time.Duration(v.GetInt("api.timeout")) * time.Second,
		Logger:  a.logger,
	})

	creds, err := a.creds.Load()
	if err != nil {
		a.logger.Warn("Ignoring unreadable credentials", "error", err)
	} else if creds.Valid() {
		a.api.SetToken(creds.Token)
	}
	return nil
}

// session returns the saved credentials or errNotLoggedIn
func (a *app) session() (*Credentials, error) {
	creds, err := a.creds.Load()
	if err != nil {
		return nil, err
	}
	if !creds.Valid() {
		return nil, errNotLoggedIn
	}
	return creds, nil
}

// describeError turns API errors into one line for the terminal
func describeError(err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("%w: %v", errNotLoggedIn, err)
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return errors.New(apiErr.Message)
	}
	return err
}
