package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zfogg/huddle/internal/dto"
	"golang.org/x/term"
)

// readPassword prompts without echo on a terminal and reads a line otherwise
func (a *app) readPassword(prompt string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.out, prompt)
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		return string(pw), err
	}

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("password required")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) saveSession(resp *dto.AuthResponse) error {
	return a.creds.Save(&Credentials{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		UserID:    resp.User.ID,
		Username:  resp.User.Username,
	})
}

func (a *app) registerCommand() *cobra.Command {
	var req dto.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a Huddle account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				pw, err := a.readPassword("Password: ")
				if err != nil {
					return err
				}
				req.Password = pw
			}

			resp, err := a.api.Register(req)
			if err != nil {
				return describeError(err)
			}
			if err := a.saveSession(resp); err != nil {
				return err
			}
			a.print.success("Welcome, @%s", resp.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Username, "username", "", "Username")
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "Display name")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (a *app) loginCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <email-or-username>",
		Short: "Log in and save the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := a.readPassword("Password: ")
				if err != nil {
					return err
				}
				password = pw
			}

			resp, err := a.api.Login(args[0], password)
			if err != nil {
				return describeError(err)
			}
			if err := a.saveSession(resp); err != nil {
				return err
			}
			a.logger.Info("Logged in", "username", resp.User.Username)
			a.print.success("Logged in as @%s", resp.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.creds.Delete(); err != nil {
				return err
			}
			a.print.success("Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			me, err := a.api.Me()
			if err != nil {
				return describeError(err)
			}
			if a.print.format == "json" {
				return a.print.json(me)
			}
			fmt.Fprintf(a.out, "%s <%s>\n%s\n", author(me.PublicUser), me.Email, me.ID)
			return nil
		},
	}
}
