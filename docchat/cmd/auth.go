package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"docchat/docchat/middlewares"
	"docchat/docchat/utils/color"

	"github.com/spf13/cobra"
)

func (c *cli) newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := bufio.NewReader(c.in)
			if email == "" {
				email = c.prompt(r, "Email: ")
			}
			if password == "" {
				password = c.prompt(r, "Password: ")
			}
			if err := c.app.Auth.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			c.printf("%s\n", color.ColorInfo("Logged in."))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func (c *cli) newRegisterCmd() *cobra.Command {
	var name, email, password, confirm string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := bufio.NewReader(c.in)
			if name == "" {
				name = c.prompt(r, "Name: ")
			}
			if email == "" {
				email = c.prompt(r, "Email: ")
			}
			if password == "" {
				password = c.prompt(r, "Password: ")
				confirm = c.prompt(r, "Confirm password: ")
			} else if confirm == "" {
				confirm = password
			}
			if err := c.app.Auth.Register(cmd.Context(), name, email, password, confirm); err != nil {
				return err
			}
			c.printf("%s\n", color.ColorInfo("Account created, you are logged in."))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation")
	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token and the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			c.printf("%s\n", color.ColorInfo("Logged out."))
			return nil
		},
	}
}

func (c *cli) newBridgeTokenCmd() *cobra.Command {
	var client string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "bridge-token",
		Short: "Mint a token for the local bridge API",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := middlewares.MintToken(c.app.Config.BridgeSecret, client, ttl)
			if err != nil {
				return err
			}
			c.printf("%s\n", tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&client, "client", "desktop", "client name put in the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func (c *cli) prompt(r *bufio.Reader, label string) string {
	fmt.Fprint(c.out, color.ColorPrompt(label))
	line, _ := r.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
