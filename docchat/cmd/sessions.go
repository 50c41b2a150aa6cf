package main

import (
	"docchat/docchat/utils/color"

	"github.com/spf13/cobra"
)

func (c *cli) newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List your chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			sessions, err := c.app.Sessions.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				c.printf("No sessions yet.\n")
				return nil
			}
			active := c.app.Session.SessionID()
			for _, s := range sessions {
				marker := "  "
				if s.SessionID == active {
					marker = color.ColorInfo("* ")
				}
				title := "(empty)"
				if len(s.Messages) > 0 {
					title = s.Messages[0].Question
					if title == "" {
						title = s.Messages[0].RefinedQuestion
					}
				}
				c.printf("%s%-8s %-25s %2d msgs %2d docs  %s\n",
					marker, s.SessionID, s.UpdatedAt, len(s.Messages), len(s.Documents), title)
			}
			return nil
		},
	}
}

func (c *cli) newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			if err := c.app.Sessions.NewChat(cmd.Context()); err != nil {
				return err
			}
			c.printf("%s %s\n", color.ColorInfo("New session:"), c.app.Session.SessionID())
			return nil
		},
	}
}

func (c *cli) newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <session-id>",
		Short: "Switch to an existing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			if err := c.app.Sessions.Use(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.printf("%s %s (%d messages, %d documents)\n", color.ColorInfo("Using session"),
				args[0], c.app.Timeline.Len(), c.app.Documents.Len())
			return nil
		},
	}
}
