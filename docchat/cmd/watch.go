package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"docchat/docchat/services/events"
	"docchat/docchat/utils/color"

	"github.com/spf13/cobra"
)

func (c *cli) newWatchCmd() *cobra.Command {
	var sessionID string
	var all bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a conversation live from the NATS timeline events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.Events == nil {
				return errors.New("timeline events are off: set NATS_URL")
			}
			subject := c.app.Config.NatsSubject + ".>"
			if !all {
				if sessionID == "" {
					sessionID = c.app.Session.SessionID()
				}
				if sessionID == "" {
					return errors.New("no active session: pass --session or --all")
				}
				subject = events.Subject(c.app.Config.NatsSubject, sessionID)
			}

			c.printf("%s %s\n", color.ColorInfo("Watching"), subject)
			printer := newStreamPrinter(c.out, true)
			if err := events.Follow(c.app.Events, subject, func(ev events.TimelineEvent) {
				printer.handle(ev.Event())
			}); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session to follow (default: the active one)")
	cmd.Flags().BoolVar(&all, "all", false, "follow every session")
	return cmd
}
