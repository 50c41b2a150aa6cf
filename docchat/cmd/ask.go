package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"

	"docchat/docchat/utils/color"

	"github.com/spf13/cobra"
)

// interruptible returns a context cancelled by Ctrl-C, so a streaming answer
// can be stopped without leaving the program.
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}

func (c *cli) newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the documents of the active session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			detach := newStreamPrinter(c.out, false).Attach(c.app.Timeline)
			defer detach()

			ctx, stop := interruptible(cmd.Context())
			defer stop()
			return c.app.Chat.Ask(ctx, strings.Join(args, " "))
		},
	}
}

func (c *cli) newVoiceCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Ask a spoken question, recorded live or read from --file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			detach := newStreamPrinter(c.out, false).Attach(c.app.Timeline)
			defer detach()

			if file != "" {
				return c.app.Voice.SubmitFile(cmd.Context(), file)
			}
			return c.recordAndAsk(cmd.Context(), bufio.NewReader(c.in))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "audio file to send instead of recording")
	return cmd
}

// recordAndAsk records until the user presses Enter, then sends the clip.
func (c *cli) recordAndAsk(ctx context.Context, r *bufio.Reader) error {
	if err := c.app.Voice.Start(ctx); err != nil {
		return err
	}
	c.printf("%s\n", color.ColorVoice("Recording... press Enter to stop."))
	_, _ = r.ReadString('\n')
	c.printf("%s\n", color.ColorInfo("Processing..."))
	return c.app.Voice.Stop(ctx)
}

func (c *cli) newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Download a PDF summary of the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			loc, err := c.app.Summary.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			c.printf("%s %s\n", color.ColorInfo("Summary saved to"), loc)
			return nil
		},
	}
}

func (c *cli) newSummaryAudioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary-audio <audio-file>",
		Short: "Summarize an audio recording into a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			loc, err := c.app.Summary.SummarizeAudio(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.printf("%s %s\n", color.ColorInfo("Summary saved to"), loc)
			return nil
		},
	}
}
