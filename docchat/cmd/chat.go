package main

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"docchat/docchat/controllers"
	"docchat/docchat/timeline"
	"docchat/docchat/utils/color"
	"docchat/docchat/utils/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const chatHelp = `Type a question, or one of:
  /new                 start a new session
  /sessions            list sessions
  /use <id>            switch session
  /history             reprint the conversation
  /docs                list documents
  /upload <file>...    upload documents
  /delete <doc-id>     remove a document
  /voice [file]        ask by voice (records until Enter without a file)
  /summary             save a PDF summary
  /help                show this help
  exit                 quit
`

func (c *cli) newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with the documents of the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			return c.repl(cmd)
		},
	}
}

func (c *cli) repl(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logging.AppLogger.Info("chat started", zap.String("session_id", c.app.Session.SessionID()))

	c.printf("\n%s %s  (%d documents)\n\n", color.ColorInfo("Session"), c.app.Session.SessionID(), c.app.Documents.Len())
	c.printf("%s", chatHelp)
	c.printHistory()

	detach := newStreamPrinter(c.out, false).Attach(c.app.Timeline)
	defer detach()

	reader := bufio.NewReader(c.in)
	for {
		c.printf("\n%s", color.ColorPrompt("docchat> "))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			c.printf("\n")
			return nil
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			c.printf("Goodbye!\n")
			return nil
		case strings.HasPrefix(line, "/"):
			if err := c.command(cmd, reader, line); err != nil {
				c.printf("%s %s\n", color.ColorError("error:"), err)
			}
		default:
			askCtx, stop := interruptible(ctx)
			err := c.app.Chat.Ask(askCtx, line)
			stop()
			switch {
			case errors.Is(err, controllers.ErrNoDocuments):
				c.printf("%s\n", color.ColorWarning("Upload a document first (/upload <file>)."))
			case errors.Is(err, context.Canceled):
			case err != nil:
				c.printf("%s %s\n", color.ColorError("error:"), err)
			}
		}
	}
}

// command runs one slash command of the REPL.
func (c *cli) command(cmd *cobra.Command, reader *bufio.Reader, line string) error {
	ctx := cmd.Context()
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/help":
		c.printf("%s", chatHelp)
	case "/new":
		if err := c.app.Sessions.NewChat(ctx); err != nil {
			return err
		}
		c.printf("%s %s\n", color.ColorInfo("New session:"), c.app.Session.SessionID())
	case "/sessions":
		return c.newSessionsCmd().RunE(cmd, nil)
	case "/use":
		if len(args) != 1 {
			return errors.New("usage: /use <session-id>")
		}
		if err := c.app.Sessions.Use(ctx, args[0]); err != nil {
			return err
		}
		c.printHistory()
	case "/history":
		c.printHistory()
	case "/docs":
		if err := c.app.Documents.Refresh(ctx); err != nil {
			return err
		}
		c.printDocs()
	case "/upload":
		if len(args) == 0 {
			return errors.New("usage: /upload <file>...")
		}
		return c.upload(cmd, args)
	case "/delete":
		if len(args) != 1 {
			return errors.New("usage: /delete <doc-id>")
		}
		return c.app.Documents.Delete(ctx, args[0])
	case "/voice":
		if len(args) > 0 {
			return c.app.Voice.SubmitFile(ctx, strings.Join(args, " "))
		}
		return c.recordAndAsk(ctx, reader)
	case "/summary":
		loc, err := c.app.Summary.Summarize(ctx)
		if err != nil {
			return err
		}
		c.printf("%s %s\n", color.ColorInfo("Summary saved to"), loc)
	default:
		return errors.New("unknown command " + name + " (try /help)")
	}
	return nil
}

func (c *cli) printHistory() {
	for _, m := range c.app.Timeline.Snapshot() {
		if m.Type == timeline.SenderUser {
			c.printf("%s %s\n", color.ColorUser("You:"), m.Content)
			continue
		}
		c.printf("%s %s\n", color.ColorBot("DocAI:"), m.Content)
	}
}
