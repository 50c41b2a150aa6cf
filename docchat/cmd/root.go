package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"docchat/docchat/app"
	"docchat/docchat/config"
	"docchat/docchat/utils/color"
	"docchat/docchat/utils/logging"

	"github.com/spf13/cobra"
)

// cli carries the workspace shared by every subcommand of one invocation.
type cli struct {
	app     *app.App
	out     io.Writer
	in      io.Reader
	apiURL  string
	noColor bool
}

// newRootCmd builds the command tree. The caller runs teardown on the returned
// cli after Execute, since cobra skips post-run hooks when a command fails.
func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:           "docchat",
		Short:         "Chat with your documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.apiURL, "api", "", "backend base URL (overrides DOCCHAT_API_BASE_URL)")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		c.newLoginCmd(),
		c.newRegisterCmd(),
		c.newLogoutCmd(),
		c.newBridgeTokenCmd(),
		c.newSessionsCmd(),
		c.newNewCmd(),
		c.newUseCmd(),
		c.newDocsCmd(),
		c.newUploadCmd(),
		c.newDeleteCmd(),
		c.newDownloadCmd(),
		c.newAskCmd(),
		c.newVoiceCmd(),
		c.newSummaryCmd(),
		c.newSummaryAudioCmd(),
		c.newChatCmd(),
		c.newServeCmd(),
		c.newWatchCmd(),
	)
	return root, c
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg := config.LoadConfig()
	if c.apiURL != "" {
		cfg.APIBaseURL = strings.TrimRight(c.apiURL, "/")
	}
	if err := logging.InitLogger(cfg.LogDir); err != nil {
		return err
	}
	if c.noColor {
		color.Disable()
	}
	c.out = cmd.OutOrStdout()
	c.in = cmd.InOrStdin()

	a, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if err := a.Session.Load(cmd.Context()); err != nil {
		a.Close()
		return err
	}
	c.app = a
	return nil
}

func (c *cli) teardown() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
	logging.Sync()
}

// requireLogin fails early when there is no usable token.
func (c *cli) requireLogin() error {
	if c.app.Session.Token() == "" {
		return fmt.Errorf("not logged in (or the token expired): run `docchat login`")
	}
	return nil
}

// requireSession restores the persisted session, starting a new one when none
// is stored.
func (c *cli) requireSession(ctx context.Context) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	return c.app.Sessions.Init(ctx)
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
