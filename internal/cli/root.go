// Package cli is the refresher command line: post previews, comment
// threads, listing browsing and the moderation actions of the preview
// overlay.
package cli

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	baseURL    string
	nonce      string
}

// Execute runs the root command.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "refresher",
		Short:         "Preview and moderate gallery posts",
		Long:          "refresher fetches gallery posts and comments, renders previews and runs the moderation actions of the preview panel.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/refresher/config.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: console|json")
	pf.StringVar(&opts.baseURL, "base-url", "", "site root, ending with /")
	pf.StringVar(&opts.nonce, "nonce", "", "comment nonce source: static|page|browser")

	cmd.AddCommand(
		newPostCmd(opts),
		newCommentsCmd(opts),
		newBrowseCmd(opts),
		newVoteCmd(opts),
		newDeleteCmd(opts),
		newDeleteCommentCmd(opts),
		newBlockCmd(opts),
		newNoticeCmd(opts),
		newRecommendCmd(opts),
		newCaptchaCmd(opts),
	)
	return cmd
}
