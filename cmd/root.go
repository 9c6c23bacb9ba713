/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blacktop/fbpost/internal/config"
	"github.com/blacktop/fbpost/internal/fbpost"
	"github.com/blacktop/fbpost/internal/fbpost/graph"
	"github.com/blacktop/fbpost/internal/logutil"
	"github.com/spf13/cobra"
)

var (
	messageFlag string
	imagePaths  []string
	dryRun      bool
	envFile     string
	apiVersion  string
	verbose     bool
)

// graphOptions are applied to every Graph API client the commands build.
var graphOptions []graph.Option

// Execute runs the root command.
func Execute() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fbpost [message]",
		Short: "Post text and photos to a Facebook Page",
		Long: "fbpost publishes text, a photo, or several photos as one post to a Facebook Page " +
			"through the Graph API. Run `fbpost setup` once to obtain a page access token.",
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: configureLogging,
		RunE:              runRoot,
		Example: `  fbpost "Hello from fbpost"
  fbpost --message "Check out this photo" --image ./shot.jpg
  fbpost -m "Sunrise and sunset" --image sunrise.jpg --image sunset.jpg
  echo "Release shipped" | fbpost --dry-run`,
	}

	cmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Message text to post")
	cmd.Flags().StringArrayVar(&imagePaths, "image", nil, "Path to an image to attach (repeat for a multi-photo post)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the post that would be made without posting")
	cmd.Flags().SortFlags = false

	cmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Dotenv file holding the page credentials")
	cmd.PersistentFlags().StringVar(&apiVersion, "api-version", "", "Graph API version (default $FACEBOOK_API_VERSION or "+graph.DefaultAPIVersion+")")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Enable debug logging")

	cmd.AddCommand(newMeCommand())
	cmd.AddCommand(newSetupCommand())
	cmd.AddCommand(newCompletionCommand())

	return cmd
}

func configureLogging(cmd *cobra.Command, args []string) error {
	if verbose {
		logutil.SetVerbose(true)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if !verbose {
		if err := logutil.SetLevel(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", config.EnvLogLevel, err)
		}
	}
	if v := strings.TrimSpace(apiVersion); v != "" {
		cfg.APIVersion = v
	}
	logutil.Debugf("config loaded: env_file=%s api_version=%s page_id=%s", envFile, cfg.APIVersion, cfg.PageID)
	return cfg, nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	message, err := resolveMessage(cmd, args, len(imagePaths) > 0)
	if err != nil {
		return err
	}
	msgs := buildMessages(message, imagePaths)

	if dryRun {
		printPlan(cmd.OutOrStdout(), graph.NewPlan(msgs...))
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := graph.New(cfg.Graph(), graphOptions...)

	var res fbpost.Response
	if len(msgs) == 1 {
		res, err = client.Post(ctx, msgs[0])
	} else {
		res, err = client.PostMany(ctx, msgs)
	}
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "posted to %s (id: %s)\n", pageLabel(cfg), res.ID())
	return nil
}

// buildMessages turns the CLI input into messages. The text rides on the
// first message and each image gets its own.
func buildMessages(message string, images []string) []fbpost.Message {
	if len(images) == 0 {
		return []fbpost.Message{{Content: message}}
	}
	msgs := make([]fbpost.Message, 0, len(images))
	for i, image := range images {
		msg := fbpost.Message{ImagePath: strings.TrimSpace(image)}
		if i == 0 {
			msg.Content = message
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func printPlan(out io.Writer, plan graph.Plan) {
	fmt.Fprintf(out, "[dry-run] would create a %s post: %q\n", plan.Kind, plan.Message)
	for _, image := range plan.Images {
		fmt.Fprintf(out, "[dry-run] image: %s\n", image)
	}
	for _, image := range plan.Skipped {
		fmt.Fprintf(out, "[dry-run] skipped missing image: %s\n", image)
	}
}

func pageLabel(cfg *config.Config) string {
	if cfg.PageName != "" {
		return fmt.Sprintf("%s (%s)", cfg.PageName, cfg.PageID)
	}
	return "page " + cfg.PageID
}

func resolveMessage(cmd *cobra.Command, args []string, allowEmpty bool) (string, error) {
	var message string

	if messageFlag != "" {
		message = messageFlag
	}

	if len(args) > 0 {
		if message != "" {
			return "", errors.New("provide the message either as an argument or with --message, not both")
		}
		message = strings.Join(args, " ")
	}

	if message != "" {
		return strings.TrimSpace(message), nil
	}

	stdin := cmd.InOrStdin()
	if file, ok := stdin.(*os.File); ok {
		info, err := file.Stat()
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if (info.Mode() & os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return "", fmt.Errorf("read stdin: %w", err)
			}
			message = strings.TrimSpace(string(data))
		}
	}

	if message == "" && !allowEmpty {
		return "", errors.New("message is required unless an image is attached")
	}

	return message, nil
}
