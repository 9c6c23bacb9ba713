package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/blacktop/fbpost/internal/config"
	"github.com/blacktop/fbpost/internal/fbpost"
	"github.com/blacktop/fbpost/internal/fbpost/graph"
	"github.com/blacktop/fbpost/internal/logutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const explorerURL = "https://developers.facebook.com/tools/explorer/"

var requiredPermissions = []string{
	"pages_show_list",
	"pages_manage_posts",
	"pages_read_engagement",
	"public_profile",
}

var (
	setupAppID     string
	setupAppSecret string
)

func newSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Exchange a user token for a long-lived page access token",
		Long: "setup walks through generating a user token in the Graph API Explorer, exchanges it " +
			"for a long-lived token, lets you pick a page and saves its credentials to the env file.",
		Args: cobra.NoArgs,
		RunE: runSetup,
	}
	cmd.Flags().StringVar(&setupAppID, "app-id", "", "Facebook app id (default $FACEBOOK_APP_ID)")
	cmd.Flags().StringVar(&setupAppSecret, "app-secret", "", "Facebook app secret (default $FACEBOOK_APP_SECRET)")
	return cmd
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(setupAppID); v != "" {
		cfg.AppID = v
	}
	if v := strings.TrimSpace(setupAppSecret); v != "" {
		cfg.AppSecret = v
	}
	if err := cfg.ValidateForSetup(); err != nil {
		return err
	}

	reader := bufio.NewReader(in)
	printInstructions(out, cfg.AppID)

	userToken, err := promptToken(in, reader, out)
	if err != nil {
		return err
	}
	if userToken == "" {
		return errors.New("no token provided")
	}

	token := exchangeToken(ctx, out, cfg, userToken)

	section(out, "STEP 3: Get Your Pages")
	pages, err := graph.New(graph.Config{AccessToken: token, APIVersion: cfg.APIVersion}, graphOptions...).Accounts(ctx)
	if err != nil {
		return fmt.Errorf("list pages (make sure you granted page permissions when generating the token): %w", err)
	}
	if len(pages) == 0 {
		return errors.New("no pages found; make sure you selected your pages when generating the token")
	}

	fmt.Fprintf(out, "Found %d page(s):\n\n", len(pages))
	for i, page := range pages {
		fmt.Fprintf(out, "%d. %s (ID: %s)\n", i+1, page.Name, page.ID)
	}
	fmt.Fprintln(out)

	page, err := selectPage(reader, out, pages)
	if err != nil {
		return err
	}

	cfg.PageID = page.ID
	cfg.PageName = page.Name
	cfg.AccessToken = page.AccessToken
	if err := cfg.Save(envFile); err != nil {
		return err
	}

	section(out, "SUCCESS!")
	fmt.Fprintf(out, "Page: %s\nPage ID: %s\n\n", page.Name, page.ID)
	fmt.Fprintf(out, "Configuration saved to %s\n\n", envFile)
	fmt.Fprintln(out, "Your Page Access Token:")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out, page.AccessToken)
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out, "\nTest your setup with: fbpost me")
	return nil
}

func printInstructions(out io.Writer, appID string) {
	section(out, "Facebook Page Setup")
	fmt.Fprintf(out, "App ID: %s\n\n", appID)
	section(out, "STEP 1: Get Your Access Token")
	fmt.Fprintf(out, "1. Go to: %s\n", explorerURL)
	fmt.Fprintf(out, "2. Select your app '%s' from the dropdown\n", appID)
	fmt.Fprintln(out, "3. Click 'User or Page' and select 'Get User Token'")
	fmt.Fprintln(out, "4. Add these permissions:")
	for _, perm := range requiredPermissions {
		fmt.Fprintf(out, "   - %s\n", perm)
	}
	fmt.Fprintln(out, "5. Click 'Generate Access Token'")
	fmt.Fprintln(out, "6. Grant permissions and select your Facebook pages")
	fmt.Fprintln(out, "7. Copy the token")
	fmt.Fprintln(out)
}

// exchangeToken returns a long-lived token, falling back to the user token
// when the exchange fails.
func exchangeToken(ctx context.Context, out io.Writer, cfg *config.Config, userToken string) string {
	section(out, "STEP 2: Exchange for Long-Lived Token")
	client := graph.New(graph.Config{AccessToken: userToken, APIVersion: cfg.APIVersion}, graphOptions...)
	longLived, err := client.ExchangeToken(ctx, cfg.AppID, cfg.AppSecret)
	if err != nil {
		logutil.Warnf("token exchange failed: %v", err)
		fmt.Fprintln(out, "Using original token")
		return userToken
	}
	fmt.Fprintln(out, "Long-lived token obtained")
	return longLived
}

func promptToken(in io.Reader, reader *bufio.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Paste your access token: ")
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		data, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	line, err := readLine(reader)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return line, nil
}

// selectPage picks the only page, or asks for one. An invalid choice falls
// back to the first page.
func selectPage(reader *bufio.Reader, out io.Writer, pages []fbpost.Page) (fbpost.Page, error) {
	if len(pages) == 1 {
		return pages[0], nil
	}

	fmt.Fprintf(out, "Select a page (1-%d): ", len(pages))
	line, err := readLine(reader)
	if err != nil {
		return fbpost.Page{}, fmt.Errorf("read page choice: %w", err)
	}
	choice, err := strconv.Atoi(line)
	if err != nil || choice < 1 || choice > len(pages) {
		logutil.Warnf("invalid page choice %q, using %s", line, pages[0].Name)
		return pages[0], nil
	}
	return pages[choice-1], nil
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func section(out io.Writer, title string) {
	rule := strings.Repeat("=", 48)
	fmt.Fprintf(out, "\n%s\n%s\n%s\n", rule, title, rule)
}
