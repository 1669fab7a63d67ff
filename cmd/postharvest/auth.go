package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"postharvest/pkg/auth"
	"postharvest/pkg/ui"
)

var (
	// Auth command flags
	setName      string
	setUserAgent string
	setDomain    string
	cookieHeader string
	assumeYes    bool
	quickGuide   bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored session cookies",
	Long: `Manage the session cookies injected into the browser before a run.

Cookie sets are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - POSTHARVEST_COOKIES environment variable (read only)

After a run clears the checkpoint, the browser's cookies are written back
to the set named by --cookies (or "default").

Never share your cookie sets or config files!`,
}

// importCmd represents the auth import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Store a cookie header copied from the browser",
	Long: `Store the Cookie request header of a logged-in browser tab.

Paste the header value when prompted (input is hidden), or pass it with
--header. Run 'postharvest auth guide' for step-by-step instructions.`,
	Example: `  # Interactive import into the "main" set
  postharvest auth import --name main

  # Non-interactive
  postharvest auth import --name main --header "_session_id=...; cf_clearance=..."`,
	Args: cobra.NoArgs,
	Run:  runImport,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored cookie sets",
	Long:  `List all stored cookie sets with their values masked.`,
	Run:   runList,
}

// deleteCmd represents the auth delete command
var deleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a stored cookie set",
	Args:    cobra.ExactArgs(1),
	Run:     runDelete,
}

// guideCmd represents the auth guide command
var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show how to copy the cookie header from a browser",
	Run: func(cmd *cobra.Command, args []string) {
		if quickGuide {
			auth.ShowQuickExtractGuide(os.Stdout)
			return
		}
		auth.ShowCookieExtractionGuide(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(importCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(deleteCmd)
	authCmd.AddCommand(guideCmd)

	importCmd.Flags().StringVarP(&setName, "name", "n", "default", "name of the cookie set")
	importCmd.Flags().StringVar(&setUserAgent, "user-agent", "", "user agent of the browser the cookies came from")
	importCmd.Flags().StringVar(&setDomain, "domain", auth.DefaultCookieDomain, "cookie domain")
	importCmd.Flags().StringVar(&cookieHeader, "header", "", "cookie header value (prompted when empty)")
	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	guideCmd.Flags().BoolVar(&quickGuide, "quick", false, "show the short version")
}

func runImport(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize cookie vault", err.Error())
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	if existing, _ := manager.Retrieve(setName); existing != nil && !confirm(reader, fmt.Sprintf("Cookie set '%s' already exists. Replace it?", setName)) {
		return
	}

	header := cookieHeader
	if header == "" {
		fmt.Println("🔐 Paste the Cookie header value (hidden as you type):")
		header, err = readSecret(reader)
		if err != nil {
			ui.PrintError("Failed to read cookie header", err.Error())
			os.Exit(1)
		}
	}

	cookies := auth.ParseCookieHeader(header, setDomain)
	if len(cookies) == 0 {
		ui.PrintError("No cookies found", "expected name=value pairs separated by ';'")
		os.Exit(1)
	}

	set := &auth.CookieSet{
		Name:         setName,
		Cookies:      cookies,
		UserAgent:    setUserAgent,
		LastModified: time.Now(),
	}
	if err := manager.Store(set); err != nil {
		ui.PrintError("Failed to store cookies", err.Error())
		os.Exit(1)
	}

	printCookieSet(os.Stdout, auth.SanitizeCookieSet(set))
	ui.PrintSuccess(fmt.Sprintf("Cookie set saved: %s", setName))
	if setUserAgent == "" {
		ui.PrintWarning("No --user-agent given; a clearance cookie is usually bound to the browser's user agent")
	}
	fmt.Printf("\nUse it with:\n  $ postharvest scrape --cookies %s\n", setName)
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize cookie vault", err.Error())
		os.Exit(1)
	}

	sets, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list cookie sets", err.Error())
		os.Exit(1)
	}
	if len(sets) == 0 {
		ui.PrintWarning("No stored cookie sets")
		fmt.Println("\nTo import one, run:\n  postharvest auth import --name main")
		return
	}

	for _, set := range sets {
		printCookieSet(os.Stdout, auth.SanitizeCookieSet(set))
	}
}

func runDelete(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize cookie vault", err.Error())
		os.Exit(1)
	}

	name := args[0]
	if !assumeYes && !confirm(bufio.NewReader(os.Stdin), fmt.Sprintf("Remove cookie set '%s'?", name)) {
		return
	}

	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to remove cookie set", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Cookie set removed: " + name)
}

func printCookieSet(w io.Writer, set *auth.CookieSet) {
	fmt.Fprintf(w, "\n%s\n", ui.Cyan(set.Name))
	if !set.LastModified.IsZero() {
		fmt.Fprintf(w, "  updated:    %s\n", set.LastModified.Format(time.RFC3339))
	}
	if set.UserAgent != "" {
		fmt.Fprintf(w, "  user agent: %s\n", set.UserAgent)
	}
	for _, c := range set.Cookies {
		fmt.Fprintf(w, "  %-24s %s\n", c.Name, ui.Dim(c.Value))
	}
}

// confirm asks a yes/no question, defaulting to no
func confirm(reader *bufio.Reader, question string) bool {
	fmt.Printf("%s (y/N): ", question)
	input, _ := reader.ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y")
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
