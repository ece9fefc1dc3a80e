package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/config"
	"github.com/pders01/chatlens/internal/debuglog"
	"github.com/pders01/chatlens/internal/media"
	"github.com/pders01/chatlens/internal/search"
	"github.com/pders01/chatlens/internal/session"
	"github.com/pders01/chatlens/internal/storage"
	"github.com/pders01/chatlens/internal/tui"
	"github.com/pders01/chatlens/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	dbPath     string
	logLevel   string
	quiet      bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "chatlens [export.json]",
	Short: "Search and browse chat exports",
	Long: `chatlens is a terminal viewer for exported chat histories.

Open an export, search it with words and "quoted phrases", and step
through each hit in the context of the surrounding conversation.`,
	Example: `  # Start with the recent files list
  chatlens

  # Open an export directly
  chatlens ~/Downloads/ChatExport/result.json`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chatlens %s\n", Version)
		fmt.Println("Chat export viewer")
		fmt.Println("github.com/pders01/chatlens")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration to ~/.config/chatlens/config.toml",
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := os.UserHomeDir()
		configFile := filepath.Join(home, ".config", "chatlens", "config.toml")

		if err := config.GenerateDefaultConfig(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to configuration file")
	flags.StringVar(&dbPath, "db", "", "Path to database file (overrides config)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, off (overrides config)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log to stderr at debug level")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Skip startup banner")

	configCmd.AddCommand(configGenCmd)
	rootCmd.AddCommand(
		versionCmd,
		configCmd,
		newSearchCmd(),
		newContextCmd(),
		newInfoCmd(),
		newHistoryCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the global flags. Logging
// is set up as a side effect.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if verbose {
		debuglog.SetOutput(os.Stderr, debuglog.LevelDebug)
		return cfg, nil
	}

	level := debuglog.ParseLogLevel(cfg.Log.Level)
	if level == debuglog.LevelOff {
		return cfg, nil
	}
	logPath, err := validation.NewSecurePathHandler().LogPath(cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("invalid log path: %w", err)
	}
	if err := debuglog.Setup(level, logPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the history database, honouring --db.
func openStore(cfg *config.Config) (*storage.Store, error) {
	path := cfg.Database.Path
	if dbPath != "" {
		path = dbPath
	}

	resolved, err := validation.NewSecurePathHandler().DBPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	timeout := cfg.Database.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	return storage.NewStoreWithTimeout(resolved, timeout)
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !quiet {
		tui.ShowBanner(Version)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	app := tui.NewApp(store, cfg)
	defer app.Close()
	if len(args) == 1 {
		app.OpenOnStart(args[0])
	}

	debuglog.Infof("Starting chatlens %s", Version)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// loadExport validates path and loads it into a fresh session.
func loadExport(cfg *config.Config, path string) (*session.Session, *chat.FileInfo, error) {
	clean, _, err := validation.NewFilePathValidator().ExportFile(path)
	if err != nil {
		return nil, nil, err
	}

	s := session.New(cfg, nil)
	info, err := s.LoadFile(clean)
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return s, info, nil
}

// writeFragment prints f as HTML, or as terminal text with highlights
// styled when the output is a terminal.
func writeFragment(w io.Writer, f search.Fragment, html bool) {
	if html {
		fmt.Fprint(w, f.HTML())
		return
	}
	for _, seg := range f {
		if seg.Highlight {
			fmt.Fprint(w, tui.HighlightStyle.Render(seg.Text))
		} else {
			fmt.Fprint(w, seg.Text)
		}
	}
}

func writeResult(w io.Writer, r search.Rendered, html bool) {
	msg := r.Message
	fmt.Fprintf(w, "[%s] %s • %s\n", msg.ID, msg.SenderName(), chat.FormatDate(msg.Date))
	if r.Err != nil {
		fmt.Fprintln(w, "  Error rendering this item")
		return
	}
	fmt.Fprint(w, "  ")
	writeFragment(w, r.Fragment, html)
	fmt.Fprintln(w)
}

func newSearchCmd() *cobra.Command {
	var (
		all  bool
		html bool
	)

	cmd := &cobra.Command{
		Use:   "search <export> <query>",
		Short: "Search an export and print the matching messages",
		Long: `Search an export for messages containing every bare word of the query.

Quoted phrases match as a whole, and a message needs only one of them.
Matching ignores case. Results are printed newest first, one page at a
time unless --all is given.`,
		Example: `  chatlens search result.json deploy
  chatlens search result.json '"release notes" "changelog" v2' --all
  chatlens search result.json budget --html > hits.html`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer debuglog.Close()

			s, _, err := loadExport(cfg, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			out, err := s.Search(ctx, args[1])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for {
				for _, r := range out.Rendered {
					writeResult(w, r, html)
				}
				if !all || !out.HasMore {
					break
				}
				out = s.LoadMore()
			}

			fmt.Fprintln(cmd.ErrOrStderr(), out.Stats())
			if out.HasMore {
				fmt.Fprintln(cmd.ErrOrStderr(), "Use --all to print every result")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Print every result instead of the first page")
	cmd.Flags().BoolVar(&html, "html", false, "Print highlighted HTML instead of terminal text")
	return cmd
}

func newContextCmd() *cobra.Command {
	var (
		query string
		html  bool
	)

	cmd := &cobra.Command{
		Use:   "context <export> <message-id>",
		Short: "Print a message with the conversation around it",
		Example: `  chatlens context result.json 4821
  chatlens context result.json 4821 --query deploy`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer debuglog.Close()

			s, _, err := loadExport(cfg, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			terms := search.Parse(query)
			doc, _ := s.Document()
			window, ok := search.Expand(doc, chat.ParseID(args[1]), terms)
			if !ok {
				return fmt.Errorf("message %s not found", args[1])
			}

			w := cmd.OutOrStdout()
			for _, e := range window.Entries {
				if e.Separator != "" {
					fmt.Fprintf(w, "── %s ──\n", e.Separator)
				}
				marker := "  "
				if e.Selected {
					marker = "> "
				}
				fmt.Fprintf(w, "%s%s %s: ", marker, chat.TimeLabel(e.Message.Date), e.Message.SenderName())
				if e.Err != nil {
					fmt.Fprintln(w, "Error rendering this item")
					continue
				}
				writeFragment(w, e.Fragment, html)
				fmt.Fprintln(w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Highlight these terms")
	cmd.Flags().BoolVar(&html, "html", false, "Print highlighted HTML instead of terminal text")
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <export>",
		Short: "Summarise an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer debuglog.Close()

			s, info, err := loadExport(cfg, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			doc, _ := s.Document()
			markdown := tui.DocumentSummary(doc, info, media.NewLauncher(cfg).Detector())

			rendered, err := glamour.Render(markdown, "auto")
			if err != nil {
				rendered = markdown
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or edit recently opened exports",
	}

	withStore := func(fn func(cmd *cobra.Command, store *storage.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer debuglog.Close()

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			return fn(cmd, store, args)
		}
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent files, newest first",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *storage.Store, _ []string) error {
			entries, err := store.History()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No recent files")
				return nil
			}
			now := time.Now()
			for _, e := range entries {
				details := []string{fmt.Sprintf("%d messages", e.MessageCount), chat.FormatFileSize(e.Size)}
				if !e.LastOpened.IsZero() {
					details = append(details, chat.Age(e.LastOpened, now))
				}
				fmt.Fprintf(w, "%s\n  %s (%s)\n", e.Name, e.Path, strings.Join(details, ", "))
			}
			return nil
		}),
	}

	removeCmd := &cobra.Command{
		Use:   "remove <path>",
		Short: "Forget one recent file",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store *storage.Store, args []string) error {
			path := args[0]
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			if _, err := store.GetHistory(path); errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%s is not in the history", path)
			}
			if err := store.RemoveHistory(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", path)
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget every recent file",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *storage.Store, _ []string) error {
			if err := store.ClearHistory(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		}),
	}

	cmd.AddCommand(listCmd, removeCmd, clearCmd)
	return cmd
}
