package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"taskdesk/internal/api"
	"taskdesk/internal/config"
	"taskdesk/internal/format"
	"taskdesk/internal/logging"
	"taskdesk/internal/session"
	"taskdesk/internal/tui"

	"github.com/spf13/cobra"
)

const annotationAuth = "taskdesk/auth"

type App struct {
	APIURL     string
	StateDir   string
	Timeout    string
	LogLevel   string
	EnvFile    string
	PrettyJSON bool
	Format     string

	cfg       *config.Config
	log       *slog.Logger
	logCloser io.Closer
	sess      *session.Store
	client    *api.Client

	// interactive reports whether prompts may be shown.
	interactive func() bool
}

func newApp() *App {
	return &App{interactive: stdinIsTerminal}
}

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute() int {
	app := newApp()
	defer app.close()
	return ExitCode(newRootCmd(app).Execute())
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskdesk",
		Short:         "Task manager client (CLI + TUI)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  taskdesk

  # Sign in once; the session is kept in the state dir
  taskdesk login --email you@example.com

  # Scriptable commands
  taskdesk tasks list --search report --sort due_date
  taskdesk tasks create --title "Write report" --due 2024-06-01
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return writeErr(cmd, errUsage("unknown command %q; see `taskdesk --help`", args[0]))
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := app.init(cmd.Context()); err != nil {
			return writeErr(cmd, err)
		}
		if cmd.Annotations[annotationAuth] == "required" {
			if _, err := session.Require(app.sess); err != nil {
				return writeErr(cmd, fmt.Errorf("%w; run `taskdesk login`", err))
			}
		}
		return nil
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return writeErr(c, usageError{err})
	})

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", envOr(config.EnvAPIURL, ""), "Backend base URL")
	cmd.PersistentFlags().StringVar(&app.StateDir, "state-dir", envOr(config.EnvStateDir, ""), "Directory for the session db and logs (default ~/.taskdesk)")
	cmd.PersistentFlags().StringVar(&app.Timeout, "timeout", envOr(config.EnvTimeout, ""), "HTTP timeout (e.g. 30s; 0 uses the default)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr(config.EnvLogLevel, ""), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TASKDESK_FORMAT", "table"), "Output format (table|json)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newSignupCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// init resolves config (flags > env > file > defaults) and wires the session
// store into the API client.
func (app *App) init(ctx context.Context) error {
	if app.client != nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(app.EnvFile)
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(app.APIURL); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(app.StateDir); v != "" {
		cfg.StateDir = v
	}
	if v := strings.TrimSpace(app.Timeout); v != "" {
		cfg.Timeout = v
	}
	if v := strings.TrimSpace(app.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return usageError{err}
	}

	logger, closer, err := logging.Init(cfg.StateDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	app.log, app.logCloser = logger, closer

	sess, err := session.Open(ctx, session.SQLitePersister{Dir: cfg.StateDir}, logger)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	app.cfg = cfg
	app.sess = sess
	app.client = api.NewClient(api.Options{
		BaseURL:        cfg.APIURL,
		Timeout:        timeout,
		Tokens:         sess,
		OnUnauthorized: sess.HandleUnauthorized,
		Logger:         logger,
	})
	logger.Debug("cli ready", "api_url", cfg.APIURL, "state_dir", cfg.StateDir)
	return nil
}

func (app *App) close() {
	if app.logCloser != nil {
		_ = app.logCloser.Close()
		app.logCloser = nil
	}
}

func runTUI(cmd *cobra.Command, app *App) error {
	return tui.Run(cmd.Context(), tui.Options{
		Client:  app.client,
		Session: app.sess,
		Logger:  app.log,
	})
}

// requireAuth marks a command as needing a signed-in session.
func requireAuth(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationAuth] = "required"
	return cmd
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
