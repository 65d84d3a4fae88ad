package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/FP2003/discord-birthday-bot/internal/app"
	"github.com/FP2003/discord-birthday-bot/internal/config"
	"github.com/FP2003/discord-birthday-bot/internal/engine"
)

// main is the application entry point.
// It delegates execution to runMain so that deferred calls run before os.Exit.
func main() {
	os.Exit(runMain())
}

// runMain wires signal handling around the command tree and maps errors to exit codes.
func runMain() int {
	// Create a root context that cancels on SIGINT (Ctrl+C) or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}
	return config.ExitCodeSuccess
}

// cli holds the persistent flags and the settings loaded before any subcommand runs.
type cli struct {
	debug    bool
	envFile  string
	settings config.Settings
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           config.CmdRoot,
		Short:         config.DescRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == config.CmdVer {
				return nil
			}
			return c.load(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVar(&c.debug, config.FlagDebug, false, config.FlagDescDebug)
	root.PersistentFlags().StringVar(&c.envFile, config.FlagEnvFile, config.EnvFileName, config.FlagDescEnvFile)

	root.AddCommand(
		&cobra.Command{
			Use:   config.CmdRun,
			Short: config.DescRun,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.run(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   config.CmdVer,
			Short: config.DescVer,
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				printVersion(cmd.OutOrStdout())
			},
		},
		c.exportCmd(),
		c.importCmd(),
		&cobra.Command{
			Use:   config.CmdToken,
			Short: config.DescToken,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				token, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 4096))
				if err != nil {
					return err
				}
				if err := config.StoreToken(string(token)); err != nil {
					return err
				}
				_, _ = fmt.Fprint(cmd.OutOrStdout(), config.MsgTokenStored)
				return nil
			},
		},
	)
	return root
}

// load reads the configuration and installs the default logger.
func (c *cli) load(stderr io.Writer) error {
	s, err := config.Load(c.envFile)
	if err != nil {
		return err
	}
	c.settings = s

	level, _ := s.Level()
	if c.debug {
		level = slog.LevelDebug
	}
	setupLogging(stderr, s.LogFormat, level, c.debug)
	return nil
}

func (c *cli) run(ctx context.Context) error {
	logStartupInfo()

	if err := c.settings.ResolveToken(); err != nil {
		return err
	}

	a, err := app.New(c.settings)
	if err != nil {
		return err
	}
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return nil
}

func (c *cli) exportCmd() *cobra.Command {
	var guildID, format string

	cmd := &cobra.Command{
		Use:   config.CmdExport,
		Short: config.DescExport,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Export(cmd.Context(), c.settings, guildID, format, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&guildID, config.FlagGuild, "", config.FlagDescGuild)
	cmd.Flags().StringVar(&format, config.FlagFormat, config.FormatICS, config.FlagDescFormat)
	_ = cmd.MarkFlagRequired(config.FlagGuild)
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	var guildID, file, url string

	cmd := &cobra.Command{
		Use:   config.CmdImport,
		Short: config.DescImport,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := openSource(cmd.Context(), c.settings, file, url)
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()

			imported, skipped, err := app.Import(cmd.Context(), c.settings, guildID, src)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), config.MsgImportDone, imported, skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&guildID, config.FlagGuild, "", config.FlagDescGuild)
	cmd.Flags().StringVar(&file, config.FlagFile, "", config.FlagDescFile)
	cmd.Flags().StringVar(&url, config.FlagURL, "", config.FlagDescURL)
	_ = cmd.MarkFlagRequired(config.FlagGuild)
	cmd.MarkFlagsMutuallyExclusive(config.FlagFile, config.FlagURL)
	cmd.MarkFlagsOneRequired(config.FlagFile, config.FlagURL)
	return cmd
}

// openSource opens the vCard document named by exactly one of file or url.
func openSource(ctx context.Context, s config.Settings, file, url string) (io.ReadCloser, error) {
	switch {
	case file != "" && url == "":
		return os.Open(file)
	case url != "" && file == "":
		return engine.NewHTTPFetcher().Fetch(ctx, engine.RemoteSource{
			URL:      url,
			User:     s.ImportUser,
			Password: s.ImportPassword,
		})
	default:
		return nil, errors.New(config.ErrImportSource)
	}
}

// printVersion outputs the build information.
func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyCommit, config.Commit),
			slog.String(config.LogKeyDate, config.Date),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger: JSON for log collectors,
// colored text for terminals.
func setupLogging(w io.Writer, format string, level slog.Level, addSource bool) {
	var handler slog.Handler
	switch format {
	case config.LogFormatText:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  addSource,
			TimeFormat: time.DateTime,
		})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: addSource,
		})
	}
	slog.SetDefault(slog.New(handler))
}
