package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"turntable/internal/app"
	"turntable/internal/domain"
	"turntable/internal/observability"
	"turntable/internal/web"
)

// loginTimeout bounds how long the login command waits for the user to
// finish the consent dialog.
const loginTimeout = 5 * time.Minute

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "turntable",
		Usage: "Spotify OAuth session keeper",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
		},
		Commands: []*cli.Command{
			startCommand(),
			loginCommand(),
			statusCommand(),
			logoutCommand(),
			clearCacheCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// serverFlags are shared by the commands that serve the web surface.
func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "log format (text|json|otlp)",
			Value: observability.DefaultFormat(),
		},
		&cli.StringFlag{
			Name:  "server--host",
			Usage: "server host",
			Value: app.DefaultConfigServerHost,
		},
		&cli.IntFlag{
			Name:  "server--port",
			Usage: "server port",
			Value: int(app.DefaultConfigServerPort),
		},
	}
}

func startCommand() *cli.Command {
	return &cli.Command{
		Name:   "start",
		Usage:  "run the auth server until interrupted",
		Flags:  serverFlags(),
		Action: startAction,
	}
}

func startAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting")

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "connect a Spotify account in the browser",
		Flags: append(serverFlags(),
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "print the login URL instead of opening a browser",
			},
		),
		Action: loginAction,
	}
}

func loginAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	// Serve the callback for the duration of the flow.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- application.Start(runCtx) }()

	loginURL := "http://" + application.Address() + "/login"
	if cmd.Bool("no-browser") {
		fmt.Printf("Open %s to connect your Spotify account.\n", loginURL)
	} else if err := openBrowser(loginURL); err != nil {
		slog.WarnContext(ctx, "opening browser failed", "error", err)
		fmt.Printf("Open %s to connect your Spotify account.\n", loginURL)
	} else {
		fmt.Println("Waiting for authorization in your browser...")
	}

	select {
	case <-application.Authenticated():
	case err := <-done:
		if err != nil {
			return fmt.Errorf("auth server: %w", err)
		}
		return errors.New("auth server stopped before authorization completed")
	case <-time.After(loginTimeout):
		cancel()
		<-done
		return fmt.Errorf("no authorization after %s, giving up", loginTimeout)
	case <-ctx.Done():
		<-done
		return ctx.Err()
	}

	// Graceful shutdown lets the in-flight success page finish.
	cancel()
	if err := <-done; err != nil {
		return fmt.Errorf("auth server shutdown: %w", err)
	}

	if st := application.Manager().Status(); st.Token != nil && st.Token.Scope != "" {
		fmt.Println("Connected. Granted scopes:", st.Token.Scope)
	} else {
		fmt.Println("Connected.")
	}
	return nil
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show whether a Spotify session is active",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print machine-readable output",
			},
		},
		Action: statusAction,
	}
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	manager, err := app.NewManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	// Same document GET /status serves, so scripts can use either.
	resp := web.StatusResponse{Authenticated: manager.IsAuthenticated(ctx)}
	if st := manager.Status(); resp.Authenticated && st.Token != nil {
		resp.ExpiresAt = st.Token.ExpiresAt
		resp.Scope = st.Token.Scope

		cache, err := cfg.Cache.NewStore()
		if err != nil {
			return fmt.Errorf("failed to create cache store: %w", err)
		}
		var p domain.Profile
		if ok, err := cache.Get(ctx, domain.ProfileCacheKey, &p); err != nil {
			slog.WarnContext(ctx, "reading cached profile failed", "error", err)
		} else if ok {
			resp.DisplayName = p.DisplayName
		}
	}

	if cmd.Bool("json") {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if !resp.Authenticated {
		fmt.Println("Not authenticated. Run `turntable login` to connect a Spotify account.")
		return nil
	}
	if resp.DisplayName != "" {
		fmt.Printf("Authenticated as %s.\n", resp.DisplayName)
	} else {
		fmt.Println("Authenticated.")
	}
	fmt.Printf("Access token expires at %s.\n", time.Unix(resp.ExpiresAt, 0).Format(time.RFC1123))
	if resp.Scope != "" {
		fmt.Println("Granted scopes:", resp.Scope)
	}
	return nil
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "disconnect and remove saved tokens and cached data",
		Action: logoutAction,
	}
}

func logoutAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	manager, err := app.NewManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	if err := manager.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect finished with failures: %w", err)
	}

	fmt.Println("Disconnected. Saved tokens and cached data removed.")
	return nil
}

func clearCacheCommand() *cli.Command {
	return &cli.Command{
		Name:   "clear-cache",
		Usage:  "remove cached API data, keeping the session",
		Action: clearCacheAction,
	}
}

func clearCacheAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	// The cache store alone is enough here; building the session manager
	// would load (and possibly refresh) the saved token for nothing.
	cache, err := cfg.Cache.NewStore()
	if err != nil {
		return fmt.Errorf("failed to create cache store: %w", err)
	}
	if err := cache.ClearAll(ctx); err != nil {
		return fmt.Errorf("clearing cache failed: %w", err)
	}

	fmt.Println("Cache cleared.")
	return nil
}
