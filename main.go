// Command frontier runs the Frontier encounter engine.
//
// It supports four commands:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" – plays a chapter in the terminal against a local engine
//  4. "validate" – lints every chapter file in the config directory
//
// Flags (or their environment variables) control host/port, the config,
// session and progress locations, debug logging, and optional ngrok tunneling
// for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/misoria/frontier/api"
	"github.com/misoria/frontier/game/config"
	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/game/progress"
	"github.com/misoria/frontier/game/service"
	"github.com/misoria/frontier/game/session"
	"github.com/misoria/frontier/transport/mcp"
	"github.com/misoria/frontier/transport/websocket"
	"github.com/misoria/frontier/tui"
	"github.com/misoria/frontier/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Frontier Encounter Server"
)

// Session housekeeping intervals
const (
	sessionRetention    = 24 * time.Hour
	sessionCleanupEvery = time.Hour
	filesystemSyncEvery = 5 * time.Second
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logrus.WithError(err).Warn("Error loading .env file")
		}
	} else {
		logrus.Info("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		logrus.WithError(err).Fatal("Command failed")
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:           "frontier",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing chapter configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Value:   "sessions",
				Usage:   "Directory where sessions are persisted",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.StringFlag{
				Name:    "progress-file",
				Value:   "progress.yaml",
				Usage:   "File recording collected items and unlocked chapters",
				Sources: cli.EnvVars("PROGRESS_FILE"),
			},
			&cli.BoolFlag{
				Name:    "enforce-unlocks",
				Usage:   "Refuse sessions for chapters that are still locked",
				Sources: cli.EnvVars("ENFORCE_UNLOCKS"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				logrus.SetLevel(logrus.DebugLevel)
				logrus.SetReportCaller(true)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
					&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
					&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
					&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
					&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
				},
				Action: runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, reusing an external API when one answers",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "External API to reuse", Sources: cli.EnvVars("FRONTIER_API_URL")},
				},
				Action: runStdioMCP,
			},
			{
				Name:  "play",
				Usage: "Play a chapter in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "chapter", Aliases: []string{"c"}, Usage: "Chapter to play (default chapter when empty)"},
					&cli.Uint64Flag{Name: "seed", Usage: "Board seed; 0 picks a random board"},
				},
				Action: runPlay,
			},
			{
				Name:   "validate",
				Usage:  "Lint every chapter in the config directory",
				Action: runValidate,
			},
		},
	}
}

// services groups everything the network commands share
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
}

// initializeServices wires config, progress, session managers and the game service
func initializeServices(cmd *cli.Command) (*services, error) {
	// Create config manager first (needed for persistence)
	configManager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	store, err := progress.NewStore(cmd.String("progress-file"), configManager.GetDefault().ID)
	if err != nil {
		return nil, fmt.Errorf("failed to open progress store: %w", err)
	}

	persistence, err := session.NewFilePersistence(cmd.String("sessions-dir"), configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logrus.WithError(err).Warn("Failed to load persisted sessions")
	}

	gameService := service.NewGameService(sessionManager, configManager,
		service.WithProgress(store),
		service.WithUnlockEnforcement(cmd.Bool("enforce-unlocks")),
	)

	return &services{
		game:        gameService,
		sessions:    sessionManager,
		persistence: persistence,
	}, nil
}

// mcpHandler serves single JSON-RPC messages for the MCP server over HTTP POST
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runServer starts the HTTP server with REST API, WebSocket hub, and an /mcp endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	svcs, err := initializeServices(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessionCleanupRoutine(ctx, svcs.sessions)
	go filesystemSyncRoutine(ctx, svcs.sessions, svcs.persistence)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	apiServer := api.NewServer(svcs.game, hub)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	mcpClient := mcp.NewClient("http://" + addr)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient.GetMCPServer()))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logrus.WithFields(logrus.Fields{
			"addr":      addr,
			"api":       "http://" + addr + "/api",
			"websocket": "ws://" + addr + "/ws?session=<session_id>",
			"mcp":       "http://" + addr + "/mcp",
		}).Info("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter)
		}()
	}

	select {
	case <-ctx.Done():
		logrus.Info("Shutting down...")
	case err := <-errCh:
		stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown error")
	}
	if err := svcs.sessions.SaveAllSessions(); err != nil {
		logrus.WithError(err).Warn("Failed to save sessions on shutdown")
	}

	wg.Wait()
	logrus.Info("Server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		logrus.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	logrus.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logrus.WithField("domain", domain).Info("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logrus.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}
	ngrokURL := tun.URL()
	logrus.WithFields(logrus.Fields{
		"url":       ngrokURL,
		"api":       ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?session=<session_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Info("🚀 Ngrok tunnel established")

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logrus.WithError(err).Warn("Ngrok server error")
	}
	logrus.Info("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically drops sessions not accessed within the retention window
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(sessionCleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.CleanupExpiredSessions(sessionRetention)
		}
	}
}

// filesystemSyncRoutine removes sessions from memory when their files are deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(filesystemSyncEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := pruneOrphanedSessions(manager, persistence); n > 0 {
				logrus.WithField("pruned", n).Info("Filesystem sync pruned orphaned sessions")
			}
		}
	}
}

// pruneOrphanedSessions drops in-memory sessions whose file no longer exists
func pruneOrphanedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	if persistence == nil {
		return 0
	}

	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			logrus.WithField("session", sess.ID).Debug("Pruned session from memory (file deleted)")
		}
	}
	return pruned
}

// runStdioMCP runs an MCP stdio server. It reuses the external API when it
// answers; otherwise it starts an internal HTTP API on a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	externalURL := strings.TrimSuffix(cmd.String("api-url"), "/")
	baseURL := externalURL

	logrus.WithField("url", externalURL).Info("Checking for external API server")
	if !apiAvailable(externalURL) {
		logrus.Info("No external API server found, starting internal HTTP server")

		svcs, err := initializeServices(cmd)
		if err != nil {
			return err
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(svcs.game, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Error("Internal HTTP server error")
			}
		}()
		defer func() {
			if err := svcs.sessions.SaveAllSessions(); err != nil {
				logrus.WithError(err).Warn("Failed to save sessions")
			}
			httpServer.Close()
		}()

		baseURL = "http://" + listener.Addr().String()
	}

	logrus.WithField("api", baseURL).Info("MCP stdio server ready")
	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

// apiAvailable probes the health endpoint of an API server
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runPlay opens a chapter in the terminal client
func runPlay(ctx context.Context, cmd *cli.Command) error {
	configManager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}

	chapter := configManager.GetDefault()
	if id := cmd.String("chapter"); id != "" {
		if chapter, err = configManager.LoadConfig(id); err != nil {
			return err
		}
	}

	store, err := progress.NewStore(cmd.String("progress-file"), configManager.GetDefault().ID)
	if err != nil {
		return fmt.Errorf("failed to open progress store: %w", err)
	}
	if cmd.Bool("enforce-unlocks") {
		if err := store.CheckUnlocked(chapter.ID); err != nil {
			return err
		}
	}

	opts := []engine.Option{engine.WithRegistry(configManager.Registry())}
	if seed := cmd.Uint64("seed"); seed != 0 {
		opts = append(opts, engine.WithRand(rand.New(rand.NewPCG(seed, seed))))
	}
	if chapter.AvoidCollected {
		opts = append(opts, engine.WithExcludedItems(store.Collected()))
	}

	eng, err := engine.NewEngine(chapter, opts...)
	if err != nil {
		return err
	}

	// keep log lines off the alternate screen
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(os.Stderr)

	return tui.Run(eng, tui.WithProgress(store))
}

// runValidate prints a lint report for every chapter and fails if any is invalid
func runValidate(ctx context.Context, cmd *cli.Command) error {
	results, err := validate.Dir(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	for _, r := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), r.File)
		if r.Valid {
			fmt.Fprintln(w, "✅ VALID")
		} else {
			fmt.Fprintln(w, "❌ INVALID")
		}
		for _, e := range r.Errors {
			fmt.Fprintln(w, "  ❌ "+e)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintln(w, "  ⚠️  "+warn)
		}
		for _, info := range r.Info {
			fmt.Fprintln(w, "  "+info)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if !validate.AllValid(results) {
		return errors.New("some chapters have errors")
	}
	fmt.Fprintln(w, "✅ All chapters are valid!")
	return nil
}
