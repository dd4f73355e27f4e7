// Command klassik starts the Klassik tile adventure server.
//
// It supports three commands:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" – plays one session in the terminal, one key per line
//
// Flags (each with an environment variable) control host/port, config
// directory, save backend, logging and optional ngrok tunneling for easy
// external access during development.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
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

	"github.com/wricardo/klassik/api"
	"github.com/wricardo/klassik/game/config"
	"github.com/wricardo/klassik/game/engine"
	"github.com/wricardo/klassik/game/save"
	"github.com/wricardo/klassik/game/service"
	"github.com/wricardo/klassik/game/session"
	"github.com/wricardo/klassik/logger"
	"github.com/wricardo/klassik/transport/mcp"
	"github.com/wricardo/klassik/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Klassik Server"
)

var log = logger.Component("main")

// settings are the process options shared by every command
type settings struct {
	ConfigDir     string
	SaveBackend   string
	SaveDSN       string
	Pacing        time.Duration
	SessionMaxAge time.Duration
}

// services is everything a command needs to run games
type services struct {
	configs  *config.Manager
	store    save.Store
	sessions *session.Manager
	game     service.GameService
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("Exiting")
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:           "klassik",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing catalog.json and maps/", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "save-backend", Value: "file", Usage: "Save store: memory, file, bolt or postgres", Sources: cli.EnvVars("SAVE_BACKEND")},
			&cli.StringFlag{Name: "save-dsn", Usage: "Save store location: directory, bolt file or postgres DSN", Sources: cli.EnvVars("SAVE_DSN")},
			&cli.DurationFlag{Name: "pacing", Value: 250 * time.Millisecond, Usage: "Pause between monster actions", Sources: cli.EnvVars("MONSTER_PACING")},
			&cli.DurationFlag{Name: "session-max-age", Value: 24 * time.Hour, Usage: "Remove sessions idle for longer than this", Sources: cli.EnvVars("SESSION_MAX_AGE")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json", Sources: cli.EnvVars("LOG_FORMAT")},
			&cli.StringFlag{Name: "log-file", Usage: "Also write logs to this rotating file", Sources: cli.EnvVars("LOG_FILE")},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logger.Init(logger.Options{
				Level:      cmd.String("log-level"),
				Format:     cmd.String("log-format"),
				File:       cmd.String("log-file"),
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 7,
			})
			return ctx, nil
		},
		Commands: []*cli.Command{
			serverCommand(),
			stdioMCPCommand(),
			playCommand(),
		},
	}
}

func settingsFrom(cmd *cli.Command) settings {
	return settings{
		ConfigDir:     cmd.String("config-dir"),
		SaveBackend:   cmd.String("save-backend"),
		SaveDSN:       cmd.String("save-dsn"),
		Pacing:        cmd.Duration("pacing"),
		SessionMaxAge: cmd.Duration("session-max-age"),
	}
}

// defaultDSN picks a location for file based stores when none is given
func defaultDSN(backend, dsn string) string {
	if dsn != "" {
		return dsn
	}
	switch backend {
	case "file":
		return "saves"
	case "bolt":
		return "klassik.db"
	}
	return dsn
}

// initializeServices wires config, save store, session manager and the game
// service. Callers own the returned services and must Close them.
func initializeServices(ctx context.Context, s settings) (*services, error) {
	configManager, err := config.NewManager(s.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	store, err := save.Open(ctx, s.SaveBackend, defaultDSN(s.SaveBackend, s.SaveDSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open save store: %w", err)
	}

	sessionManager := session.NewManager(configManager.Units(), store, s.Pacing)

	log.WithFields(logrus.Fields{
		"config_dir":   s.ConfigDir,
		"save_backend": s.SaveBackend,
		"default_map":  configManager.DefaultMapID(),
	}).Info("Services initialized")

	return &services{
		configs:  configManager,
		store:    store,
		sessions: sessionManager,
		game:     service.NewGameService(sessionManager, configManager),
	}, nil
}

// Close releases the save store. Games are only persisted by explicit saves.
func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		log.WithError(err).Warn("Failed to close save store")
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"http"},
		Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, err := initializeServices(ctx, settingsFrom(cmd))
			if err != nil {
				return err
			}
			return runHTTPServer(ctx, cmd, svc)
		},
	}
}

// mcpHandler serves single JSON-RPC messages over HTTP POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(parent context.Context, cmd *cli.Command, svc *services) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hub := websocket.NewHub(svc.game)
	go hub.Run(ctx)

	go svc.sessions.RunCleanup(ctx, time.Hour, cmd.Duration("session-max-age"))

	apiServer := api.NewServer(svc.game, hub)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		// bulk keys wait out every monster phase
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.WithFields(logrus.Fields{
			"rest":      fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Infof("HTTP server listening on %s", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter)
		}()
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}
	wg.Wait()
	svc.Close()
	log.Info("Server stopped")

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		log.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.WithField("domain", domain).Info("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.WithFields(logrus.Fields{
		"rest":      ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?session=<session_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Infof("🚀 Ngrok tunnel established: %s", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Warn("Ngrok server error")
	}
	log.Info("Ngrok tunnel closed")
}

func stdioMCPCommand() *cli.Command {
	return &cli.Command{
		Name:    "stdio-mcp",
		Aliases: []string{"mcp-stdio", "mcp"},
		Usage:   "Run MCP stdio server, reusing a running HTTP server or starting an internal one",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runStdioMCP(ctx, cmd)
		},
	}
}

// runStdioMCP runs an MCP stdio server.
// It tries to reuse an external API at host:port; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	externalURL := fmt.Sprintf("http://%s:%d", cmd.String("host"), cmd.Int("port"))
	log.Infof("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Infof("External API server found at %s, using it for MCP", externalURL)
	} else {
		log.Info("No external API server found, starting internal HTTP server")

		svc, err := initializeServices(ctx, settingsFrom(cmd))
		if err != nil {
			return err
		}
		defer svc.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub(svc.game)
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(svc.game, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		log.Infof("Internal HTTP server on %s for MCP stdio", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a session in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "map", Usage: "Map to play (defaults to the configured default map)"},
			&cli.StringFlag{Name: "slot", Usage: "Save slot to continue from"},
			&cli.StringFlag{Name: "name", Value: "Avatar", Usage: "Character name"},
			&cli.StringFlag{Name: "sex", Value: string(engine.Male), Usage: "male or female"},
			&cli.IntFlag{Name: "strength", Value: 15},
			&cli.IntFlag{Name: "agility", Value: 15},
			&cli.IntFlag{Name: "intelligence", Value: 10},
			&cli.IntFlag{Name: "luck", Value: 10},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s := settingsFrom(cmd)
			s.Pacing = 0

			svc, err := initializeServices(ctx, s)
			if err != nil {
				return err
			}
			defer svc.Close()

			info, err := svc.game.CreateSession(ctx, service.CreateSessionRequest{
				MapID:    cmd.String("map"),
				LoadSlot: cmd.String("slot"),
				Character: engine.Character{
					Name:         cmd.String("name"),
					Sex:          engine.Sex(cmd.String("sex")),
					Strength:     cmd.Int("strength"),
					Agility:      cmd.Int("agility"),
					Intelligence: cmd.Int("intelligence"),
					Luck:         cmd.Int("luck"),
				},
			})
			if err != nil {
				return err
			}
			return playLoop(ctx, svc.game, info.ID, os.Stdin, os.Stdout)
		},
	}
}

// playKeys translates typed words into key names
var playKeys = map[string]string{
	"up": engine.KeyUp, "u": engine.KeyUp, "north": engine.KeyUp,
	"down": engine.KeyDown, "d": engine.KeyDown, "south": engine.KeyDown,
	"left": engine.KeyLeft, "west": engine.KeyLeft,
	"right": engine.KeyRight, "r": engine.KeyRight, "east": engine.KeyRight,
	"attack": engine.KeyAttack, "a": engine.KeyAttack,
	"board": engine.KeyBoard, "b": engine.KeyBoard,
	"wait": engine.KeyWait, "": engine.KeyWait,
	"save":  engine.KeySave,
	"load":  engine.KeyLoad,
	"debug": engine.KeyDebug,
}

// playLoop reads one command per line, presses the matching key and prints
// the new log lines and view. It returns on "quit" or end of input.
func playLoop(ctx context.Context, svc service.GameService, sessionID string, in io.Reader, out io.Writer) error {
	view, err := svc.GetView(ctx, sessionID)
	if err != nil {
		return err
	}
	printView(out, view)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "quit" || word == "q" {
			break
		}

		key, ok := playKeys[word]
		if !ok {
			fmt.Fprintln(out, "Keys: up down left right attack board wait save load debug quit")
			continue
		}

		resp, err := svc.PressKey(ctx, sessionID, key)
		if err != nil {
			return err
		}
		for _, line := range resp.Result.Lines {
			fmt.Fprintln(out, line)
		}
		printView(out, resp.Snapshot)
	}
	return scanner.Err()
}

func printView(out io.Writer, s *engine.Snapshot) {
	if s == nil {
		return
	}
	p := s.Player
	fmt.Fprintf(out, "\n%s  HP %d/%d  XP %d  Lv %d  %s  turn %d\n", p.Name, p.HP, p.MaxHP, p.XP, p.Level, p.Position, s.Turn)
	fmt.Fprint(out, s.Text())
}
