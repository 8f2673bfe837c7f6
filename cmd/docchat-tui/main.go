// ABOUTME: Entry point for the docchat terminal client.
// ABOUTME: Wires config, auth, API client, session manager, and the REPL.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/sablelabs/docchat/internal/api"
	"github.com/sablelabs/docchat/internal/auth"
	"github.com/sablelabs/docchat/internal/config"
	"github.com/sablelabs/docchat/internal/dedupe"
	"github.com/sablelabs/docchat/internal/render"
	"github.com/sablelabs/docchat/internal/session"
	"github.com/sablelabs/docchat/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

// dedupeWindow is how long a repeated identical send is treated as an
// accidental duplicate.
const dedupeWindow = 10 * time.Second

func main() {
	serverFlag := flag.String("server", "", "Backend server URL (overrides config)")
	configFlag := flag.String("config", "", "Path to config file")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("docchat-tui %s\n", version)
		return
	}

	// A .env in the working directory is a convenience for development;
	// missing is the normal case
	_ = godotenv.Load()

	if err := run(*serverFlag, *configFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(serverURL, configPath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	tokens, err := auth.NewTokenStore(logger)
	if err != nil {
		return fmt.Errorf("initializing token store: %w", err)
	}

	client := api.New(cfg.Server.URL, api.TokenFunc(func() string {
		token, err := tokens.Token()
		if err != nil {
			return ""
		}
		return token
	}), logger)

	manager := session.New(client, logger)
	defer manager.Close()

	manager.SetSimulation(cfg.Streaming.Simulate, cfg.Streaming.Batch, cfg.Streaming.Tick)

	dd := dedupe.New(dedupeWindow, 256)
	defer dd.Close()
	manager.SetDedupe(dd)

	if cfg.Cache.Enabled {
		cache, err := store.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			// The client works without the cache; log and continue
			logger.Warn("local cache unavailable", "error", err)
		} else {
			defer cache.Close()
			manager.SetHistoryCache(cache)
		}
	}

	// A 401 from any call invalidates the whole session
	client.OnUnauthorized = func() {
		if err := tokens.Clear(); err != nil {
			logger.Error("failed to clear token", "error", err)
		}
		manager.Reset()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("docchat-tui %s connected to %s\n", version, cfg.Server.URL)
	if token, err := tokens.Token(); err == nil {
		if auth.Expired(token, time.Now()) {
			fmt.Println("Auth: stored token is expired, /login to renew")
		} else {
			fmt.Println("Auth: token configured")
		}
	} else {
		fmt.Println("Auth: none (/login or /register to authenticate)")
	}
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	repl := &repl{
		manager:  manager,
		client:   client,
		tokens:   tokens,
		renderer: render.NewRenderer(),
		logger:   logger,
	}
	if err := repl.run(ctx); err != nil {
		return err
	}

	fmt.Println("\nGoodbye!")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = newColorHandler(os.Stderr, level)
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
// Logs go to stderr so they never interleave with conversation output.
// Group names qualify attribute keys the way slog.TextHandler does
// (group.key=value).
type colorHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Level
	attrs  []slog.Attr // keys already qualified by the groups open at WithAttrs time
	prefix string      // dotted group path for record-level attrs
}

func newColorHandler(out io.Writer, level slog.Level) *colorHandler {
	return &colorHandler{mu: &sync.Mutex{}, out: out, level: level}
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&buf, a.Key, a.Value)
	}

	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, h.prefix+a.Key, a.Value)
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(h.out, buf.String())
	return nil
}

func writeAttr(buf *strings.Builder, key string, v slog.Value) {
	buf.WriteString(color.HiBlackString(" " + key + "="))
	buf.WriteString(v.String())
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		newAttrs = append(newAttrs, a)
	}
	return &colorHandler{
		mu:     h.mu,
		out:    h.out,
		level:  h.level,
		attrs:  newAttrs,
		prefix: h.prefix,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &colorHandler{
		mu:     h.mu,
		out:    h.out,
		level:  h.level,
		attrs:  h.attrs,
		prefix: h.prefix + name + ".",
	}
}
