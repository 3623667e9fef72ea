// itipcheck analyzes an iTIP scheduling message against a set of stored
// calendar files and prints the resulting recommendation without applying
// anything.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"libitip/config"
	"libitip/describe"
	"libitip/internal/icalconv"
	"libitip/itip"
	"libitip/storage/memory"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "itipcheck",
		Usage: "Analyze iTIP scheduling messages against stored calendar data.",
		Commands: []*cli.Command{
			analyzeCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze one scheduling message (.ics with a METHOD).",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Required: true, Usage: "Path to the scheduling message (.ics)."},
			&cli.StringFlag{Name: "calendar", Usage: "Directory of stored .ics files forming the user's calendar."},
			&cli.StringFlag{Name: "user", Usage: "Acting calendar user's e-mail address.", EnvVars: []string{"ITIP_USER"}},
			&cli.IntFlag{Name: "owner", Value: 1, Usage: "Numeric id of the targeted calendar user."},
			&cli.StringFlag{Name: "config", Usage: "Path to the YAML configuration."},
			&cli.StringFlag{Name: "format", Usage: "Render format (text or html); overrides the config."},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address while running."},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loader, err := config.NewLoader(path)
		if err != nil {
			return err
		}
		cfg = loader.Config()
	}
	logger := setupLogger(cfg.Log.Level)

	if addr := c.String("metrics-addr"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	store := memory.New()
	owner := c.Int("owner")
	store.SetDefaultFolder(owner, "calendar")
	if dir := c.String("calendar"); dir != "" {
		if err := loadCalendarDir(store, dir); err != nil {
			return err
		}
	}

	session := &itip.Session{
		UserID:          owner,
		Address:         c.String("user"),
		DefaultFolderID: "calendar",
	}

	format := itip.RenderFormat(cfg.Scheduling.RenderFormat)
	if f := c.String("format"); f != "" {
		format = itip.RenderFormat(f)
	}

	env := itip.Environment{
		Lookup:           store,
		TimeZones:        store,
		Permissions:      store,
		Descriptions:     describe.NewService(),
		LegacyScheduling: cfg.Scheduling.LegacyScheduling,
		Logger:           logger,
	}
	if cfg.Scheduling.ConflictChecks {
		env.Conflicts = store
	}

	msg, err := parseMessageFile(c.String("message"), owner)
	if err != nil {
		return err
	}

	analysis, err := itip.NewDispatcher(env).Analyze(c.Context, msg, map[string]string{}, format, session)
	if err != nil {
		return err
	}
	if analysis == nil {
		fmt.Println("message skipped: no analyzer for method", msg.Method)
		return nil
	}
	printAnalysis(analysis)
	return nil
}

func loadCalendarDir(store *memory.Store, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading calendar directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ics") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		events, err := icalconv.ParseEvents(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		for _, event := range events {
			store.AddEvent(event)
		}
	}
	return nil
}

func parseMessageFile(path string, owner int) (*itip.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return icalconv.ParseMessage(f, owner)
}

func printAnalysis(analysis *itip.Analysis) {
	fmt.Printf("uid: %s\n", analysis.UID)
	for _, change := range analysis.Changes {
		fmt.Printf("change: %s", change.Type)
		if change.Exception {
			fmt.Print(" (occurrence)")
		}
		fmt.Println()
		if change.Introduction != "" {
			fmt.Printf("  %s\n", change.Introduction)
		}
		for _, line := range change.Descriptions {
			fmt.Printf("  - %s\n", line)
		}
		for _, conflict := range change.Conflicts {
			fmt.Printf("  conflicts with: %s\n", conflict.Event.Summary)
		}
	}
	for _, annotation := range analysis.Annotations {
		fmt.Printf("note: %s\n", annotation.Kind)
	}
	for _, warning := range analysis.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	if len(analysis.Actions) > 0 {
		actions := make([]string, len(analysis.Actions))
		for i, action := range analysis.Actions {
			actions[i] = string(action)
		}
		fmt.Printf("actions: %s\n", strings.Join(actions, ", "))
	}
}

func setupLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}
