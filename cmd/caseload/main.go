package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/caseload/internal/handler"
	appI18n "github.com/pavelanni/caseload/internal/i18n"
	"github.com/pavelanni/caseload/internal/llm"
	"github.com/pavelanni/caseload/internal/llm/prompts"
	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/plan"
	"github.com/pavelanni/caseload/internal/store"
)

// tokenPurgeInterval is how often expired bearer tokens are purged.
const tokenPurgeInterval = time.Hour

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "caseload",
		Short: "Log IEP objective progress for a special-education caseload",
	}

	serve := serveCmd()
	root.AddCommand(serve, seedCmd(), exportCmd(), logCmd(), transcriptCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `caseload --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the caseload JSON API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "caseload.db", "SQLite database path")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty disables transcript analysis)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("llm-prompt", string(prompts.VariantStandard), "Transcript prompt variant (standard, strict)")
	f.StringP("lang", "l", "en", "Default language for messages (en, es)")
	f.String("admin-password", "", "Initial admin password (or set CASELOAD_ADMIN_PASSWORD)")
	addLogFlags(cmd)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a roster of students, subject areas, goals and objectives",
		RunE:  runSeed,
	}
	f := cmd.Flags()
	f.String("db", "caseload.db", "SQLite database path")
	f.StringP("file", "f", "", "Roster YAML or JSON file (required)")
	f.String("admin-password", "", "Create the admin user with this password if no users exist")
	addLogFlags(cmd)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export logged progress history as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "caseload.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("CASELOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("caseload")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/caseload")
	v.AddConfigPath("/etc/caseload")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// A nil interface keeps /transcript/analyze answering 503.
	var analyzer handler.Analyzer
	if llmURL := v.GetString("llm-url"); llmURL != "" {
		variant := strings.ToLower(strings.TrimSpace(v.GetString("llm-prompt")))
		if !prompts.IsValidVariant(variant) {
			slog.Warn("invalid llm-prompt, using standard", "variant", variant)
			variant = string(prompts.VariantStandard)
		}
		analyzer = llm.New(llmURL, v.GetString("llm-key"), v.GetString("llm-model"), prompts.Variant(variant))
		slog.Info("transcript analysis enabled", "url", llmURL, "model", v.GetString("llm-model"), "prompt", variant)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	handler.New(db, analyzer).Routes(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go purgeTokens(ctx, db)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	if info, err := db.GetSeedInfo(); err == nil && info.Source == "" {
		slog.Warn("roster is empty; run `caseload seed --file roster.yaml`")
	}
	slog.Info("starting server", "addr", addr, "db", v.GetString("db"), "lang", lang)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func purgeTokens(ctx context.Context, db *store.Store) {
	t := time.NewTicker(tokenPurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := db.PurgeExpiredTokens()
			if err != nil {
				slog.Error("failed to purge expired tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired tokens", "count", n)
			}
		}
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if pw := v.GetString("admin-password"); pw != "" {
		if err := seedAdmin(db, pw); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	path := v.GetString("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	hash := sha256sum(data)
	storedHash, err := db.GetImportedFileHash(path)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("roster file unchanged, skipping", "path", path)
		return nil
	}

	students, err := plan.ParseRoster(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	added, err := db.ImportRoster(students)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	if err := db.SetImportedFileHash(path, hash); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	if err := db.SetSeedInfo(model.SeedInfo{Source: path, SeededAt: time.Now(), Students: added}); err != nil {
		return fmt.Errorf("record seed info: %w", err)
	}
	slog.Info("imported roster", "path", path, "students", added, "skipped", len(students)-added)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportHistory()
	if err != nil {
		return fmt.Errorf("export history: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or CASELOAD_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
