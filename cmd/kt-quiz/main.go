package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/santhoshgo28/kt-quiz/internal/bank"
	"github.com/santhoshgo28/kt-quiz/internal/handler"
	appI18n "github.com/santhoshgo28/kt-quiz/internal/i18n"
	"github.com/santhoshgo28/kt-quiz/internal/ledger"
	"github.com/santhoshgo28/kt-quiz/internal/model"
	"github.com/santhoshgo28/kt-quiz/internal/quiz"
	"github.com/santhoshgo28/kt-quiz/internal/roster"
	"github.com/santhoshgo28/kt-quiz/internal/session"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kt-quiz",
		Short: "Employee knowledge-transfer quiz server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), resultsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `kt-quiz --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("bank", "b", "questions.csv", "Path to the question bank CSV")
	f.String("allowlist", "participants.yaml", "Path to the participant allow-list YAML")
	f.String("results", "results.csv", "Results CSV path (used when --db is empty)")
	f.String("db", "", "SQLite results database path (selects the sqlite backend)")
	f.IntP("num-questions", "n", 0, "Number of questions per session (0 = all)")
	f.Bool("shuffle", true, "Randomize question order per session")
	f.StringP("lang", "l", "en", "Message language (en, ru)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Admin password (or set KTQUIZ_ADMIN_PASSWORD; empty disables admin routes)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the results ledger as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("results", "results.csv", "Results CSV path (used when --db is empty)")
	f.String("db", "", "SQLite results database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func resultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Print one participant's past attempts",
		RunE:  runResults,
	}
	f := cmd.Flags()
	f.String("results", "results.csv", "Results CSV path (used when --db is empty)")
	f.String("db", "", "SQLite results database path")
	f.String("name", "", "Participant name (required)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("name")

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

	v.SetEnvPrefix("KTQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("kt-quiz")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/kt-quiz")
	v.AddConfigPath("/etc/kt-quiz")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// openLedger picks the backend: sqlite when --db is set, CSV otherwise.
func openLedger(v *viper.Viper) (ledger.Ledger, string, error) {
	if dbPath := v.GetString("db"); dbPath != "" {
		l, err := ledger.OpenSQLite(dbPath)
		if err != nil {
			return nil, "", fmt.Errorf("open results database: %w", err)
		}
		return l, "sqlite:" + dbPath, nil
	}
	path := v.GetString("results")
	return ledger.NewCSV(path), "csv:" + path, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	allow, err := roster.Load(v.GetString("allowlist"))
	if err != nil {
		return fmt.Errorf("load allow-list: %w", err)
	}

	led, ledgerDesc, err := openLedger(v)
	if err != nil {
		return err
	}
	defer led.Close()

	// Verify the bank up front so a misconfigured path fails at startup,
	// not at the first login. Sessions still reload it on every start.
	bankPath := v.GetString("bank")
	questions, skipped, err := bank.Load(bankPath)
	if err != nil {
		return fmt.Errorf("load question bank: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cfg := model.QuizConfig{
		NumQuestions:  v.GetInt("num-questions"),
		Shuffle:       v.GetBool("shuffle"),
		SecureCookies: v.GetBool("secure-cookies"),
	}

	loadBank := func() ([]model.Question, error) {
		qs, _, err := bank.Load(bankPath)
		return qs, err
	}
	ctrl := quiz.New(loadBank, allow, session.NewMemoryStore(), led, cfg)

	h, err := handler.New(ctrl, led, allow, cfg, v.GetString("admin-password"))
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"bank", bankPath,
		"questions", len(questions),
		"rows_skipped", skipped,
		"participants", allow.Len(),
		"ledger", ledgerDesc,
		"num_questions", cfg.NumQuestions,
		"shuffle", cfg.Shuffle,
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	led, _, err := openLedger(v)
	if err != nil {
		return err
	}
	defer led.Close()

	records, err := led.All()
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}

	export := model.LedgerExport{
		GeneratedAt: time.Now(),
		Count:       len(records),
		Records:     records,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
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
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func runResults(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	led, _, err := openLedger(v)
	if err != nil {
		return err
	}
	defer led.Close()

	name := v.GetString("name")
	records, err := led.QueryByParticipant(name)
	if err != nil {
		return fmt.Errorf("query ledger: %w", err)
	}

	if len(records) == 0 {
		fmt.Printf("No attempts recorded for %s.\n", name)
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %-10s  correct %d/%d  answered %d  skipped %d\n",
			rec.Timestamp.Format(model.TimestampLayout), rec.Status,
			rec.Correct, rec.Total, rec.Answered, rec.Skipped)
	}
	return nil
}
