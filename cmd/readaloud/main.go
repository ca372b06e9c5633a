// Package main provides the CLI entrypoint for readaloud.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/readaloud/internal/config"
	"github.com/verte-zerg/readaloud/internal/corpus"
	"github.com/verte-zerg/readaloud/internal/logging"
	"github.com/verte-zerg/readaloud/internal/match"
	"github.com/verte-zerg/readaloud/internal/model"
	"github.com/verte-zerg/readaloud/internal/session"
	"github.com/verte-zerg/readaloud/internal/speech"
	"github.com/verte-zerg/readaloud/internal/store"
	"github.com/verte-zerg/readaloud/internal/tui"
	"github.com/verte-zerg/readaloud/internal/wordlist"
)

const (
	defaultLevel       = string(model.Expert)
	defaultSource      = sourceKeyboard
	defaultAdvanceOn   = string(model.AdvanceOnAny)
	defaultLang        = "en"
	defaultWords       = 12
	defaultSentenceLen = 6
	defaultLogLevel    = "info"
	defaultLogFormat   = "console"

	sourceKeyboard = "keyboard"
	sourceNATS     = "nats"
)

var (
	practiceLevel       string
	practiceIndex       int
	practiceSource      string
	practiceAdvanceOn   string
	practiceMaxRestarts int
	practiceNATSURL     string
	practiceNATSSubject string
	practiceText        string
	practiceLang        string
	practiceWordList    string
	practiceWords       int
	practiceLogLevel    string
	practiceLogFormat   string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "readaloud",
		Short:         "TUI reading-aloud practice",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceLevel, "level", defaultLevel, "difficulty level (beginner, learning, expert)")
	rootCmd.Flags().IntVar(&practiceIndex, "index", 0, "text index within the level (wraps)")
	rootCmd.Flags().StringVar(&practiceSource, "source", defaultSource, "transcript source (keyboard, nats)")
	rootCmd.Flags().StringVar(&practiceAdvanceOn, "advance-on", defaultAdvanceOn, "which transcript updates move the cursor (any, final)")
	rootCmd.Flags().IntVar(&practiceMaxRestarts, "max-restarts", session.DefaultMaxRestarts, "capture restarts without a transcript before giving up (negative disables)")
	rootCmd.Flags().StringVar(&practiceNATSURL, "nats-url", "", "NATS server URL (default: nats://127.0.0.1:4222)")
	rootCmd.Flags().StringVar(&practiceNATSSubject, "nats-subject", speech.DefaultNATSSubject, "NATS subject carrying transcript updates")
	rootCmd.Flags().StringVar(&practiceText, "text", "", "practice this text instead of a preset")
	rootCmd.Flags().StringVar(&practiceLang, "lang", defaultLang, "word list language code")
	rootCmd.Flags().StringVar(&practiceWordList, "wordlist", "", "word list path or language code for a generated drill")
	rootCmd.Flags().IntVar(&practiceWords, "words", defaultWords, "words per generated drill")
	rootCmd.Flags().StringVar(&practiceLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&practiceLogFormat, "log-format", defaultLogFormat, "log format (console, json)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLevelsCmd())
	rootCmd.AddCommand(newTextsCmd())
	rootCmd.AddCommand(newWordlistsCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFileConfig(cmd, fileCfg)

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("readaloud needs an interactive terminal")
	}

	logPath := config.DefaultLogPath()
	if fileCfg.Log.Path != nil && strings.TrimSpace(*fileCfg.Log.Path) != "" {
		logPath = *fileCfg.Log.Path
	}
	logRuntime, err := logging.New(logging.Config{Level: practiceLogLevel, Format: practiceLogFormat, Path: logPath})
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer func() {
		if cerr := logRuntime.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()
	logger := logRuntime.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	texts, err := loadCorpus(ctx, fileCfg)
	if err != nil {
		return err
	}

	custom, err := resolvePracticeText(cfg)
	if err != nil {
		return err
	}

	var (
		capture speech.Capture
		typist  tui.Typist
	)
	switch cfg.Source {
	case sourceNATS:
		natsCapture := speech.NewNATSCapture(speech.NATSConfig{URL: cfg.NATSURL, Subject: cfg.NATSSubject}, logger)
		defer natsCapture.Close()
		capture = natsCapture
	default:
		keyboard := speech.NewKeyboardCapture()
		capture = keyboard
		typist = keyboard
	}

	sess, err := session.New(texts, capture, session.Options{
		Level:       cfg.Level,
		Index:       cfg.Index,
		AdvanceOn:   cfg.AdvanceOn,
		MaxRestarts: cfg.MaxRestarts,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("failed to stop session", zap.Error(cerr))
		}
	}()
	if custom != "" {
		if err := sess.SetText(custom); err != nil {
			return err
		}
	}

	logger.Info("practice started",
		zap.String("level", string(cfg.Level)),
		zap.Int("index", cfg.Index),
		zap.String("source", cfg.Source),
		zap.String("advance_on", string(cfg.AdvanceOn)),
	)

	watcher := tui.NewWatcher()
	sess.OnChange(watcher.Notify)
	ui := tui.NewModel(ctx, sess, typist, watcher, logger)
	program := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func applyFileConfig(cmd *cobra.Command, fileCfg config.FileConfig) {
	applyStringConfig(cmd, "level", &practiceLevel, fileCfg.Practice.Level)
	applyIntConfig(cmd, "index", &practiceIndex, fileCfg.Practice.Index)
	applyStringConfig(cmd, "source", &practiceSource, fileCfg.Practice.Source)
	applyStringConfig(cmd, "advance-on", &practiceAdvanceOn, fileCfg.Practice.AdvanceOn)
	applyIntConfig(cmd, "max-restarts", &practiceMaxRestarts, fileCfg.Practice.MaxRestarts)
	applyStringConfig(cmd, "lang", &practiceLang, fileCfg.Practice.Lang)
	applyStringConfig(cmd, "wordlist", &practiceWordList, fileCfg.Practice.WordList)
	applyIntConfig(cmd, "words", &practiceWords, fileCfg.Practice.Words)
	applyStringConfig(cmd, "nats-url", &practiceNATSURL, fileCfg.NATS.URL)
	applyStringConfig(cmd, "nats-subject", &practiceNATSSubject, fileCfg.NATS.Subject)
	applyStringConfig(cmd, "log-level", &practiceLogLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-format", &practiceLogFormat, fileCfg.Log.Format)
}

func buildConfig() (model.Config, error) {
	level, err := model.ParseDifficulty(practiceLevel)
	if err != nil {
		return model.Config{}, fmt.Errorf("--level: %w", err)
	}
	advanceOn, err := model.ParseAdvanceOn(practiceAdvanceOn)
	if err != nil {
		return model.Config{}, fmt.Errorf("--advance-on: %w", err)
	}
	cfg := model.Config{
		Level:       level,
		Index:       practiceIndex,
		Source:      strings.ToLower(strings.TrimSpace(practiceSource)),
		AdvanceOn:   advanceOn,
		Text:        strings.TrimSpace(practiceText),
		Lang:        strings.ToLower(strings.TrimSpace(practiceLang)),
		WordList:    strings.TrimSpace(practiceWordList),
		Words:       practiceWords,
		MaxRestarts: practiceMaxRestarts,
		NATSURL:     strings.TrimSpace(practiceNATSURL),
		NATSSubject: strings.TrimSpace(practiceNATSSubject),
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.Config) error {
	switch cfg.Source {
	case sourceKeyboard, sourceNATS:
	default:
		return fmt.Errorf("--source must be one of: %s, %s", sourceKeyboard, sourceNATS)
	}
	if cfg.Words <= 0 {
		return fmt.Errorf("--words must be > 0")
	}
	if cfg.Source == sourceNATS && cfg.NATSSubject == "" {
		return fmt.Errorf("--nats-subject must not be empty")
	}
	if cfg.Text != "" && cfg.WordList != "" {
		return fmt.Errorf("--text and --wordlist are mutually exclusive")
	}
	if cfg.Lang == "" {
		return fmt.Errorf("--lang must not be empty")
	}
	return nil
}

// loadCorpus merges the presets with config file texts and the library.
func loadCorpus(ctx context.Context, fileCfg config.FileConfig) (*corpus.Corpus, error) {
	extra, err := fileCfg.ExtraTexts()
	if err != nil {
		return nil, err
	}
	texts := corpus.New(extra)

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	library, err := st.TextsByLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load text library: %w", err)
	}
	for _, level := range model.Difficulties() {
		texts.Add(level, library[level]...)
	}
	return texts, nil
}

// resolvePracticeText returns the custom text to practice, if any.
func resolvePracticeText(cfg model.Config) (string, error) {
	if cfg.Text != "" {
		return cfg.Text, nil
	}
	if cfg.WordList == "" {
		return "", nil
	}
	path := resolveWordListPath(cfg.WordList)
	words, err := wordlist.LoadWords(path, wordlist.FilterForLang(cfg.Lang))
	if err != nil {
		return "", wordListLoadError(cfg.WordList, path, err)
	}
	return corpus.NewGenerator().Generate(words, cfg.Words, defaultSentenceLen), nil
}

// resolveWordListPath treats a bare name as a language code under the word
// list directory.
func resolveWordListPath(value string) string {
	if strings.ContainsRune(value, filepath.Separator) || strings.HasSuffix(value, ".txt") {
		return value
	}
	return config.DefaultWordListPath(strings.ToLower(value))
}

func wordListLoadError(value, path string, err error) error {
	lines := []string{
		fmt.Sprintf("failed to load word list: %v", err),
		fmt.Sprintf("expected word list at: %s", path),
	}
	if path != value {
		lines = append(lines,
			fmt.Sprintf("language %q not found", value),
			"Run: readaloud wordlists",
			fmt.Sprintf("Place one word per line in %s", config.DefaultWordListDir()),
		)
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newLevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List difficulty levels and text counts",
		Args:  cobra.NoArgs,
		RunE:  runLevelsCmd,
	}
}

func runLevelsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	texts, err := loadCorpus(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	return writeLevels(cmd, texts)
}

func writeLevels(cmd *cobra.Command, texts *corpus.Corpus) error {
	for _, level := range texts.Levels() {
		line := fmt.Sprintf("%-9s %3d texts  %s", level, texts.Count(level), match.PolicyFor(level).Name())
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newWordlistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wordlists",
		Short: "List installed word list languages",
		Args:  cobra.NoArgs,
		RunE:  runWordlistsCmd,
	}
}

func runWordlistsCmd(cmd *cobra.Command, _ []string) error {
	wordlistDir := config.DefaultWordListDir()
	entries, err := os.ReadDir(wordlistDir)
	if err != nil {
		if os.IsNotExist(err) {
			logErrf("No word lists found. Place one word per line in %s/<lang>.txt\n", wordlistDir)
			return fmt.Errorf("wordlist directory does not exist")
		}
		return fmt.Errorf("failed to read wordlist directory: %w", err)
	}
	langs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".txt") {
			continue
		}
		langs = append(langs, strings.TrimSuffix(name, ".txt"))
	}
	if len(langs) == 0 {
		logErrf("No word lists found. Place one word per line in %s/<lang>.txt\n", wordlistDir)
		return fmt.Errorf("no wordlists found")
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), lang); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# readaloud configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# level = %q           # beginner, learning or expert
# index = 0                 # Text index within the level (wraps)
# source = %q         # keyboard or nats
# advance-on = %q          # any or final
# max-restarts = %d          # Capture restarts without a transcript
# lang = %q                # Word list language
# wordlist = ""             # Word list path or language code for drills
# words = %d               # Words per generated drill

[nats]
# url = "nats://127.0.0.1:4222"
# subject = %q

[log]
# level = %q
# format = %q
# path = ""

# Extra practice texts per level:
# [corpus.expert]
# texts = ["A journey of a thousand miles begins with a single step."]
`,
		defaultLevel,
		defaultSource,
		defaultAdvanceOn,
		session.DefaultMaxRestarts,
		defaultLang,
		defaultWords,
		speech.DefaultNATSSubject,
		defaultLogLevel,
		defaultLogFormat,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
