// Package main provides the CLI entrypoint for lampstat.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/lampstat/internal/config"
	"github.com/verte-zerg/lampstat/internal/importer"
	"github.com/verte-zerg/lampstat/internal/lamp"
	"github.com/verte-zerg/lampstat/internal/logging"
	"github.com/verte-zerg/lampstat/internal/model"
	"github.com/verte-zerg/lampstat/internal/stats"
	"github.com/verte-zerg/lampstat/internal/statsui"
	"github.com/verte-zerg/lampstat/internal/store"
)

const (
	defaultLevel       = 12
	defaultDifficulty  = "SPA"
	defaultCurveWindow = 1
	defaultGoal        = "HARD"
)

var (
	masterDBPath string
	logDBPath    string
	logLevel     string
	logFormat    string

	ranksLevel int
	ranksPlain bool

	historySong   string
	historyDiff   string
	historyWindow int
	historyPlain  bool

	targetsLevel int
	targetsBelow string

	importReplace bool

	fileCfg config.FileConfig
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "lampstat",
		Short:             "Clear lamp statistics for rhythm game difficulty tables",
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: setupCmd,
		RunE:              runRanksCmd,
	}

	rootCmd.PersistentFlags().StringVar(&masterDBPath, "master-db", "", "catalog database path")
	rootCmd.PersistentFlags().StringVar(&logDBPath, "log-db", "", "play history database path (default: master database)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, logfmt, json)")
	addRanksFlags(rootCmd)

	rootCmd.AddCommand(newRanksCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newTargetsCmd())
	rootCmd.AddCommand(newLevelsCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func setupCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	fileCfg = cfg
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-format", &logFormat, fileCfg.Log.Format)
	l, err := logging.New(os.Stderr, logging.Options{Level: logLevel, Format: logFormat})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger = l
	logger.Debug("config loaded", "path", config.DefaultConfigPath())
	return nil
}

func addRanksFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&ranksLevel, "level", defaultLevel, "difficulty level to report")
	cmd.Flags().BoolVar(&ranksPlain, "plain", false, "print a plain table instead of the viewer")
}

func newRanksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ranks",
		Short: "Show the clear lamp distribution per rank",
		Args:  cobra.NoArgs,
		RunE:  runRanksCmd,
	}
	addRanksFlags(cmd)
	return cmd
}

func runRanksCmd(cmd *cobra.Command, _ []string) error {
	applyIntConfig(cmd, "level", &ranksLevel, fileCfg.Dashboard.Level)
	if ranksLevel < 1 {
		return fmt.Errorf("--level must be >= 1")
	}

	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	if ranksPlain {
		report, err := stats.BuildRankReport(cmd.Context(), stores.master, stores.log, ranksLevel)
		if err != nil {
			return err
		}
		return stats.RenderRankTable(cmd.OutOrStdout(), report)
	}

	q := model.HistoryQuery{Difficulty: defaultDifficulty}
	if fileCfg.Dashboard.Difficulty != nil {
		q.Difficulty = strings.ToUpper(*fileCfg.Dashboard.Difficulty)
	}
	window := defaultCurveWindow
	if fileCfg.Dashboard.CurveWindow != nil {
		window = *fileCfg.Dashboard.CurveWindow
	}
	return runViewer(statsui.NewModel(stores.feeds(), viewerConfig(ranksLevel, q, window)))
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the play history of one chart",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySong, "song", "", "song name (substring match)")
	cmd.Flags().StringVar(&historyDiff, "diff", defaultDifficulty, "difficulty type ("+strings.Join(model.DifficultyTypes, ", ")+")")
	cmd.Flags().IntVar(&historyWindow, "window", defaultCurveWindow, "moving average window for the chart")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print plain output instead of the viewer")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	applyStringConfig(cmd, "diff", &historyDiff, fileCfg.Dashboard.Difficulty)
	applyIntConfig(cmd, "window", &historyWindow, fileCfg.Dashboard.CurveWindow)

	q := model.HistoryQuery{
		Song:       strings.TrimSpace(historySong),
		Difficulty: strings.ToUpper(strings.TrimSpace(historyDiff)),
	}
	if err := validateHistoryQuery(q, historyWindow); err != nil {
		return err
	}

	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	if historyPlain {
		report, err := stats.BuildHistoryReport(cmd.Context(), stores.log, q)
		if err != nil {
			return err
		}
		return stats.RenderHistory(cmd.OutOrStdout(), report, stats.HistoryOptions{Window: historyWindow})
	}

	level := defaultLevel
	if fileCfg.Dashboard.Level != nil {
		level = *fileCfg.Dashboard.Level
	}
	m := statsui.NewModel(stores.feeds(), viewerConfig(level, q, historyWindow))
	m.ShowHistory()
	return runViewer(m)
}

func newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List songs below a target lamp",
		Args:  cobra.NoArgs,
		RunE:  runTargetsCmd,
	}
	cmd.Flags().IntVar(&targetsLevel, "level", defaultLevel, "difficulty level")
	cmd.Flags().StringVar(&targetsBelow, "below", defaultGoal, "target lamp (e.g. FC, EXH, HARD, CLEAR, EASY)")
	return cmd
}

func runTargetsCmd(cmd *cobra.Command, _ []string) error {
	applyIntConfig(cmd, "level", &targetsLevel, fileCfg.Dashboard.Level)
	if targetsLevel < 1 {
		return fmt.Errorf("--level must be >= 1")
	}
	goal, err := parseGoal(targetsBelow)
	if err != nil {
		return err
	}

	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	report, err := stats.BuildRankReport(cmd.Context(), stores.master, stores.log, targetsLevel)
	if err != nil {
		return err
	}
	return stats.RenderTargets(cmd.OutOrStdout(), goal, report.Targets(goal))
}

func newLevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List levels present in the catalog",
		Args:  cobra.NoArgs,
		RunE:  runLevelsCmd,
	}
}

func runLevelsCmd(cmd *cobra.Command, _ []string) error {
	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	levels, err := stores.master.ListLevels(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list levels: %w", err)
	}
	if len(levels) == 0 {
		logErrln("No levels found. Import a catalog with: lampstat import catalog <file>")
		return nil
	}
	for _, level := range levels {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), level); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import CSV data",
	}
	historyCmd := &cobra.Command{
		Use:   "history FILE",
		Short: "Import play history into the log database",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportHistoryCmd,
	}
	historyCmd.Flags().BoolVar(&importReplace, "replace", false, "replace the stored play history")
	cmd.AddCommand(historyCmd)
	catalogCmd := &cobra.Command{
		Use:   "catalog FILE",
		Short: "Import a difficulty table into the master database",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCatalogCmd,
	}
	catalogCmd.Flags().BoolVar(&importReplace, "replace", false, "replace existing entries of the imported levels")
	cmd.AddCommand(catalogCmd)
	return cmd
}

func runImportHistoryCmd(cmd *cobra.Command, args []string) error {
	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	n, err := importer.New(stores.log, logger).History(cmd.Context(), args[0], importReplace)
	if err != nil {
		return fmt.Errorf("failed to import history: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d plays from %s\n", n, args[0])
	return err
}

func runImportCatalogCmd(cmd *cobra.Command, args []string) error {
	stores, err := openStores()
	if err != nil {
		return err
	}
	defer stores.Close()

	n, err := importer.New(stores.master, logger).Catalog(cmd.Context(), args[0], importReplace)
	if err != nil {
		return fmt.Errorf("failed to import catalog: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d catalog entries from %s\n", n, args[0])
	return err
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		// The editor must open even when the current file does not parse.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE:              runConfigCmd,
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

// storePair holds the catalog and play history databases. Both point at
// the same store when the paths match.
type storePair struct {
	master *store.Store
	log    *store.Store
}

func openStores() (*storePair, error) {
	masterPath, logPath := resolveDBPaths(masterDBPath, logDBPath, fileCfg)
	master, err := store.Open(masterPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open master db %s: %w", masterPath, err)
	}
	logger.Debug("opened database", "role", "master", "path", masterPath)
	if logPath == masterPath {
		return &storePair{master: master, log: master}, nil
	}
	logStore, err := store.Open(logPath)
	if err != nil {
		closeStore(master, masterPath)
		return nil, fmt.Errorf("failed to open log db %s: %w", logPath, err)
	}
	logger.Debug("opened database", "role", "log", "path", logPath)
	return &storePair{master: master, log: logStore}, nil
}

func (p *storePair) Close() {
	closeStore(p.master, "master")
	if p.log != p.master {
		closeStore(p.log, "log")
	}
}

func (p *storePair) feeds() statsui.Feeds {
	return statsui.Feeds{Catalog: p.master, History: p.log, Plays: p.log}
}

func closeStore(st *store.Store, name string) {
	if cerr := st.Close(); cerr != nil {
		logger.Warn("failed to close db", "db", name, "err", cerr)
	}
}

// resolveDBPaths applies flag, then config, then default precedence. The
// log database falls back to the resolved master database.
func resolveDBPaths(masterFlag, logFlag string, cfg config.FileConfig) (string, string) {
	master := masterFlag
	if master == "" {
		master = cfg.MasterPath(config.DefaultDBPath())
	}
	logPath := logFlag
	if logPath == "" {
		logPath = cfg.LogPath(master)
	}
	return master, logPath
}

func viewerConfig(level int, q model.HistoryQuery, window int) model.StatsConfig {
	return model.StatsConfig{Level: level, History: q, Goal: lamp.Hard, CurveWindow: window}
}

func runViewer(m tea.Model) error {
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func parseGoal(s string) (lamp.Tier, error) {
	goal, ok := lamp.Parse(s)
	if !ok || goal == lamp.NoPlay {
		labels := make([]string, 0, len(lamp.All)-1)
		for _, t := range lamp.All[:len(lamp.All)-1] {
			labels = append(labels, t.Label())
		}
		return lamp.NoPlay, fmt.Errorf("unknown lamp %q (use one of %s)", s, strings.Join(labels, ", "))
	}
	return goal, nil
}

func validateHistoryQuery(q model.HistoryQuery, window int) error {
	if q.Song == "" {
		return fmt.Errorf("--song must not be empty")
	}
	if !slices.Contains(model.DifficultyTypes, q.Difficulty) {
		return fmt.Errorf("--diff must be one of %s", strings.Join(model.DifficultyTypes, ", "))
	}
	if window < 1 {
		return fmt.Errorf("--window must be >= 1")
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
	return fmt.Sprintf(`# lampstat configuration
# Uncomment a value to enable it. CLI flags override config values.

[dashboard]
# level = %d              # Default difficulty level
# difficulty = %q       # Difficulty type for history
# curve-window = %d       # Moving average window for the history chart

[database]
# master = %q   # Catalog database
# log = %q      # Play history database (default: master)

[log]
# level = "warn"          # debug, info, warn, error
# format = "text"         # text, logfmt, json
`,
		defaultLevel,
		defaultDifficulty,
		defaultCurveWindow,
		config.DefaultDBPath(),
		config.DefaultDBPath(),
	)
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
