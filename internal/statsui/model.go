// Package statsui provides the Bubble Tea lamp report interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/verte-zerg/lampstat/internal/lamp"
	"github.com/verte-zerg/lampstat/internal/model"
	"github.com/verte-zerg/lampstat/internal/stats"
)

const (
	tabRanks = iota
	tabTargets
	tabHistory
)

const (
	plotHeight = 10
	loadHint   = "Check the database paths in the [database] section of the config file."
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	tableHeadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0C0C0")).Bold(true).PaddingRight(1)
	tableRuleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
)

// Row tints separate skill ranks from individual-difference ranks.
var (
	skillRowBackground    = lipgloss.Color("#1C2733")
	personalRowBackground = lipgloss.Color("#33241A")
)

const personalRankPrefix = "個人差"

// lampHighlights colors non-zero counts of the lamps worth chasing.
var lampHighlights = map[lamp.Tier]lipgloss.Color{
	lamp.FullCombo: lipgloss.Color("#5CE1E6"),
	lamp.ExHard:    lipgloss.Color("#FFD23F"),
	lamp.Hard:      lipgloss.Color("#FF6B6B"),
}

// Feeds bundles the data sources of the viewer. Plays is only queried
// when a song is selected.
type Feeds struct {
	Catalog stats.CatalogFeed
	History stats.HistoryFeed
	Plays   stats.PlayFeed
}

// Model implements the Bubble Tea lamp report UI.
type Model struct {
	feeds Feeds
	cfg   model.StatsConfig
	now   func() time.Time

	rankReport    stats.RankReport
	historyReport stats.HistoryReport
	errMsg        string

	tabs      []string
	activeTab int
	viewports []viewport.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs the viewer and loads the first report.
func NewModel(feeds Feeds, cfg model.StatsConfig) *Model {
	m := &Model{
		feeds: feeds,
		cfg:   cfg,
		now:   time.Now,
		tabs:  []string{"Ranks", "Targets", "History"},
	}
	if m.cfg.Level < 1 {
		m.cfg.Level = 1
	}
	if m.cfg.CurveWindow < 1 {
		m.cfg.CurveWindow = 1
	}
	if m.cfg.History.Difficulty == "" {
		m.cfg.History.Difficulty = "SPA"
	}
	if m.cfg.Goal == lamp.NoPlay {
		m.cfg.Goal = lamp.Hard
	}
	m.initInputs()
	m.initViewports()
	m.refreshReport()
	return m
}

// ShowHistory makes the History tab active.
func (m *Model) ShowHistory() {
	m.activeTab = tabHistory
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "[":
			if m.cfg.Level > 1 {
				m.cfg.Level--
				m.refreshReport()
			}
			return m, nil
		case "]":
			m.cfg.Level++
			m.refreshReport()
			return m, nil
		case "t":
			if m.activeTab == tabTargets {
				m.cfg.Goal = nextGoal(m.cfg.Goal)
				m.renderTabContents()
			}
			return m, nil
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			m.viewports[m.activeTab].GotoTop()
			return m, nil
		case "G", "end":
			m.viewports[m.activeTab].GotoBottom()
			return m, nil
		default:
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Level: "),
		newFilterInput("Song: "),
		newFilterInput("Difficulty: "),
		newFilterInput("Curve window: "),
	}
	m.setInputsFromConfig()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	if len(m.filterInputs) == 0 {
		return
	}
	m.filterInputs[0].SetValue(strconv.Itoa(m.cfg.Level))
	m.filterInputs[1].SetValue(m.cfg.History.Song)
	m.filterInputs[2].SetValue(m.cfg.History.Difficulty)
	m.filterInputs[3].SetValue(strconv.Itoa(m.cfg.CurveWindow))
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	song := "none"
	if m.cfg.History.Song != "" {
		song = strconv.Quote(m.cfg.History.Song)
	}
	summary := fmt.Sprintf("Settings: level=%d  song=%s  diff=%s  goal=%s  window=%d",
		m.cfg.Level, song, m.cfg.History.Difficulty, m.cfg.Goal, m.cfg.CurveWindow)
	summary = truncateLine(summary, m.width)
	return headerStyle.Render(summary)
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Level: [/]  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q"
	if m.activeTab == tabTargets {
		help = "Nav: left/right  Level: [/]  Goal: t  Scroll: up/down/pgup/pgdn  Settings: /  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFilterHelp() string {
	return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  quit: ctrl+c")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return m.renderFilterHelp()
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	ctx := context.Background()
	report, err := stats.BuildRankReport(ctx, m.feeds.Catalog, m.feeds.History, m.cfg.Level)
	if err != nil {
		m.setLoadError(err)
		return
	}
	history := stats.HistoryReport{Query: m.cfg.History}
	if m.cfg.History.Song != "" {
		history, err = stats.BuildHistoryReport(ctx, m.feeds.Plays, m.cfg.History)
		if err != nil {
			m.setLoadError(err)
			return
		}
	}
	m.errMsg = ""
	m.rankReport = report
	m.historyReport = history
	m.viewports[tabRanks].GotoTop()
	m.renderTabContents()
}

func (m *Model) setLoadError(err error) {
	m.errMsg = err.Error()
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		content := loadErrorContent(m.errMsg)
		for i := range m.viewports {
			m.viewports[i].SetContent(content)
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabRanks].SetContent(renderRanksTab(m.rankReport))
	m.viewports[tabTargets].SetContent(renderTargetsTab(m.rankReport, m.cfg.Goal, width))
	m.viewports[tabHistory].SetContent(renderHistoryTab(m.historyReport, m.cfg.CurveWindow, width, m.now()))
}

func loadErrorContent(errMsg string) string {
	return strings.Join([]string{
		"Failed to load stats.",
		"",
		errMsg,
		headerStyle.Render(loadHint),
	}, "\n")
}

func renderTargetsTab(report stats.RankReport, goal lamp.Tier, width int) string {
	if len(report.Ranks) == 0 {
		return fmt.Sprintf("No songs found for level %d.", report.Level)
	}
	cards := renderSummaryCards(report.Totals, width)
	var buf bytes.Buffer
	if err := stats.RenderTargets(&buf, goal, report.Targets(goal)); err != nil {
		return fmt.Sprintf("Failed to render targets: %v", err)
	}
	return strings.TrimRight(cards+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(totals model.RankStats, width int) string {
	cards := []string{
		metricCard("Songs", strconv.Itoa(totals.Total)),
		metricCard("Full Combo", strconv.Itoa(totals.Count(lamp.FullCombo))),
		metricCard("EX-HARD+", clearShare(totals, lamp.ExHard)),
		metricCard("HARD+", clearShare(totals, lamp.Hard)),
		metricCard("Clear+", clearShare(totals, lamp.Normal)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

// clearShare reports how many songs reached at least floor.
func clearShare(totals model.RankStats, floor lamp.Tier) string {
	count := 0
	for _, tier := range lamp.All {
		if lamp.Compare(tier, floor) >= 0 {
			count += totals.Count(tier)
		}
	}
	if totals.Total == 0 {
		return "0"
	}
	return fmt.Sprintf("%d (%.1f%%)", count, float64(count)/float64(totals.Total)*100)
}

func renderHistoryTab(report stats.HistoryReport, window, width int, now time.Time) string {
	if report.Query.Song == "" {
		return "No song selected. Press / to set a song and difficulty."
	}
	var buf bytes.Buffer
	opts := stats.HistoryOptions{
		Width:  width,
		Height: plotHeight,
		Window: window,
		Color:  true,
		Now:    now,
	}
	if err := stats.RenderHistory(&buf, report, opts); err != nil {
		return fmt.Sprintf("Failed to render history: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderRanksTab(report stats.RankReport) string {
	if len(report.Ranks) == 0 {
		return fmt.Sprintf("No songs found for level %d.", report.Level)
	}
	rows := make([][]string, 0, len(report.Ranks)+1)
	for _, r := range report.Ranks {
		rows = append(rows, stats.RankTableRow(r))
	}
	rows = append(rows, stats.RankTableRow(report.Totals))
	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		BorderStyle(tableRuleStyle).
		Headers(stats.RankTableHeaders()...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return tableHeadStyle
			}
			return rankCellStyle(rows[row], col)
		})
	return t.String()
}

// rankCellStyle styles one rank table cell. The totals row is bold and
// untinted; lamp columns start after Rank and Total.
func rankCellStyle(row []string, col int) lipgloss.Style {
	style := tableMutedStyle.PaddingRight(1)
	label := row[0]
	switch {
	case label == stats.TotalsLabel:
		style = style.Bold(true)
	case strings.HasPrefix(label, personalRankPrefix):
		style = style.Background(personalRowBackground)
	default:
		style = style.Background(skillRowBackground)
	}
	idx := col - 2
	if idx < 0 || idx >= len(lamp.All) || row[col] == "0" {
		return style
	}
	if color, ok := lampHighlights[lamp.All[idx]]; ok {
		style = style.Foreground(color).Bold(true)
	}
	return style
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	level, err := strconv.Atoi(strings.TrimSpace(m.filterInputs[0].Value()))
	if err != nil || level < 1 {
		return fmt.Errorf("invalid level (use integer >= 1)")
	}

	song := strings.TrimSpace(m.filterInputs[1].Value())

	difficulty := strings.ToUpper(strings.TrimSpace(m.filterInputs[2].Value()))
	if difficulty == "" {
		difficulty = m.cfg.History.Difficulty
	}
	if !slices.Contains(model.DifficultyTypes, difficulty) {
		return fmt.Errorf("invalid difficulty (use one of %s)", strings.Join(model.DifficultyTypes, ", "))
	}

	windowInput := strings.TrimSpace(m.filterInputs[3].Value())
	window := 1
	if windowInput != "" {
		parsed, err := strconv.Atoi(windowInput)
		if err != nil {
			return fmt.Errorf("invalid curve window (use integer)")
		}
		if parsed < 1 {
			return fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		window = parsed
	}

	m.cfg = model.StatsConfig{
		Level:       level,
		History:     model.HistoryQuery{Song: song, Difficulty: difficulty},
		Goal:        m.cfg.Goal,
		CurveWindow: window,
	}
	return nil
}

// nextGoal steps the target lamp one tier down, wrapping to Full Combo.
// NoPlay is skipped since nothing ranks below it.
func nextGoal(t lamp.Tier) lamp.Tier {
	goals := lamp.All[:len(lamp.All)-1]
	for i, g := range goals {
		if g == t {
			return goals[(i+1)%len(goals)]
		}
	}
	return goals[0]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
