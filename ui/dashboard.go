package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/penwyp/tiercache/cache"
)

// Config configures the monitor dashboard
type Config struct {
	Theme       string
	RefreshRate time.Duration
	PageSize    int
}

// Dashboard is a terminal dashboard showing live cache statistics. It
// polls the engine on the refresh interval.
type Dashboard struct {
	engine    *cache.Engine
	config    Config
	styles    Styles
	stats     cache.Stats
	analytics *cache.Analytics
	keysTable table.Model
	width     int
	height    int
	warming   bool
	quitting  bool
}

type tickMsg time.Time

// NewDashboard creates a dashboard over the engine
func NewDashboard(engine *cache.Engine, config Config) *Dashboard {
	if config.RefreshRate <= 0 {
		config.RefreshRate = time.Second
	}
	if config.PageSize <= 0 {
		config.PageSize = 10
	}

	styles := NewStyles(GetThemeByName(config.Theme))

	columns := []table.Column{
		{Title: "Key", Width: 36},
		{Title: "Accesses", Width: 10},
		{Title: "Per Hour", Width: 10},
	}
	keysTable := table.New(
		table.WithColumns(columns),
		table.WithHeight(config.PageSize),
		table.WithFocused(true),
	)
	tableStyles := table.DefaultStyles()
	tableStyles.Header = tableStyles.Header.
		Foreground(GetThemeByName(config.Theme).Primary).
		Bold(true)
	keysTable.SetStyles(tableStyles)

	return &Dashboard{
		engine:    engine,
		config:    config,
		styles:    styles,
		keysTable: keysTable,
	}
}

// Init starts the refresh ticker
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.tick(), d.refresh())
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.config.RefreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh pulls a fresh snapshot from the engine
func (d *Dashboard) refresh() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{
			stats:     d.engine.GetStats(),
			analytics: d.engine.GetAnalytics(),
		}
	}
}

type snapshotMsg struct {
	stats     cache.Stats
	analytics *cache.Analytics
}

// Update handles messages
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			d.quitting = true
			return d, tea.Quit
		case "r":
			return d, d.refresh()
		case "w":
			engine := d.engine
			return d, func() tea.Msg {
				engine.WarmCache(context.Background(), "")
				return nil
			}
		}
		var cmd tea.Cmd
		d.keysTable, cmd = d.keysTable.Update(msg)
		return d, cmd

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case tickMsg:
		return d, tea.Batch(d.tick(), d.refresh())

	case snapshotMsg:
		d.stats = msg.stats
		d.analytics = msg.analytics
		d.warming = msg.stats.Warming.Running
		d.updateKeysTable()
		return d, nil
	}

	return d, nil
}

func (d *Dashboard) updateKeysTable() {
	if d.analytics == nil {
		return
	}
	rows := make([]table.Row, 0, len(d.analytics.TopKeys))
	for _, k := range d.analytics.TopKeys {
		rows = append(rows, table.Row{
			k.Key,
			fmt.Sprintf("%d", k.AccessCount),
			fmt.Sprintf("%.1f", k.AccessesPerHour),
		})
	}
	d.keysTable.SetRows(rows)
}

// View renders the dashboard
func (d *Dashboard) View() string {
	if d.quitting {
		return ""
	}

	var sections []string
	sections = append(sections, d.styles.Title.Render("tiercache monitor"))
	sections = append(sections, d.renderStats())
	sections = append(sections, d.renderTiers())
	sections = append(sections, d.renderKeys())
	if d.analytics != nil && len(d.analytics.Recommendations) > 0 {
		sections = append(sections, d.renderRecommendations())
	}
	sections = append(sections, d.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (d *Dashboard) renderStats() string {
	s := d.stats

	hitRate := fmt.Sprintf("%.1f%%", s.HitRate*100)
	rateStyle := d.styles.Success
	switch {
	case s.HitRate < 0.5:
		rateStyle = d.styles.Error
	case s.HitRate < 0.8:
		rateStyle = d.styles.Warning
	}

	lines := []string{
		fmt.Sprintf("Hit Rate   %s  (%d hits / %d misses)",
			rateStyle.Render(hitRate), s.Hits, s.Misses),
		fmt.Sprintf("Writes     %d sets, %d fetches, %d errors",
			s.Sets, s.Fetches, s.Errors),
		fmt.Sprintf("Latency    avg %v, p95 %v", s.AvgReadLatency, s.P95ReadLatency),
		fmt.Sprintf("Uptime     %v", s.Uptime.Round(time.Second)),
	}

	return d.styles.Panel.Render(
		d.styles.PanelTitle.Render("Overview") + "\n" +
			d.styles.Normal.Render(strings.Join(lines, "\n")))
}

func (d *Dashboard) renderTiers() string {
	s := d.stats

	tierLine := func(tier cache.Tier) string {
		ts := s.Tiers[tier]
		return fmt.Sprintf("%s  %6d hits  %6d misses  %5.1f%%",
			tier, ts.Hits, ts.Misses, ts.HitRate*100)
	}

	l1Usage := fmt.Sprintf("L1  %d/%d entries  %.2f/%.2f MB  %d evictions  %d hot",
		s.L1.Entries, s.L1.MaxEntries,
		float64(s.L1.MemoryBytes)/1024/1024,
		float64(s.L1.MaxMemoryBytes)/1024/1024,
		s.L1.Evictions, s.L1.HotKeys)

	warming := "idle"
	if d.warming {
		warming = d.styles.Warning.Render("running")
	}

	lines := []string{
		tierLine(cache.TierL1),
		tierLine(cache.TierL2),
		tierLine(cache.TierL3),
		"",
		l1Usage,
		fmt.Sprintf("Warming  %s, %d runs", warming, s.Warming.Runs),
		fmt.Sprintf("Predict  %d live, %.1f%% accuracy",
			s.Predictions.DataPoints, s.Predictions.Accuracy*100),
	}

	return d.styles.Panel.Render(
		d.styles.PanelTitle.Render("Tiers") + "\n" +
			d.styles.Normal.Render(strings.Join(lines, "\n")))
}

func (d *Dashboard) renderKeys() string {
	return d.styles.Panel.Render(
		d.styles.PanelTitle.Render("Top Keys") + "\n" + d.keysTable.View())
}

func (d *Dashboard) renderRecommendations() string {
	var lines []string
	for _, rec := range d.analytics.Recommendations {
		style := d.styles.Muted
		switch rec.Priority {
		case cache.RecommendationHigh:
			style = d.styles.Error
		case cache.RecommendationMedium:
			style = d.styles.Warning
		}
		lines = append(lines, fmt.Sprintf("%s %s",
			style.Render("["+string(rec.Priority)+"]"), rec.Action))
	}

	return d.styles.Panel.Render(
		d.styles.PanelTitle.Render("Recommendations") + "\n" +
			d.styles.Normal.Render(strings.Join(lines, "\n")))
}

func (d *Dashboard) renderFooter() string {
	trend := ""
	if d.analytics != nil {
		trend = "trend: " + string(d.analytics.Trend) + "  •  "
	}
	return d.styles.Footer.Render(trend + "q quit  •  r refresh  •  w warm")
}
