package tui

import (
	"context"
	"fmt"

	"abcy/internal/analysis"
	"abcy/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatsModel is the period stats screen model
type StatsModel struct {
	svc      *service.Service
	stats    []analysis.StatsEntry
	period   analysis.Period
	loading  bool
	err      error
	cursor   int
	offset   int
	pageSize int
}

// NewStatsModel creates a new stats model
func NewStatsModel(svc *service.Service) StatsModel {
	return StatsModel{
		svc:      svc,
		period:   analysis.PeriodWeek,
		loading:  true,
		pageSize: 15,
	}
}

// Init initializes the stats screen
func (m StatsModel) Init() tea.Cmd {
	return m.loadStats
}

type statsLoadedMsg struct {
	stats []analysis.StatsEntry
	err   error
}

func (m StatsModel) loadStats() tea.Msg {
	stats, err := m.svc.Stats(context.Background(), m.period, analysis.StatsFilter{})
	return statsLoadedMsg{stats: stats, err: err}
}

func (m StatsModel) setPeriod(p analysis.Period) (StatsModel, tea.Cmd) {
	if m.period == p {
		return m, nil
	}
	m.period = p
	m.loading = true
	m.cursor, m.offset = 0, 0
	return m, m.loadStats
}

// Update handles messages
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statsLoadedMsg:
		m.loading = false
		m.err = msg.err
		// Most recent period first
		m.stats = make([]analysis.StatsEntry, len(msg.stats))
		for i, s := range msg.stats {
			m.stats[len(msg.stats)-1-i] = s
		}
		m.cursor, m.offset = 0, 0

	case tea.KeyMsg:
		switch msg.String() {
		case "d":
			return m.setPeriod(analysis.PeriodDay)
		case "w":
			return m.setPeriod(analysis.PeriodWeek)
		case "m":
			return m.setPeriod(analysis.PeriodMonth)
		case "y":
			return m.setPeriod(analysis.PeriodYear)
		case "r":
			m.loading = true
			return m, m.loadStats
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			} else if m.offset > 0 {
				m.offset -= m.pageSize
				m.cursor = m.pageSize - 1
			}
		case "down", "j":
			if m.cursor < m.visibleCount()-1 {
				m.cursor++
			} else if m.offset+m.pageSize < len(m.stats) {
				m.offset += m.pageSize
				m.cursor = 0
			}
		case "pgup":
			if m.offset > 0 {
				m.offset = max(m.offset-m.pageSize, 0)
				m.cursor = 0
			}
		case "pgdown":
			if m.offset+m.pageSize < len(m.stats) {
				m.offset += m.pageSize
				m.cursor = 0
			}
		}
	}
	return m, nil
}

func (m StatsModel) visibleCount() int {
	return max(min(len(m.stats)-m.offset, m.pageSize), 0)
}

// View renders the stats screen
func (m StatsModel) View() string {
	if m.loading {
		return "\n  Loading stats..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	var sections []string

	if len(m.stats) == 0 {
		sections = append(sections, cardTitleStyle.Render(fmt.Sprintf("Stats by %s", m.period)))
		sections = append(sections, "\n  No data available. Sync some activities first.")
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	visible := m.visibleCount()
	title := cardTitleStyle.Render(fmt.Sprintf("Stats by %s - %d-%d of %d",
		m.period, m.offset+1, m.offset+visible, len(m.stats)))
	sections = append(sections, title)

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-10s  %5s  %10s  %7s  %5s  %6s  %9s",
		"Period", "Rides", "Distance", "Power", "IF", "TSS", "Speed"))
	sections = append(sections, header)

	for i := 0; i < visible; i++ {
		s := m.stats[m.offset+i]

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-10s  %5d  %10s  %7s  %5s  %6s  %9s",
			cursor,
			s.Period,
			s.Rides,
			FormatDistance(s.Distance),
			FormatOptional("%.0f W", s.WeightedPower),
			FormatOptional("%.2f", s.IntensityFactor),
			FormatOptional("%.0f", s.TrainingStress),
			FormatOptional("%.1f km/h", s.AverageSpeed),
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	help := statusStyle.Render("\n  d/w/m/y: day/week/month/year  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
