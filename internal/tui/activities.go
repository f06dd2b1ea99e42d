package tui

import (
	"context"
	"fmt"

	"abcy/internal/activity"
	"abcy/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ActivitiesModel is the activities list screen model
type ActivitiesModel struct {
	svc        *service.Service
	activities []activity.Summary
	cursor     int
	offset     int
	pageSize   int
	loading    bool
	err        error
}

// NewActivitiesModel creates a new activities model
func NewActivitiesModel(svc *service.Service) ActivitiesModel {
	return ActivitiesModel{
		svc:      svc,
		pageSize: 15,
		loading:  true,
	}
}

// Init initializes the activities screen
func (m ActivitiesModel) Init() tea.Cmd {
	return m.load
}

type activitiesLoadedMsg struct {
	activities []activity.Summary
	err        error
}

func (m ActivitiesModel) load() tea.Msg {
	summaries, err := m.svc.Summaries(context.Background())
	return activitiesLoadedMsg{activities: summaries, err: err}
}

func (m ActivitiesModel) page() []activity.Summary {
	end := min(m.offset+m.pageSize, len(m.activities))
	if m.offset >= end {
		return nil
	}
	return m.activities[m.offset:end]
}

// Update handles messages
func (m ActivitiesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activitiesLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.activities = msg.activities
		m.cursor, m.offset = 0, 0

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			} else if m.offset > 0 {
				m.offset -= m.pageSize
				m.cursor = m.pageSize - 1
			}
		case "down", "j":
			if m.cursor < len(m.page())-1 {
				m.cursor++
			} else if m.offset+m.pageSize < len(m.activities) {
				m.offset += m.pageSize
				m.cursor = 0
			}
		case "pgup":
			if m.offset > 0 {
				m.offset = max(m.offset-m.pageSize, 0)
				m.cursor = 0
			}
		case "pgdown":
			if m.offset+m.pageSize < len(m.activities) {
				m.offset += m.pageSize
				m.cursor = 0
			}
		case "r":
			m.loading = true
			return m, m.load
		case "enter":
			page := m.page()
			if m.cursor < len(page) {
				id := page[m.cursor].ID
				return m, func() tea.Msg {
					return OpenActivityDetailMsg{ActivityID: id}
				}
			}
		}
	}
	return m, nil
}

// View renders the activities list
func (m ActivitiesModel) View() string {
	if m.loading {
		return "\n  Loading activities..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.activities) == 0 {
		return "\n  No activities found. Press 's' to sync with Strava."
	}

	page := m.page()
	var sections []string

	title := cardTitleStyle.Render(fmt.Sprintf("Activities (%d-%d of %d)",
		m.offset+1, m.offset+len(page), len(m.activities)))
	sections = append(sections, title)

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-10s  %-25s  %10s  %7s  %5s  %5s  %5s",
		"Date", "Name", "Distance", "Time", "NP", "IF", "TSS"))
	sections = append(sections, header)

	for i, s := range page {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-10s  %-25s  %10s  %7s  %5s  %5s  %5s",
			cursor,
			FormatDate(s.StartDate),
			truncateName(s.Name, 25),
			FormatDistance(s.Distance),
			FormatDuration(s.Duration),
			FormatOptional("%.0f", s.NormalizedPower),
			FormatOptional("%.2f", s.IntensityFactor),
			FormatOptional("%.0f", s.TrainingStressScore),
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	help := statusStyle.Render("\n  enter: view details  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
