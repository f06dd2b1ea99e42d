package tui

import (
	"context"
	"fmt"
	"strings"

	"abcy/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SyncModel is the sync screen model
type SyncModel struct {
	syncService *service.SyncService
	count       int
	syncing     bool
	result      *service.SyncResult
	err         error
	done        bool
}

// NewSyncModel creates a new sync model
func NewSyncModel(ss *service.SyncService, count int) SyncModel {
	return SyncModel{
		syncService: ss,
		count:       count,
	}
}

// Init initializes the sync screen
func (m SyncModel) Init() tea.Cmd {
	return nil
}

// SyncDoneMsg is sent when a download finishes
type SyncDoneMsg struct {
	Result *service.SyncResult
	Err    error
}

// Update handles messages
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SyncDoneMsg:
		m.syncing = false
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		status := "Sync failed"
		if msg.Err == nil && msg.Result != nil {
			status = fmt.Sprintf("Synced %d new activities", msg.Result.ActivitiesStored)
		}
		return m, func() tea.Msg { return SyncCompleteMsg{Status: status} }

	case tea.KeyMsg:
		if !m.syncing && m.syncService != nil {
			switch msg.String() {
			case "enter", "s":
				m.syncing = true
				m.done = false
				m.err = nil
				m.result = nil
				return m, m.runSync
			}
		}
	}
	return m, nil
}

func (m SyncModel) runSync() tea.Msg {
	// No progress channel: a full buffer would stall the download
	result, err := m.syncService.DownloadLatest(context.Background(), m.count, nil)
	return SyncDoneMsg{Result: result, Err: err}
}

// View renders the sync screen
func (m SyncModel) View() string {
	var sections []string

	sections = append(sections, cardTitleStyle.Render("Strava Sync"))

	if m.syncService == nil {
		sections = append(sections, warningStyle.Render("\n  Strava is not configured. Run 'abcy authorize' first."))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)))
		sections = append(sections, "\n"+statusStyle.Render("  Press 's' or Enter to retry"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	switch {
	case m.syncing:
		sections = append(sections, "\n  Downloading from Strava...\n\n"+statusStyle.Render("  This may take a moment..."))
	case m.done:
		sections = append(sections, successStyle.Render("\n  Sync complete!"))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press '1' to go to dashboard"))
	default:
		sections = append(sections, m.renderStartPrompt())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m SyncModel) renderStartPrompt() string {
	lines := []string{
		"",
		fmt.Sprintf("  This will download your latest %d Strava activities:", m.count),
		"",
		"  1. Fetch activity metadata",
		"  2. Download power and heart rate streams",
		"  3. Compute NP, IF and TSS",
		"",
		statusStyle.Render("  Press 's' or Enter to start sync"),
	}
	return strings.Join(lines, "\n")
}

func (m SyncModel) renderSummary() string {
	if m.result == nil {
		return ""
	}

	r := m.result
	lines := []string{""}

	if r.ActivitiesStored > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d activities stored", r.ActivitiesStored)))
	} else {
		lines = append(lines, statusStyle.Render("  No new activities"))
	}
	if r.ActivitiesSkipped > 0 {
		lines = append(lines, statusStyle.Render(fmt.Sprintf("  %d already present", r.ActivitiesSkipped)))
	}
	if len(r.Errors) > 0 {
		lines = append(lines, "")
		lines = append(lines, warningStyle.Render(fmt.Sprintf("  %d errors occurred", len(r.Errors))))
	}

	return strings.Join(lines, "\n")
}
