package tui

import (
	"context"
	"fmt"
	"strings"

	"abcy/internal/activity"
	"abcy/internal/service"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// chartWidth is the number of points plotted for a stream
const chartWidth = 60

// ActivityDetailModel is the activity detail screen model
type ActivityDetailModel struct {
	svc        *service.Service
	activityID int64
	summary    *activity.Summary
	streams    activity.Streams
	viewport   viewport.Model
	loading    bool
	err        error
	ready      bool
}

// NewActivityDetailModel creates a new activity detail model
func NewActivityDetailModel(svc *service.Service, activityID int64, width, height int) ActivityDetailModel {
	m := ActivityDetailModel{
		svc:        svc,
		activityID: activityID,
		loading:    true,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6) // Reserve space for header/footer
		m.ready = true
	}

	return m
}

// Init initializes the activity detail screen
func (m ActivityDetailModel) Init() tea.Cmd {
	return m.loadDetail
}

type activityDetailLoadedMsg struct {
	summary *activity.Summary
	streams activity.Streams
	err     error
}

func (m ActivityDetailModel) loadDetail() tea.Msg {
	ctx := context.Background()
	detail, err := m.svc.LoadActivity(ctx, m.activityID)
	if err != nil {
		return activityDetailLoadedMsg{err: err}
	}
	summary, err := m.svc.Summary(ctx, m.activityID)
	if err != nil {
		return activityDetailLoadedMsg{err: err}
	}
	return activityDetailLoadedMsg{summary: &summary, streams: detail.Streams}
}

// Update handles messages
func (m ActivityDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activityDetailLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.summary = msg.summary
		m.streams = msg.streams
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if m.summary != nil {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadDetail
		}
	}

	// Handle viewport scrolling
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the activity detail screen
func (m ActivityDetailModel) View() string {
	if m.loading {
		return "\n  Loading activity details..."
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}
	if !m.ready {
		return m.renderContent()
	}
	help := statusStyle.Render("  esc: back  j/k: scroll  r: refresh")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), help)
}

func (m ActivityDetailModel) renderContent() string {
	if m.summary == nil {
		return ""
	}
	s := m.summary

	var sections []string
	sections = append(sections, cardTitleStyle.Render(fmt.Sprintf("%s  (%s)", s.Name, FormatDate(s.StartDate))))

	activityType := "-"
	if s.ActivityType != nil {
		activityType = *s.ActivityType
	}
	prs := "-"
	if s.PRCount != nil {
		prs = fmt.Sprint(*s.PRCount)
	}

	left := []string{
		RenderMetric("Type", activityType, ""),
		RenderMetric("Distance", FormatDistance(s.Distance), ""),
		RenderMetric("Duration", FormatDuration(s.Duration), ""),
		RenderMetric("Elevation", FormatOptional("%.0f m", s.TotalElevationGain), ""),
		RenderMetric("Avg speed", FormatOptional("%.1f km/h", s.AverageSpeed), ""),
		RenderMetric("Max speed", FormatOptional("%.1f km/h", s.MaxSpeed), ""),
		RenderMetric("PRs", prs, ""),
	}
	right := []string{
		RenderMetric("Weighted power", FormatOptional("%.0f W", s.WeightedAveragePower), ""),
		RenderMetric("Normalized power", FormatOptional("%.0f W", s.NormalizedPower), ""),
		RenderMetric("Intensity", FormatOptional("%.2f", s.IntensityFactor), ""),
		RenderMetric("TSS", FormatOptional("%.0f", s.TrainingStressScore), ""),
		RenderMetric("Avg heart rate", FormatOptional("%.0f bpm", s.AverageHeartrate), ""),
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
		cardStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left, left...)),
		"  ",
		cardStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left, right...)),
	))

	if chart := renderStreamChart("Power (W)", m.streams.Power); chart != "" {
		sections = append(sections, chart)
	}
	if chart := renderStreamChart("Heart Rate (bpm)", m.streams.Heartrate); chart != "" {
		sections = append(sections, chart)
	}

	return strings.Join(sections, "\n")
}

func renderStreamChart(title string, samples []int64) string {
	if len(samples) < 3 {
		return ""
	}
	data := make([]float64, len(samples))
	for i, v := range samples {
		data[i] = float64(v)
	}
	data = downsample(data, chartWidth)

	chart := asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(chartWidth),
	)
	heading := lipgloss.NewStyle().Bold(true).Foreground(secondaryColor).Render(title)
	return lipgloss.JoinVertical(lipgloss.Left, heading, chart, "")
}
