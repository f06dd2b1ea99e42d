package tui

import (
	"context"
	"fmt"

	"abcy/internal/activity"
	"abcy/internal/analysis"
	"abcy/internal/ledger"
	"abcy/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// chartPoints is how many ledger entries the score charts show
const chartPoints = 60

// DashboardData is everything the dashboard renders
type DashboardData struct {
	FTP, Weight, Wkg float64
	Enduro, Fitness  float64
	EnduroHistory    []float64 // oldest first
	FitnessHistory   []float64 // oldest first
	Trend            analysis.TrendSummary
	Recent           []activity.Summary
	Status           service.Status
}

// DashboardModel is the dashboard screen model
type DashboardModel struct {
	svc     *service.Service
	data    *DashboardData
	loading bool
	err     error
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(svc *service.Service) DashboardModel {
	return DashboardModel{
		svc:     svc,
		loading: true,
	}
}

// Init initializes the dashboard
func (m DashboardModel) Init() tea.Cmd {
	return m.loadData
}

type dashboardDataMsg struct {
	data *DashboardData
	err  error
}

func (m DashboardModel) loadData() tea.Msg {
	data, err := LoadDashboard(context.Background(), m.svc)
	return dashboardDataMsg{data: data, err: err}
}

// LoadDashboard gathers the ledger values, score histories and trends
func LoadDashboard(ctx context.Context, svc *service.Service) (*DashboardData, error) {
	data := &DashboardData{}
	for key, dst := range map[string]*float64{
		ledger.KeyFTP:     &data.FTP,
		ledger.KeyWeight:  &data.Weight,
		ledger.KeyWkg:     &data.Wkg,
		ledger.KeyEnduro:  &data.Enduro,
		ledger.KeyFitness: &data.Fitness,
	} {
		v, err := svc.Current(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		*dst = v
	}

	var err error
	if data.EnduroHistory, err = ScoreSeries(ctx, svc, ledger.KeyEnduro, chartPoints); err != nil {
		return nil, err
	}
	if data.FitnessHistory, err = ScoreSeries(ctx, svc, ledger.KeyFitness, chartPoints); err != nil {
		return nil, err
	}

	if data.Trend, err = svc.Trends(ctx); err != nil {
		return nil, err
	}
	if data.Recent, err = svc.RecentSummaries(ctx, 5); err != nil {
		return nil, err
	}
	if data.Status, err = svc.Status(ctx); err != nil {
		return nil, err
	}
	return data, nil
}

// ScoreSeries returns up to n ledger values, oldest first
func ScoreSeries(ctx context.Context, svc *service.Service, key string, n int) ([]float64, error) {
	entries, err := svc.History(ctx, key, n)
	if err != nil {
		return nil, err
	}
	series := make([]float64, len(entries))
	for i, e := range entries {
		series[len(entries)-1-i] = e.Value
	}
	return series, nil
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		m.data = msg.data
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadData
		}
	}
	return m, nil
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.loading {
		return "\n  Loading dashboard..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if m.data == nil {
		return "\n  No data available. Press 's' to sync with Strava."
	}

	var sections []string

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, m.renderAthleteCard(), "  ", m.renderTrendCard())
	sections = append(sections, topRow)

	if chart := m.renderChart("Enduro", m.data.EnduroHistory); chart != "" {
		sections = append(sections, chart)
	}
	if chart := m.renderChart("Fitness", m.data.FitnessHistory); chart != "" {
		sections = append(sections, chart)
	}

	sections = append(sections, m.renderRecentActivities())

	help := statusStyle.Render("Press 'r' to refresh, 's' to sync, '2' for activities list")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderAthleteCard() string {
	title := cardTitleStyle.Render("Athlete")

	lines := []string{
		RenderMetric("FTP", fmt.Sprintf("%.0f W", m.data.FTP), ""),
		RenderMetric("Weight", fmt.Sprintf("%.1f kg", m.data.Weight), ""),
		RenderMetric("W/kg", fmt.Sprintf("%.2f", m.data.Wkg), ""),
		RenderMetric("Enduro", fmt.Sprintf("%.1f", m.data.Enduro), ""),
		RenderMetric("Fitness", fmt.Sprintf("%.1f", m.data.Fitness), ""),
		RenderMetric("Activities", fmt.Sprint(m.data.Status.Activities), ""),
		RenderMetric("Last sync", FormatSyncTime(m.data.Status.LastSync), ""),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(38).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderTrendCard() string {
	title := cardTitleStyle.Render("Trend")

	t := m.data.Trend
	lines := []string{
		RenderMetric("Avg speed", "", t.AvgSpeed),
		RenderMetric("Max speed", "", t.MaxSpeed),
		RenderMetric("TSS", "", t.TSS),
		RenderMetric("Intensity", "", t.Intensity),
		RenderMetric("Power", "", t.Power),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(38).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderChart(name string, series []float64) string {
	if len(series) < 2 {
		return ""
	}
	title := cardTitleStyle.Render(name + " score history")

	graph := asciigraph.Plot(series,
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Precision(1),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}

func (m DashboardModel) renderRecentActivities() string {
	title := cardTitleStyle.Render("Recent Activities")

	if len(m.data.Recent) == 0 {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, "No activities yet"))
	}

	header := tableHeaderStyle.Render(fmt.Sprintf("%-10s  %-24s  %10s  %6s  %5s",
		"Date", "Name", "Distance", "NP", "TSS"))

	rows := []string{header}
	for _, s := range m.data.Recent {
		rows = append(rows, tableRowStyle.Render(fmt.Sprintf("%-10s  %-24s  %10s  %6s  %5s",
			FormatDate(s.StartDate),
			truncateName(s.Name, 24),
			FormatDistance(s.Distance),
			FormatOptional("%.0f", s.NormalizedPower),
			FormatOptional("%.0f", s.TrainingStressScore),
		)))
	}

	table := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, table))
}
