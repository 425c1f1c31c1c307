package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jinzhu/now"
	"go.uber.org/zap"

	"github.com/helpdesk-go/helpdesk/internal/config"
	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/events"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

// MonthlyReport is the month-end activity report.
type MonthlyReport struct {
	Period      string    `json:"period"`
	GeneratedAt time.Time `json:"generated_at"`

	NewTickets         int `json:"new_tickets"`
	ResolvedTickets    int `json:"resolved_tickets"`
	PreviousNewTickets int `json:"previous_new_tickets"`

	// VolumeComparisonPercent is zero when the previous month had no
	// new tickets; a percent against an empty baseline is meaningless.
	VolumeComparisonPercent int `json:"volume_comparison_percent"`
	ResolutionRatePercent   int `json:"resolution_rate_percent"`
	BacklogDelta            int `json:"backlog_delta"`

	AvgResolutionHours *float64 `json:"avg_resolution_hours"`
	// SlaBreachRatePercent is the share of the month's SLA-bearing
	// tickets whose due date passed before resolution (or before now,
	// when still open), rounded to one decimal.
	SlaBreachRatePercent float64 `json:"sla_breach_rate_percent"`
	// FirstResponseTimeHours stays at zero: comment timestamps are not
	// yet correlated with assignment, so there is no honest number to
	// report. TODO: derive it from the first TECH comment per ticket.
	FirstResponseTimeHours float64 `json:"first_response_time_hours"`

	ByCategory            []BreakdownRow        `json:"by_category"`
	ByPriority            []BreakdownRow        `json:"by_priority"`
	TechnicianPerformance []TechnicianReportRow `json:"technician_performance"`

	ExecutiveSummary string `json:"executive_summary"`
}

// BreakdownRow is a label/count pair of new tickets in the period.
// Level is only set for priority rows.
type BreakdownRow struct {
	Label string `json:"label"`
	Level int    `json:"level,omitempty"`
	Count int    `json:"count"`
}

// TechnicianReportRow summarizes one technician's month.
type TechnicianReportRow struct {
	TechnicianID       string   `json:"technician_id"`
	Name               string   `json:"name"`
	ResolvedCount      int      `json:"resolved_count"`
	AvgResolutionHours *float64 `json:"avg_resolution_hours"`
}

// ReportRenderer serializes a finished report for delivery.
type ReportRenderer interface {
	Render(report *MonthlyReport) ([]byte, error)
}

// JSONRenderer renders reports as indented JSON.
type JSONRenderer struct{}

func (JSONRenderer) Render(report *MonthlyReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// ReportService produces the monthly activity report comparing a month
// against the one before it.
type ReportService struct {
	tickets    repository.TicketRepository
	cfg        config.LifecycleConfig
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      func() time.Time
}

// NewReportService constructs the service.
func NewReportService(cfg config.LifecycleConfig, tickets repository.TicketRepository, dispatcher events.Dispatcher, logger *zap.Logger, clock func() time.Time) *ReportService {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		tickets:    tickets,
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
		clock:      clock,
	}
}

// Generate builds the report for the month containing ref.
// MANAGER-and-above.
func (s *ReportService) Generate(ctx context.Context, actor *domain.User, ref time.Time) (*MonthlyReport, error) {
	if err := requireRole(actor, domain.RoleManager); err != nil {
		return nil, err
	}
	return s.generate(ctx, ref, actor.ID)
}

// GenerateScheduled is the worker entry point: no acting user, reports
// on the month before ref (the worker fires just after month end).
func (s *ReportService) GenerateScheduled(ctx context.Context, ref time.Time) (*MonthlyReport, error) {
	return s.generate(ctx, ref.AddDate(0, -1, 0), "")
}

func (s *ReportService) generate(ctx context.Context, ref time.Time, actorID string) (*MonthlyReport, error) {
	monthStart := now.New(ref).BeginningOfMonth()
	monthEnd := now.New(ref).EndOfMonth()
	prevStart := now.New(monthStart.AddDate(0, 0, -1)).BeginningOfMonth()
	prevEnd := now.New(monthStart.AddDate(0, 0, -1)).EndOfMonth()

	tickets, err := s.tickets.ListActive(ctx, repository.Window{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	report := s.compute(tickets, monthStart, monthEnd, prevStart, prevEnd, s.clock())
	report.GeneratedAt = s.clock()

	s.logger.Info("monthly report generated",
		zap.String("period", report.Period),
		zap.Int("new_tickets", report.NewTickets),
		zap.Int("resolved_tickets", report.ResolvedTickets),
	)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventReportGenerated,
			ActorID:   actorID,
			Timestamp: report.GeneratedAt,
			Payload: events.ReportGeneratedPayload{
				Period:     report.Period,
				NewTickets: report.NewTickets,
			},
		})
	}
	return report, nil
}

func (s *ReportService) compute(tickets []domain.Ticket, monthStart, monthEnd, prevStart, prevEnd, now time.Time) *MonthlyReport {
	done := domain.NewLabelSet(s.cfg.ResolvedLabels...).Union(domain.NewLabelSet(s.cfg.ClosedLabels...))
	month := repository.Window{From: &monthStart, To: &monthEnd}
	prev := repository.Window{From: &prevStart, To: &prevEnd}

	report := &MonthlyReport{Period: monthStart.Format("2006-01")}
	byCategory := make(map[string]int)
	byPriority := make(map[string]*BreakdownRow)
	techRows := make(map[string]*TechnicianReportRow)
	techTotals := make(map[string]time.Duration)
	var resolutionTotal time.Duration
	var slaTotal, slaBreached int

	for i := range tickets {
		t := &tickets[i]
		if month.Contains(t.CreatedAt) {
			report.NewTickets++
			byCategory[t.Category.Label]++
			row, ok := byPriority[t.Priority.Label]
			if !ok {
				row = &BreakdownRow{Label: t.Priority.Label, Level: t.Priority.Level}
				byPriority[t.Priority.Label] = row
			}
			row.Count++
			if t.SlaDueAt != nil {
				slaTotal++
				deadlineRef := now
				if done.Contains(t.Status.Label) {
					deadlineRef = t.UpdatedAt
				}
				if t.SlaDueAt.Before(deadlineRef) {
					slaBreached++
				}
			}
		}
		if prev.Contains(t.CreatedAt) {
			report.PreviousNewTickets++
		}
		if done.Contains(t.Status.Label) && month.Contains(t.UpdatedAt) {
			report.ResolvedTickets++
			resolutionTotal += t.UpdatedAt.Sub(t.CreatedAt)
			if t.Assignee != nil {
				row, ok := techRows[t.Assignee.ID]
				if !ok {
					row = &TechnicianReportRow{TechnicianID: t.Assignee.ID, Name: t.Assignee.Name}
					techRows[t.Assignee.ID] = row
				}
				row.ResolvedCount++
				techTotals[t.Assignee.ID] += t.UpdatedAt.Sub(t.CreatedAt)
			}
		}
	}

	if report.PreviousNewTickets > 0 {
		diff := float64(report.NewTickets-report.PreviousNewTickets) / float64(report.PreviousNewTickets)
		report.VolumeComparisonPercent = int(math.Round(diff * 100))
	}
	if report.NewTickets > 0 {
		report.ResolutionRatePercent = int(math.Round(float64(report.ResolvedTickets) / float64(report.NewTickets) * 100))
	}
	report.BacklogDelta = report.NewTickets - report.ResolvedTickets
	if report.ResolvedTickets > 0 {
		avg := resolutionTotal.Hours() / float64(report.ResolvedTickets)
		report.AvgResolutionHours = &avg
	}
	if slaTotal > 0 {
		report.SlaBreachRatePercent = roundTenth(float64(slaBreached) / float64(slaTotal) * 100)
	}

	report.ByCategory = topCategories(byCategory, 3)
	report.ByPriority = prioritiesByLevel(byPriority)
	report.TechnicianPerformance = make([]TechnicianReportRow, 0, len(techRows))
	for id, row := range techRows {
		if row.ResolvedCount > 0 {
			avg := techTotals[id].Hours() / float64(row.ResolvedCount)
			row.AvgResolutionHours = &avg
		}
		report.TechnicianPerformance = append(report.TechnicianPerformance, *row)
	}
	sort.Slice(report.TechnicianPerformance, func(i, j int) bool {
		l, r := report.TechnicianPerformance[i], report.TechnicianPerformance[j]
		if l.ResolvedCount != r.ResolvedCount {
			return l.ResolvedCount > r.ResolvedCount
		}
		return l.Name < r.Name
	})

	report.ExecutiveSummary = executiveSummary(report)
	return report
}

// executiveSummary phrases the headline numbers for the report email.
func executiveSummary(r *MonthlyReport) string {
	volumeWord := "increased"
	if r.VolumeComparisonPercent < 0 {
		volumeWord = "decreased"
	}
	backlogWord := "shrunk"
	if r.BacklogDelta > 0 {
		backlogWord = "grown"
	}
	return fmt.Sprintf(
		"Ticket volume has %s by %d%% (%d new tickets) this month compared to last month. The resolution rate is %d%% (%d solved vs %d new). The backlog has %s by %d tickets.",
		volumeWord, abs(r.VolumeComparisonPercent), r.NewTickets,
		r.ResolutionRatePercent, r.ResolvedTickets, r.NewTickets,
		backlogWord, abs(r.BacklogDelta),
	)
}

// topCategories keeps the n busiest categories, count descending.
func topCategories(counts map[string]int, n int) []BreakdownRow {
	rows := make([]BreakdownRow, 0, len(counts))
	for label, count := range counts {
		rows = append(rows, BreakdownRow{Label: label, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Label < rows[j].Label
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// prioritiesByLevel orders priority rows by urgency level ascending.
func prioritiesByLevel(rows map[string]*BreakdownRow) []BreakdownRow {
	out := make([]BreakdownRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
