package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/events"
)

func TestMonthlyReportVolumeComparison(t *testing.T) {
	now := time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))

	// 10 tickets in January, 20 in February.
	for i := 0; i < 10; i++ {
		seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
			tk.CreatedAt = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
			tk.UpdatedAt = tk.CreatedAt
		})
	}
	for i := 0; i < 20; i++ {
		seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
			tk.CreatedAt = time.Date(2024, 2, 5, 9, 0, 0, 0, time.UTC)
			tk.UpdatedAt = tk.CreatedAt
		})
	}

	svc := NewReportService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	report, err := svc.Generate(context.Background(), manager, now)
	require.NoError(t, err)

	assert.Equal(t, "2024-02", report.Period)
	assert.Equal(t, 20, report.NewTickets)
	assert.Equal(t, 10, report.PreviousNewTickets)
	assert.Equal(t, 100, report.VolumeComparisonPercent)
	assert.Equal(t, 20, report.BacklogDelta)
}

func TestMonthlyReportZeroBaselineComparison(t *testing.T) {
	now := time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
		tk.CreatedAt = time.Date(2024, 2, 5, 9, 0, 0, 0, time.UTC)
		tk.UpdatedAt = tk.CreatedAt
	})

	svc := NewReportService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	report, err := svc.Generate(context.Background(), manager, now)
	require.NoError(t, err)

	assert.Equal(t, 0, report.VolumeComparisonPercent)
	assert.Equal(t, 0, report.PreviousNewTickets)
}

func TestMonthlyReportResolutionAndTechnicianPerformance(t *testing.T) {
	now := time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))

	created := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
			tk.CreatedAt = created
			tk.UpdatedAt = created
		})
	}
	// Two resolved by the technician, 12h and 36h after creation.
	seedTicket(t, repo, "Résolu", func(tk *domain.Ticket) {
		tk.CreatedAt = created
		tk.UpdatedAt = created.Add(12 * time.Hour)
		tk.Assignee = &domain.UserRef{ID: techUser.ID, Name: techUser.Name}
	})
	seedTicket(t, repo, "Fermé", func(tk *domain.Ticket) {
		tk.CreatedAt = created
		tk.UpdatedAt = created.Add(36 * time.Hour)
		tk.Assignee = &domain.UserRef{ID: techUser.ID, Name: techUser.Name}
	})
	// Resolved outside the month: not counted.
	seedTicket(t, repo, "Résolu", func(tk *domain.Ticket) {
		tk.CreatedAt = time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
		tk.UpdatedAt = time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)
	})

	svc := NewReportService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	report, err := svc.Generate(context.Background(), manager, now)
	require.NoError(t, err)

	assert.Equal(t, 6, report.NewTickets)
	assert.Equal(t, 2, report.ResolvedTickets)
	assert.Equal(t, 33, report.ResolutionRatePercent)
	assert.Equal(t, 4, report.BacklogDelta)

	require.NotNil(t, report.AvgResolutionHours)
	assert.InDelta(t, 24.0, *report.AvgResolutionHours, 0.001)
	assert.Zero(t, report.FirstResponseTimeHours)

	require.Len(t, report.TechnicianPerformance, 1)
	row := report.TechnicianPerformance[0]
	assert.Equal(t, techUser.ID, row.TechnicianID)
	assert.Equal(t, 2, row.ResolvedCount)
	require.NotNil(t, row.AvgResolutionHours)
	assert.InDelta(t, 24.0, *row.AvgResolutionHours, 0.001)
}

func TestMonthlyReportExecutiveSummaryWording(t *testing.T) {
	grown := &MonthlyReport{
		NewTickets:              20,
		ResolvedTickets:         5,
		VolumeComparisonPercent: 100,
		ResolutionRatePercent:   25,
		BacklogDelta:            15,
	}
	assert.Equal(t,
		"Ticket volume has increased by 100% (20 new tickets) this month compared to last month. The resolution rate is 25% (5 solved vs 20 new). The backlog has grown by 15 tickets.",
		executiveSummary(grown))

	shrunk := &MonthlyReport{
		NewTickets:              5,
		ResolvedTickets:         8,
		VolumeComparisonPercent: -50,
		ResolutionRatePercent:   160,
		BacklogDelta:            -3,
	}
	assert.Equal(t,
		"Ticket volume has decreased by 50% (5 new tickets) this month compared to last month. The resolution rate is 160% (8 solved vs 5 new). The backlog has shrunk by 3 tickets.",
		executiveSummary(shrunk))

	flat := &MonthlyReport{}
	assert.Equal(t,
		"Ticket volume has increased by 0% (0 new tickets) this month compared to last month. The resolution rate is 0% (0 solved vs 0 new). The backlog has shrunk by 0 tickets.",
		executiveSummary(flat))
}

func TestMonthlyReportBreakdownsCountNewTickets(t *testing.T) {
	now := time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	created := time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
			tk.CreatedAt = created
			tk.UpdatedAt = created
			tk.Category = domain.Category{ID: "cat-network", Label: "Network"}
		})
	}
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
		tk.CreatedAt = created
		tk.UpdatedAt = created
		tk.Priority = domain.Priority{ID: "prio-1", Label: "P1 - Urgent", Level: 1}
	})

	svc := NewReportService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	report, err := svc.Generate(context.Background(), manager, now)
	require.NoError(t, err)

	require.NotEmpty(t, report.ByCategory)
	assert.Equal(t, BreakdownRow{Label: "Network", Count: 3}, report.ByCategory[0])
	require.Len(t, report.ByPriority, 2)
	assert.Equal(t, BreakdownRow{Label: "P1 - Urgent", Level: 1, Count: 1}, report.ByPriority[0])
	assert.Equal(t, BreakdownRow{Label: "P3 - Medium", Level: 3, Count: 3}, report.ByPriority[1])
}

func TestMonthlyReportCategoryBreakdownCappedToTopThree(t *testing.T) {
	now := time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	created := time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC)

	labels := map[string]int{"Network": 4, "Hardware": 3, "Software": 2, "Printing": 1}
	for label, count := range labels {
		for i := 0; i < count; i++ {
			seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
				tk.CreatedAt = created
				tk.UpdatedAt = created
				tk.Category = domain.Category{ID: "cat-" + label, Label: label}
			})
		}
	}

	svc := NewReportService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	report, err := svc.Generate(context.Background(), manager, now)
	require.NoError(t, err)

	require.Len(t, report.ByCategory, 3)
	assert.Equal(t, "Network", report.ByCategory[0].Label)
	assert.Equal(t, "Hardware", report.ByCategory[1].Label)
	assert.Equal(t, "Software", report.ByCategory[2].Label)
}

func TestMonthlyReportPriorityBreakdownOrderedByLevel(t *testing.T) {
	now := time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	created := time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC)

	priorities := []domain.Priority{
		{ID: "prio-4", Label: "P4 - Low", Level: 4},
		{ID: "prio-4", Label: "P4 - Low", Level: 4},
		{ID: "prio-4", Label: "P4 - Low", Level: 4},
		{ID: "prio-1", Label: "P1 - Urgent", Level: 1},
		{ID: "prio-2", Label: "P2 - High", Level: 2},
		{ID: "prio-2", Label: "P2 - High", Level: 2},
	}
	for _, prio := range priorities {
		p := prio
		seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
			tk.CreatedAt = created
			tk.UpdatedAt = created
			tk.Priority = p
		})
	}

	svc := NewReportService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	report, err := svc.Generate(context.Background(), manager, now)
	require.NoError(t, err)

	require.Len(t, report.ByPriority, 3)
	assert.Equal(t, []string{"P1 - Urgent", "P2 - High", "P4 - Low"}, []string{
		report.ByPriority[0].Label, report.ByPriority[1].Label, report.ByPriority[2].Label,
	})
	assert.Equal(t, 3, report.ByPriority[2].Count)
}

func TestMonthlyReportSlaBreachRate(t *testing.T) {
	now := time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	created := time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC)

	// Resolved after its due date: breached.
	breachedDue := created.Add(4 * time.Hour)
	seedTicket(t, repo, "Résolu", func(tk *domain.Ticket) {
		tk.CreatedAt = created
		tk.UpdatedAt = created.Add(10 * time.Hour)
		tk.SlaDueAt = &breachedDue
	})
	// Still open with the due date ahead of now: on track.
	futureDue := now.Add(24 * time.Hour)
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
		tk.CreatedAt = created
		tk.UpdatedAt = created
		tk.SlaDueAt = &futureDue
	})
	// Resolved before its due date: on track.
	metDue := created.Add(48 * time.Hour)
	seedTicket(t, repo, "Fermé", func(tk *domain.Ticket) {
		tk.CreatedAt = created
		tk.UpdatedAt = created.Add(2 * time.Hour)
		tk.SlaDueAt = &metDue
	})
	// No due date: excluded from the rate entirely.
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
		tk.CreatedAt = created
		tk.UpdatedAt = created
	})

	svc := NewReportService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	report, err := svc.Generate(context.Background(), manager, now)
	require.NoError(t, err)

	// 1 breached of 3 with an SLA, rounded to one decimal.
	assert.Equal(t, 33.3, report.SlaBreachRatePercent)
}

func TestMonthlyReportSlaBreachCountsOpenTicketsPastDue(t *testing.T) {
	now := time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	created := time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC)

	pastDue := created.Add(4 * time.Hour)
	seedTicket(t, repo, "En cours", func(tk *domain.Ticket) {
		tk.CreatedAt = created
		tk.UpdatedAt = created
		tk.SlaDueAt = &pastDue
	})

	svc := NewReportService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	report, err := svc.Generate(context.Background(), manager, now)
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.SlaBreachRatePercent)
}

func TestScheduledReportTargetsPreviousMonth(t *testing.T) {
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	dispatcher := &recordingDispatcher{}

	svc := NewReportService(testLifecycleConfig(), repo, dispatcher, nil, fixedClock(now))
	report, err := svc.GenerateScheduled(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, "2024-02", report.Period)
	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, events.EventReportGenerated, dispatcher.events[0].Type)
}

func TestReportRequiresManagerRole(t *testing.T) {
	repo := newFakeTicketRepo(nil)
	svc := NewReportService(testLifecycleConfig(), repo, nil, nil, nil)

	_, err := svc.Generate(context.Background(), techUser, time.Now())
	assert.True(t, apperrorsIsCode(err, "FORBIDDEN"))
}
