package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/repository"
)

func seedTicket(t *testing.T, repo *fakeTicketRepo, statusLabel string, mutate func(*domain.Ticket)) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		Title:       "seed",
		Description: "seed",
		Status:      domain.Status{ID: "s-" + statusLabel, Label: statusLabel},
		Priority:    domain.Priority{ID: "prio-3", Label: "P3 - Medium", Level: 3},
		Category:    domain.Category{ID: "cat-hardware", Label: "Hardware"},
		Creator:     &domain.UserRef{ID: endUser.ID, Name: endUser.Name},
	}
	if mutate != nil {
		mutate(ticket)
	}
	require.NoError(t, repo.Create(context.Background(), ticket))
	if mutate != nil {
		// Re-apply so timestamp overrides survive Create's defaults.
		mutate(ticket)
		repo.tickets[ticket.ID] = ticket
	}
	return ticket
}

func TestManagerStatsBucketsByLabelSets(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))

	// 2 open, 2 in progress, 4 resolved, 2 closed.
	seedTicket(t, repo, "Ouvert", nil)
	seedTicket(t, repo, "Open", nil)
	seedTicket(t, repo, "En cours", nil)
	seedTicket(t, repo, "In progress", nil)
	for i := 0; i < 4; i++ {
		seedTicket(t, repo, "Résolu", nil)
	}
	seedTicket(t, repo, "Fermé", nil)
	seedTicket(t, repo, "Closed", nil)
	// An unrecognized label lands in no bucket.
	seedTicket(t, repo, "Waiting", nil)

	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	stats, err := svc.ManagerStats(context.Background(), manager, repository.Window{})
	require.NoError(t, err)

	assert.Equal(t, 11, stats.TotalCount)
	assert.Equal(t, 2, stats.OpenCount)
	assert.Equal(t, 2, stats.InProgressCount)
	assert.Equal(t, 4, stats.ResolvedCount)
	assert.Equal(t, 2, stats.ClosedCount)
	assert.Equal(t, 11, stats.IncomingCount)
}

func TestManagerStatsCountsTotalAndUnassigned(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))

	seedTicket(t, repo, "Ouvert", nil)
	// An unbucketed label still counts toward the total.
	seedTicket(t, repo, "Waiting", nil)
	seedTicket(t, repo, "En cours", func(tk *domain.Ticket) {
		tk.Assignee = &domain.UserRef{ID: techUser.ID, Name: techUser.Name}
	})

	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	stats, err := svc.ManagerStats(context.Background(), manager, repository.Window{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 2, stats.UnassignedCount)
}

func TestManagerStatsWindowFiltersByCreation(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))

	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
		tk.CreatedAt = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	})
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
		tk.CreatedAt = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	})

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	stats, err := svc.ManagerStats(context.Background(), manager, repository.Window{From: &from})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalCount)
	assert.Equal(t, 1, stats.OpenCount)
}

func TestManagerStatsLateCountExcludesDoneTickets(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	past := now.Add(-2 * time.Hour)
	future := now.Add(2 * time.Hour)

	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) { tk.SlaDueAt = &past })
	seedTicket(t, repo, "En cours", func(tk *domain.Ticket) { tk.SlaDueAt = &past })
	// Breached but resolved: not late.
	seedTicket(t, repo, "Résolu", func(tk *domain.Ticket) { tk.SlaDueAt = &past })
	// Due date ahead: not late.
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) { tk.SlaDueAt = &future })
	// No SLA: never late.
	seedTicket(t, repo, "Ouvert", nil)

	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	stats, err := svc.ManagerStats(context.Background(), manager, repository.Window{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.LateCount)
}

func TestManagerStatsAvgResolutionAndTechnicians(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))

	seedTicket(t, repo, "Résolu", func(tk *domain.Ticket) {
		tk.CreatedAt = now.Add(-10 * time.Hour)
		tk.UpdatedAt = now
		tk.Assignee = &domain.UserRef{ID: techUser.ID, Name: techUser.Name}
	})
	seedTicket(t, repo, "Fermé", func(tk *domain.Ticket) {
		tk.CreatedAt = now.Add(-20 * time.Hour)
		tk.UpdatedAt = now
		tk.Assignee = &domain.UserRef{ID: techUser.ID, Name: techUser.Name}
	})
	seedTicket(t, repo, "En cours", func(tk *domain.Ticket) {
		tk.Assignee = &domain.UserRef{ID: manager.ID, Name: manager.Name}
	})

	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	stats, err := svc.ManagerStats(context.Background(), manager, repository.Window{})
	require.NoError(t, err)

	require.NotNil(t, stats.AvgResolutionHours)
	assert.InDelta(t, 15.0, *stats.AvgResolutionHours, 0.001)

	require.Len(t, stats.PerTechnician, 2)
	assert.Equal(t, techUser.ID, stats.PerTechnician[0].TechnicianID)
	assert.Equal(t, 2, stats.PerTechnician[0].Count)
	assert.Equal(t, 1, stats.PerTechnician[1].Count)
}

func TestManagerStatsAvgResolutionRoundedToTenth(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))

	// 100 minutes is 1.666..h and must come back as 1.7.
	seedTicket(t, repo, "Résolu", func(tk *domain.Ticket) {
		tk.CreatedAt = now.Add(-100 * time.Minute)
		tk.UpdatedAt = now
	})

	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	stats, err := svc.ManagerStats(context.Background(), manager, repository.Window{})
	require.NoError(t, err)

	require.NotNil(t, stats.AvgResolutionHours)
	assert.Equal(t, 1.7, *stats.AvgResolutionHours)
}

func TestManagerStatsAvgResolutionNilWithoutDoneTickets(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	seedTicket(t, repo, "Ouvert", nil)

	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	stats, err := svc.ManagerStats(context.Background(), manager, repository.Window{})
	require.NoError(t, err)
	assert.Nil(t, stats.AvgResolutionHours)
}

func TestManagerStatsRequiresManagerRole(t *testing.T) {
	repo := newFakeTicketRepo(nil)
	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, nil)

	_, err := svc.ManagerStats(context.Background(), techUser, repository.Window{})
	assert.True(t, apperrorsIsCode(err, "FORBIDDEN"))
}

func TestAdminStatsCountsUnassignedAndUrgent(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))

	seedTicket(t, repo, "Ouvert", nil)
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
		tk.Assignee = &domain.UserRef{ID: techUser.ID, Name: techUser.Name}
	})
	// Urgent matches the exact priority label, not the level scheme.
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
		tk.Priority = domain.Priority{ID: "prio-u", Label: "Urgent", Level: 1}
	})
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) {
		tk.Priority = domain.Priority{ID: "prio-1", Label: "P1 - Urgent", Level: 1}
	})

	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	stats, err := svc.AdminStats(context.Background(), adminUser)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.UnassignedCount)
	assert.Equal(t, 1, stats.UrgentCount)

	_, err = svc.AdminStats(context.Background(), manager)
	assert.True(t, apperrorsIsCode(err, "FORBIDDEN"))
}

func TestTicketVolumeOverTimeZeroFillsDays(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))

	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) { tk.CreatedAt = now })
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) { tk.CreatedAt = now })
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) { tk.CreatedAt = now.AddDate(0, 0, -2) })

	from := now.AddDate(0, 0, -6)
	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	points, err := svc.TicketVolumeOverTime(context.Background(), manager, repository.Window{From: &from})
	require.NoError(t, err)
	require.Len(t, points, 7)

	assert.Equal(t, "2024-03-10", points[6].Date)
	assert.Equal(t, 2, points[6].Count)
	assert.Equal(t, 1, points[4].Count)
	assert.Equal(t, 0, points[0].Count)
}

func TestTicketVolumeDefaultsToThirtyDays(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	seedTicket(t, repo, "Ouvert", func(tk *domain.Ticket) { tk.CreatedAt = now })

	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	points, err := svc.TicketVolumeOverTime(context.Background(), manager, repository.Window{})
	require.NoError(t, err)
	require.Len(t, points, 30)
	assert.Equal(t, "2024-02-10", points[0].Date)
	assert.Equal(t, 1, points[29].Count)
}

func TestTicketVolumeRejectsInvertedWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))

	from := now
	to := now.AddDate(0, 0, -3)
	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	_, err := svc.TicketVolumeOverTime(context.Background(), manager, repository.Window{From: &from, To: &to})
	assert.True(t, apperrorsIsCode(err, "VALIDATION_FAILED"))
}

func TestStatusDistributionCountsRawLabels(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	seedTicket(t, repo, "Ouvert", nil)
	seedTicket(t, repo, "Ouvert", nil)
	seedTicket(t, repo, "Fermé", nil)

	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	slices, err := svc.StatusDistribution(context.Background(), manager, repository.Window{})
	require.NoError(t, err)

	require.Len(t, slices, 2)
	assert.Equal(t, StatusSlice{Label: "Ouvert", Count: 2}, slices[0])
	assert.Equal(t, StatusSlice{Label: "Fermé", Count: 1}, slices[1])
}

func TestStatusDistributionHonorsWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo(fixedClock(now))
	seedTicket(t, repo, "Ouvert", nil)
	seedTicket(t, repo, "Fermé", func(tk *domain.Ticket) {
		tk.CreatedAt = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	})

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := NewStatsService(testLifecycleConfig(), repo, nil, nil, fixedClock(now))
	slices, err := svc.StatusDistribution(context.Background(), manager, repository.Window{From: &from})
	require.NoError(t, err)

	require.Len(t, slices, 1)
	assert.Equal(t, StatusSlice{Label: "Ouvert", Count: 1}, slices[0])
}
