package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpdesk-go/helpdesk/internal/config"
	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

const managerStatsCacheKey = "helpdesk:stats:manager"

// ManagerStats is the manager dashboard snapshot. Status counters
// bucket by the configured label sets; a ticket whose label matches no
// set contributes to none of the four, but still counts in the total.
type ManagerStats struct {
	TotalCount         int              `json:"total_count"`
	OpenCount          int              `json:"open_count"`
	InProgressCount    int              `json:"in_progress_count"`
	ResolvedCount      int              `json:"resolved_count"`
	ClosedCount        int              `json:"closed_count"`
	UnassignedCount    int              `json:"unassigned_count"`
	LateCount          int              `json:"late_count"`
	IncomingCount      int              `json:"incoming_count"`
	AvgResolutionHours *float64         `json:"avg_resolution_hours"`
	PerTechnician      []TechnicianLoad `json:"per_technician"`
}

// TechnicianLoad counts active assigned tickets per technician.
type TechnicianLoad struct {
	TechnicianID string `json:"technician_id"`
	Name         string `json:"name"`
	Count        int    `json:"count"`
}

// AdminStats extends the dashboard with the admin-only counters.
type AdminStats struct {
	UnassignedCount int `json:"unassigned_count"`
	UrgentCount     int `json:"urgent_count"`
}

// VolumePoint is one day of created-ticket volume.
type VolumePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// StatusSlice is one wedge of the status distribution chart.
type StatusSlice struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// StatsService computes dashboard aggregates over the active working
// set. Aggregation happens in process rather than in SQL so every
// counter shares one consistent snapshot of the data.
type StatsService struct {
	tickets repository.TicketRepository
	cfg     config.LifecycleConfig
	cache   *redis.Client
	logger  *zap.Logger
	clock   func() time.Time
}

// NewStatsService constructs the service. A nil cache disables the
// dashboard snapshot cache.
func NewStatsService(cfg config.LifecycleConfig, tickets repository.TicketRepository, cache *redis.Client, logger *zap.Logger, clock func() time.Time) *StatsService {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		tickets: tickets,
		cfg:     cfg,
		cache:   cache,
		logger:  logger,
		clock:   clock,
	}
}

// ManagerStats returns the manager dashboard counters over tickets
// created in the window; an empty window covers everything.
// MANAGER-and-above. The unwindowed snapshot is cached briefly; cache
// failures degrade to a fresh computation.
func (s *StatsService) ManagerStats(ctx context.Context, actor *domain.User, window repository.Window) (*ManagerStats, error) {
	if err := requireRole(actor, domain.RoleManager); err != nil {
		return nil, err
	}

	cacheable := window.From == nil && window.To == nil
	if cacheable {
		if cached := s.cachedManagerStats(ctx); cached != nil {
			return cached, nil
		}
	}

	tickets, err := s.workingSet(ctx, window)
	if err != nil {
		return nil, err
	}
	stats := s.computeManagerStats(tickets, s.clock())
	if cacheable {
		s.storeManagerStats(ctx, stats)
	}
	return stats, nil
}

// AdminStats returns the admin-only counters. ADMIN only.
func (s *StatsService) AdminStats(ctx context.Context, actor *domain.User) (*AdminStats, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	tickets, err := s.workingSet(ctx, repository.Window{})
	if err != nil {
		return nil, err
	}

	stats := &AdminStats{}
	for i := range tickets {
		t := &tickets[i]
		if !t.IsAssigned() {
			stats.UnassignedCount++
		}
		if t.Priority.Label == s.cfg.UrgentPriorityLabel {
			stats.UrgentCount++
		}
	}
	return stats, nil
}

// TicketVolumeOverTime buckets created tickets per day across the
// window, zero-filled so charts render a continuous series. An empty
// window covers the last 30 days ending today.
func (s *StatsService) TicketVolumeOverTime(ctx context.Context, actor *domain.User, window repository.Window) ([]VolumePoint, error) {
	if err := requireRole(actor, domain.RoleManager); err != nil {
		return nil, err
	}

	to := s.clock()
	if window.To != nil {
		to = *window.To
	}
	from := to.AddDate(0, 0, -29)
	if window.From != nil {
		from = *window.From
	}
	fromDay := from.Truncate(24 * time.Hour)
	toDay := to.Truncate(24 * time.Hour)
	if fromDay.After(toDay) {
		return nil, apperrors.NewValidationError("start date must not be after end date", nil)
	}
	days := int(toDay.Sub(fromDay).Hours()/24) + 1

	tickets, err := s.tickets.ListActive(ctx, repository.Window{From: &fromDay, To: window.To})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	byDay := make(map[string]int, days)
	for i := range tickets {
		byDay[tickets[i].CreatedAt.Format("2006-01-02")]++
	}

	points := make([]VolumePoint, 0, days)
	for d := 0; d < days; d++ {
		day := fromDay.AddDate(0, 0, d).Format("2006-01-02")
		points = append(points, VolumePoint{Date: day, Count: byDay[day]})
	}
	return points, nil
}

// StatusDistribution counts active tickets per raw status label over
// tickets created in the window.
func (s *StatsService) StatusDistribution(ctx context.Context, actor *domain.User, window repository.Window) ([]StatusSlice, error) {
	if err := requireRole(actor, domain.RoleManager); err != nil {
		return nil, err
	}
	tickets, err := s.workingSet(ctx, window)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for i := range tickets {
		counts[tickets[i].Status.Label]++
	}
	slices := make([]StatusSlice, 0, len(counts))
	for label, count := range counts {
		slices = append(slices, StatusSlice{Label: label, Count: count})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Count != slices[j].Count {
			return slices[i].Count > slices[j].Count
		}
		return slices[i].Label < slices[j].Label
	})
	return slices, nil
}

// computeManagerStats derives every counter from one ticket snapshot.
func (s *StatsService) computeManagerStats(tickets []domain.Ticket, now time.Time) *ManagerStats {
	open := domain.NewLabelSet(s.cfg.OpenLabels...)
	inProgress := domain.NewLabelSet(s.cfg.InProgressLabels...)
	resolved := domain.NewLabelSet(s.cfg.ResolvedLabels...)
	closed := domain.NewLabelSet(s.cfg.ClosedLabels...)
	done := resolved.Union(closed)
	incomingSince := now.AddDate(0, 0, -s.cfg.IncomingWindowDays)

	stats := &ManagerStats{}
	var resolutionTotal time.Duration
	var resolutionCount int
	loads := make(map[string]*TechnicianLoad)

	for i := range tickets {
		t := &tickets[i]
		stats.TotalCount++
		if !t.IsAssigned() {
			stats.UnassignedCount++
		}
		label := t.Status.Label
		switch {
		case open.Contains(label):
			stats.OpenCount++
		case inProgress.Contains(label):
			stats.InProgressCount++
		case resolved.Contains(label):
			stats.ResolvedCount++
		case closed.Contains(label):
			stats.ClosedCount++
		}
		if t.IsLate(now, done) {
			stats.LateCount++
		}
		if !t.CreatedAt.Before(incomingSince) {
			stats.IncomingCount++
		}
		if done.Contains(label) {
			resolutionTotal += t.UpdatedAt.Sub(t.CreatedAt)
			resolutionCount++
		}
		if t.Assignee != nil {
			load, ok := loads[t.Assignee.ID]
			if !ok {
				load = &TechnicianLoad{TechnicianID: t.Assignee.ID, Name: t.Assignee.Name}
				loads[t.Assignee.ID] = load
			}
			load.Count++
		}
	}

	if resolutionCount > 0 {
		avg := roundTenth(resolutionTotal.Hours() / float64(resolutionCount))
		stats.AvgResolutionHours = &avg
	}

	stats.PerTechnician = make([]TechnicianLoad, 0, len(loads))
	for _, load := range loads {
		stats.PerTechnician = append(stats.PerTechnician, *load)
	}
	sort.Slice(stats.PerTechnician, func(i, j int) bool {
		if stats.PerTechnician[i].Count != stats.PerTechnician[j].Count {
			return stats.PerTechnician[i].Count > stats.PerTechnician[j].Count
		}
		return stats.PerTechnician[i].Name < stats.PerTechnician[j].Name
	})
	return stats
}

func (s *StatsService) workingSet(ctx context.Context, window repository.Window) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListActive(ctx, window)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// roundTenth rounds to one decimal, the precision dashboards render.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func (s *StatsService) cachedManagerStats(ctx context.Context) *ManagerStats {
	if s.cache == nil || s.cfg.StatsCacheTTL() <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, managerStatsCacheKey).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
		return nil
	}
	var stats ManagerStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		s.logger.Warn("stats cache entry malformed", zap.Error(err))
		return nil
	}
	return &stats
}

func (s *StatsService) storeManagerStats(ctx context.Context, stats *ManagerStats) {
	if s.cache == nil || s.cfg.StatsCacheTTL() <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, managerStatsCacheKey, raw, s.cfg.StatsCacheTTL()).Err(); err != nil {
		s.logger.Warn("stats cache write failed", zap.Error(err))
	}
}
