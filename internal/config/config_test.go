package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, map[int]int{1: 4, 2: 8, 3: 24, 4: 72}, cfg.Lifecycle.SLAHoursByLevel)
	assert.Equal(t, 48, cfg.Lifecycle.DefaultSLAHours)
	assert.Equal(t, []string{"Ouvert", "Open"}, cfg.Lifecycle.OpenLabels)
	assert.Equal(t, []string{"En cours", "In progress"}, cfg.Lifecycle.InProgressLabels)
	assert.Equal(t, []string{"Résolu", "Resolved"}, cfg.Lifecycle.ResolvedLabels)
	assert.Equal(t, []string{"Fermé", "Closed"}, cfg.Lifecycle.ClosedLabels)
	assert.Equal(t, "Urgent", cfg.Lifecycle.UrgentPriorityLabel)
	assert.Equal(t, "0 6 1 * *", cfg.Report.CronSpec)
}

func TestLoadParsesSLAOverride(t *testing.T) {
	t.Setenv("SLA_HOURS_BY_LEVEL", "1:2, 5:120")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 2, 5: 120}, cfg.Lifecycle.SLAHoursByLevel)
}

func TestLoadRejectsMalformedSLA(t *testing.T) {
	t.Setenv("SLA_HOURS_BY_LEVEL", "1=4")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsEmptyLabelSets(t *testing.T) {
	t.Setenv("STATUS_OPEN_LABELS", " , ")
	_, err := Load()
	assert.Error(t, err)
}

func TestParseLevelHours(t *testing.T) {
	parsed, err := parseLevelHours("1:4,2:8")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 4, 2: 8}, parsed)

	_, err = parseLevelHours("a:b")
	assert.Error(t, err)

	parsed, err = parseLevelHours("")
	require.NoError(t, err)
	assert.Empty(t, parsed)
}
