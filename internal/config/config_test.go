// internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 14, cfg.Circulation.LoanPeriodDays)
	assert.Equal(t, 0.25, cfg.Circulation.DailyFineRate)
	assert.Equal(t, 3, cfg.Circulation.MaxOpenLoans)
	assert.Equal(t, 0.0, cfg.Circulation.FineThreshold)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BIBLIO_LISTEN_ADDR", ":9090")
	t.Setenv("BIBLIO_MAX_OPEN_LOANS", "5")
	t.Setenv("BIBLIO_DAILY_FINE_RATE", "0.10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.Circulation.MaxOpenLoans)
	assert.Equal(t, 0.10, cfg.Circulation.DailyFineRate)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("BIBLIO_LOAN_PERIOD_DAYS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNegativeFineRate(t *testing.T) {
	t.Setenv("BIBLIO_DAILY_FINE_RATE", "-0.25")
	_, err := Load()
	assert.Error(t, err)
}
