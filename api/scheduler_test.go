package api_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernbank/savings-engine/api"
	"github.com/fernbank/savings-engine/budget"
	"github.com/fernbank/savings-engine/schedule"
	"github.com/fernbank/savings-engine/store/sqlite"
)

func newSchedulerHarness(t *testing.T) (*api.Handler, *api.Scheduler, *sqlite.Store) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := api.NewHandler(st)
	return h, api.NewScheduler(h), st
}

func saveModel(t *testing.T, st *sqlite.Store, start, now schedule.Date) *budget.Model {
	t.Helper()

	m, err := budget.NewModel("fund", budget.FixedValue(decimal.NewFromInt(1)),
		schedule.Daily(2), start, nil, now)
	require.NoError(t, err)
	require.NoError(t, st.SaveModel(context.Background(), m))
	return m
}

func TestScheduler_RollsLeadTimeForward(t *testing.T) {
	h, s, st := newSchedulerHarness(t)

	// GIVEN a model created yesterday with a start date still ahead
	created := saveModel(t, st, schedule.NewDate(2000, 4, 5), schedule.NewDate(2000, 4, 1))
	h.Clock = func() schedule.Date { return schedule.NewDate(2000, 4, 2) }

	// WHEN the scheduler runs
	s.RunNow()

	// THEN the stored chain is rebuilt against the new day
	got, err := st.GetModel(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.NewDate(2000, 4, 2), got.CalculationDate)
	require.NotEmpty(t, got.Segments)
	assert.Equal(t, schedule.NewDate(2000, 4, 2), got.Segments[0].Start)
}

func TestScheduler_SkipsCurrentAndStartedModels(t *testing.T) {
	h, s, st := newSchedulerHarness(t)

	current := saveModel(t, st, schedule.NewDate(2000, 4, 5), schedule.NewDate(2000, 4, 2))
	started := saveModel(t, st, schedule.NewDate(2000, 4, 1), schedule.NewDate(2000, 4, 1))
	h.Clock = func() schedule.Date { return schedule.NewDate(2000, 4, 2) }

	s.RunNow()

	got, err := st.GetModel(context.Background(), current.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.NewDate(2000, 4, 2), got.CalculationDate)
	assert.Equal(t, current.Segments[0].Start, got.Segments[0].Start)

	got, err = st.GetModel(context.Background(), started.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.NewDate(2000, 4, 1), got.CalculationDate)
}
