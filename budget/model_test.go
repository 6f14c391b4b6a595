package budget_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernbank/savings-engine/budget"
	"github.com/fernbank/savings-engine/schedule"
)

func date(y int, m time.Month, d int) schedule.Date {
	return schedule.NewDate(y, m, d)
}

func dp(d schedule.Date) *schedule.Date { return &d }

func one() decimal.Decimal { return decimal.NewFromInt(1) }

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

type wantSegment struct {
	regular string
	last    string // empty when the split is exact
	start   schedule.Date
	end     *schedule.Date
	days    int
}

func assertSegments(t *testing.T, want []wantSegment, got []schedule.Contribution) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		g := got[i]
		assert.True(t, dec(t, w.regular).Equal(g.Regular), "segment %d regular: want %s, got %s", i, w.regular, g.Regular)
		if w.last == "" {
			assert.Nil(t, g.Last, "segment %d last", i)
		} else {
			require.NotNil(t, g.Last, "segment %d last", i)
			assert.True(t, dec(t, w.last).Equal(*g.Last), "segment %d last: want %s, got %s", i, w.last, g.Last)
		}
		assert.True(t, w.start.Equal(g.Start), "segment %d start: want %s, got %s", i, w.start, g.Start)
		if w.end == nil {
			assert.Nil(t, g.End, "segment %d end", i)
		} else {
			require.NotNil(t, g.End, "segment %d end", i)
			assert.True(t, w.end.Equal(*g.End), "segment %d end: want %s, got %s", i, w.end, g.End)
		}
		assert.Equal(t, w.days, g.PeriodDays, "segment %d period days", i)
	}
}

// openDailyModel is the shared fixture: a $1 payment every other day from
// April 2nd, open-ended, calculated on April 1st.
func openDailyModel(t *testing.T) *budget.Model {
	t.Helper()
	m, err := budget.NewModel("gym pass", budget.FixedValue(one()), schedule.Daily(2),
		date(2000, time.April, 2), nil, date(2000, time.April, 1))
	require.NoError(t, err)
	return m
}

func TestValue_Fixed(t *testing.T) {
	v := budget.FixedValue(dec(t, "12.50"))

	assert.False(t, v.IsVariable())
	assert.True(t, v.Funded().Equal(dec(t, "12.50")))
	lower, upper := v.Bounds()
	assert.True(t, lower.Equal(upper))
}

func TestValue_Variable(t *testing.T) {
	// GIVEN a transaction known only as a range
	v := budget.VariableValue(dec(t, "40"), dec(t, "55"))

	// THEN the schedule funds the guaranteed lower bound
	assert.True(t, v.IsVariable())
	assert.True(t, v.Funded().Equal(dec(t, "40")))
	lower, upper := v.Bounds()
	assert.True(t, lower.Equal(dec(t, "40")))
	assert.True(t, upper.Equal(dec(t, "55")))
}

func TestNewModel_BuildsChain(t *testing.T) {
	m := openDailyModel(t)

	assert.True(t, m.CalculationDate.Equal(date(2000, time.April, 1)))
	assert.Nil(t, m.Ameliorations)
	assertSegments(t, []wantSegment{
		{regular: "0.5", start: date(2000, time.April, 1), end: dp(date(2000, time.April, 2)), days: 2},
		{
			regular: "0.6666666666666667",
			last:    "0.6666666666666666",
			start:   date(2000, time.April, 3),
			days:    3,
		},
	}, m.Segments)
}

func TestNewModel_ExcessiveDateRange(t *testing.T) {
	now := date(2000, time.January, 1)
	end := now.AddDays(3653) // a day past ten years

	_, err := budget.NewModel("pension top-up", budget.FixedValue(one()), schedule.MonthlyByDate(1, 1),
		now, &end, now)

	assert.ErrorIs(t, err, budget.ErrExcessiveDateRange)
}

func TestNewModel_PropagatesScheduleErrors(t *testing.T) {
	// GIVEN a first payment already in the past
	_, err := budget.NewModel("late start", budget.FixedValue(one()), schedule.Once(),
		date(2000, time.April, 1), nil, date(2000, time.April, 2))

	assert.ErrorIs(t, err, schedule.ErrHistoricalStartDate)
}

func TestModel_Recalculate(t *testing.T) {
	m := openDailyModel(t)
	m.Ameliorations = []schedule.Contribution{{Regular: one(), Start: date(2000, time.April, 5), PeriodDays: 1}}

	// WHEN the chain is rebuilt a day later
	require.NoError(t, m.Recalculate(date(2000, time.April, 2)))

	// THEN the previous chain and ameliorations are replaced wholesale
	assert.True(t, m.CalculationDate.Equal(date(2000, time.April, 2)))
	assert.Nil(t, m.Ameliorations)
	assertSegments(t, []wantSegment{
		{regular: "1", start: date(2000, time.April, 2), end: dp(date(2000, time.April, 2)), days: 1},
		{
			regular: "0.6666666666666667",
			last:    "0.6666666666666666",
			start:   date(2000, time.April, 3),
			days:    3,
		},
	}, m.Segments)
}

func TestModel_RateOn(t *testing.T) {
	m := openDailyModel(t)

	cases := []struct {
		name string
		date schedule.Date
		want string
	}{
		{"before the chain", date(2000, time.March, 31), "0"},
		{"onboarding segment", date(2000, time.April, 1), "0.5"},
		{"steady state regular day", date(2000, time.April, 3), "0.6666666666666667"},
		{"steady state period end", date(2000, time.April, 5), "0.6666666666666666"},
		{"a later period", date(2000, time.April, 7), "0.6666666666666667"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := m.RateOn(tc.date)
			assert.True(t, dec(t, tc.want).Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestModel_RateOn_SumsAmeliorations(t *testing.T) {
	m := openDailyModel(t)
	require.NoError(t, m.Ameliorate(dec(t, "0.5"), date(2000, time.April, 6)))

	// The recovery layer is the only contribution between the cut and its
	// due date.
	got := m.RateOn(date(2000, time.April, 7))
	assert.True(t, dec(t, "0.9166666666666667").Equal(got), "got %s", got)
}

func TestModel_ActiveOn(t *testing.T) {
	end := date(2000, time.April, 4)
	m, err := budget.NewModel("bounded", budget.FixedValue(one()), schedule.Daily(2),
		date(2000, time.April, 2), &end, date(2000, time.April, 1))
	require.NoError(t, err)

	assert.False(t, m.ActiveOn(date(2000, time.March, 31)))
	assert.True(t, m.ActiveOn(date(2000, time.April, 1)))
	assert.True(t, m.ActiveOn(end))
	assert.False(t, m.ActiveOn(end.Next()))
}
