package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progressPalAPI/internal/activitytype"
	"progressPalAPI/internal/apperror"
)

func TestTimeGoalDoneAndAchieved(t *testing.T) {
	// 90 effective minutes against a 90 minute target.
	s := newRunningSession(baseTime)
	target := 90.0
	require.NoError(t, s.ApplyGoal(GoalTime, &target, nil, activitytype.MetricNone))
	require.NoError(t, s.Stop(baseTime.Add(90*time.Minute), nil, activitytype.MetricNone))

	now := baseTime.Add(2 * time.Hour)
	done := s.GoalDone(now)
	require.NotNil(t, done)
	assert.Equal(t, 90.0, *done)

	achieved := s.GoalAchieved(now)
	require.NotNil(t, achieved)
	assert.True(t, *achieved)
}

func TestTimeGoalDoneRoundsHalfUp(t *testing.T) {
	s := newRunningSession(baseTime)
	target := 1.0
	require.NoError(t, s.ApplyGoal(GoalTime, &target, nil, activitytype.MetricNone))

	// 45s = 0.75 minutes exactly.
	done := s.GoalDone(baseTime.Add(45 * time.Second))
	require.NotNil(t, done)
	assert.Equal(t, 0.75, *done)

	// 1710s / 60 = 28.5 exactly; 100s / 60 = 1.666... rounds to 1.67.
	done = s.GoalDone(baseTime.Add(100 * time.Second))
	require.NotNil(t, done)
	assert.Equal(t, 1.67, *done)
}

func TestMetricGoalPrefersRunningValue(t *testing.T) {
	s := newRunningSession(baseTime)
	target := 100.0
	require.NoError(t, s.ApplyGoal(GoalMetric, &target, nil, activitytype.MetricInteger))

	running := 60.0
	s.MetricCurrentValue = &running
	final := 80.0
	s.MetricValue = &final

	done := s.GoalDone(baseTime)
	require.NotNil(t, done)
	assert.Equal(t, 60.0, *done)

	achieved := s.GoalAchieved(baseTime)
	require.NotNil(t, achieved)
	assert.False(t, *achieved)
}

func TestMetricGoalFallsBackToFinalValue(t *testing.T) {
	s := newRunningSession(baseTime)
	target := 50.0
	require.NoError(t, s.ApplyGoal(GoalMetric, &target, nil, activitytype.MetricInteger))
	final := 50.0
	s.MetricValue = &final

	done := s.GoalDone(baseTime)
	require.NotNil(t, done)
	assert.Equal(t, 50.0, *done)

	achieved := s.GoalAchieved(baseTime)
	require.NotNil(t, achieved)
	assert.True(t, *achieved)
}

func TestGoalAchievedNilWithoutProgress(t *testing.T) {
	s := newRunningSession(baseTime)
	target := 10.0
	require.NoError(t, s.ApplyGoal(GoalMetric, &target, nil, activitytype.MetricInteger))

	assert.Nil(t, s.GoalDone(baseTime))
	assert.Nil(t, s.GoalAchieved(baseTime))
}

func TestGoalAchievedNilWithoutGoal(t *testing.T) {
	s := newRunningSession(baseTime)

	assert.Nil(t, s.GoalDone(baseTime))
	assert.Nil(t, s.GoalAchieved(baseTime))
}

func TestApplyGoalValidation(t *testing.T) {
	zero := 0.0
	negative := -5.0
	fractional := 2.5
	valid := 3.0

	tests := []struct {
		name     string
		goalType GoalType
		target   *float64
		kind     activitytype.MetricKind
		wantMsg  string
	}{
		{"missing target", GoalTime, nil, activitytype.MetricNone, "goalTarget must be greater than 0"},
		{"zero target", GoalTime, &zero, activitytype.MetricNone, "goalTarget must be greater than 0"},
		{"negative target", GoalMetric, &negative, activitytype.MetricInteger, "goalTarget must be greater than 0"},
		{"metric goal without metric", GoalMetric, &valid, activitytype.MetricNone, "A METRIC goal requires an activity type with a metric"},
		{"fractional integer target", GoalMetric, &fractional, activitytype.MetricInteger, "goalTarget must be a whole number for INTEGER metrics"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newRunningSession(baseTime)
			err := s.ApplyGoal(tc.goalType, tc.target, nil, tc.kind)
			require.Error(t, err)
			assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
			assert.EqualError(t, err, tc.wantMsg)
			assert.Equal(t, GoalNone, s.GoalType, "failed goal update must not change the session")
			assert.Nil(t, s.GoalTarget)
		})
	}
}

func TestApplyGoalDecimalTargetForMetric(t *testing.T) {
	s := newRunningSession(baseTime)
	target := 2.5

	require.NoError(t, s.ApplyGoal(GoalMetric, &target, nil, activitytype.MetricDecimal))
	assert.Equal(t, GoalMetric, s.GoalType)
	require.NotNil(t, s.GoalTarget)
	assert.Equal(t, 2.5, *s.GoalTarget)
}

func TestApplyGoalNoneClears(t *testing.T) {
	s := newRunningSession(baseTime)
	target := 30.0
	require.NoError(t, s.ApplyGoal(GoalTime, &target, nil, activitytype.MetricNone))

	require.NoError(t, s.ApplyGoal(GoalNone, nil, nil, activitytype.MetricNone))
	assert.Equal(t, GoalNone, s.GoalType)
	assert.Nil(t, s.GoalTarget)
}

func TestApplyGoalTrimsNote(t *testing.T) {
	s := newRunningSession(baseTime)
	target := 30.0
	note := "  finish chapter 4  "
	require.NoError(t, s.ApplyGoal(GoalTime, &target, &note, activitytype.MetricNone))
	require.NotNil(t, s.GoalNote)
	assert.Equal(t, "finish chapter 4", *s.GoalNote)

	blank := "   "
	require.NoError(t, s.ApplyGoal(GoalTime, &target, &blank, activitytype.MetricNone))
	assert.Nil(t, s.GoalNote)
}

func TestValidateMetricValue(t *testing.T) {
	negative := -1.0
	fractional := 0.5
	whole := 3.0

	assert.NoError(t, ValidateMetricValue(activitytype.MetricNone, nil))
	assert.NoError(t, ValidateMetricValue(activitytype.MetricInteger, &whole))
	assert.NoError(t, ValidateMetricValue(activitytype.MetricDecimal, &fractional))

	err := ValidateMetricValue(activitytype.MetricNone, &whole)
	require.Error(t, err)
	assert.EqualError(t, err, "This activity type does not accept a metric value")

	err = ValidateMetricValue(activitytype.MetricDecimal, &negative)
	require.Error(t, err)
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))

	err = ValidateMetricValue(activitytype.MetricInteger, &fractional)
	require.Error(t, err)
	assert.EqualError(t, err, "metricValue must be a whole number for INTEGER metrics")
}

func TestParseGoalType(t *testing.T) {
	gt, err := ParseGoalType("")
	require.NoError(t, err)
	assert.Equal(t, GoalNone, gt)

	gt, err = ParseGoalType("time")
	require.NoError(t, err)
	assert.Equal(t, GoalTime, gt)

	_, err = ParseGoalType("DISTANCE")
	require.Error(t, err)
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
}
