package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progressPalAPI/internal/activitytype"
	"progressPalAPI/internal/apperror"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newRunningSession(startedAt time.Time) *Session {
	return &Session{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		ActivityTypeID: uuid.New(),
		StartedAt:      startedAt,
		Visibility:     VisibilityPrivate,
		GoalType:       GoalNone,
	}
}

func TestEffectiveDurationRunning(t *testing.T) {
	s := newRunningSession(baseTime)

	assert.Equal(t, int64(0), s.EffectiveDuration(baseTime))
	assert.Equal(t, int64(600), s.EffectiveDuration(baseTime.Add(10*time.Minute)))
}

func TestEffectiveDurationWithPauses(t *testing.T) {
	// Start at T, pause at T+10m, resume at T+15m, stop at T+33m30s.
	// Active time: 10m before the pause plus 18m30s after = 1710s.
	s := newRunningSession(baseTime)

	require.NoError(t, s.Pause(baseTime.Add(10*time.Minute)))
	require.NoError(t, s.Resume(baseTime.Add(15*time.Minute)))
	require.NoError(t, s.Stop(baseTime.Add(33*time.Minute+30*time.Second), nil, activitytype.MetricNone))

	assert.Equal(t, int64(1710), s.EffectiveDuration(baseTime.Add(time.Hour)))
}

func TestEffectiveDurationOpenPause(t *testing.T) {
	// While paused the duration is frozen at the pre-pause active time.
	s := newRunningSession(baseTime)
	require.NoError(t, s.Pause(baseTime.Add(10*time.Minute)))

	assert.Equal(t, int64(600), s.EffectiveDuration(baseTime.Add(11*time.Minute)))
	assert.Equal(t, int64(600), s.EffectiveDuration(baseTime.Add(2*time.Hour)))
}

func TestEffectiveDurationStableAfterStop(t *testing.T) {
	s := newRunningSession(baseTime)
	require.NoError(t, s.Stop(baseTime.Add(20*time.Minute), nil, activitytype.MetricNone))

	want := s.EffectiveDuration(baseTime.Add(20 * time.Minute))
	assert.Equal(t, want, s.EffectiveDuration(baseTime.Add(48*time.Hour)))
}

func TestEffectiveDurationNeverNegative(t *testing.T) {
	s := newRunningSession(baseTime)

	// Clock read before the start.
	assert.Equal(t, int64(0), s.EffectiveDuration(baseTime.Add(-time.Minute)))

	// Accrued pause exceeding raw elapsed still clamps to zero.
	s.PausedDurationSeconds = 9999
	assert.Equal(t, int64(0), s.EffectiveDuration(baseTime.Add(time.Minute)))
}

func TestEffectiveDurationMonotonicWhileRunning(t *testing.T) {
	s := newRunningSession(baseTime)
	require.NoError(t, s.Pause(baseTime.Add(5*time.Minute)))
	require.NoError(t, s.Resume(baseTime.Add(7*time.Minute)))

	prev := int64(-1)
	for i := 0; i <= 20; i++ {
		now := baseTime.Add(time.Duration(i) * time.Minute)
		d := s.EffectiveDuration(now)
		assert.GreaterOrEqual(t, d, prev, "duration moved backwards at +%dm", i)
		prev = d
	}
}

func TestPauseTransitions(t *testing.T) {
	s := newRunningSession(baseTime)

	require.NoError(t, s.Pause(baseTime.Add(time.Minute)))
	assert.True(t, s.IsPaused())

	err := s.Pause(baseTime.Add(2 * time.Minute))
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.EqualError(t, err, "Session is already paused")
}

func TestResumeRequiresPaused(t *testing.T) {
	s := newRunningSession(baseTime)

	err := s.Resume(baseTime.Add(time.Minute))
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.EqualError(t, err, "Session is not paused")
}

func TestEndedSessionRejectsTransitions(t *testing.T) {
	s := newRunningSession(baseTime)
	require.NoError(t, s.Stop(baseTime.Add(time.Minute), nil, activitytype.MetricNone))

	for name, err := range map[string]error{
		"pause":  s.Pause(baseTime.Add(2 * time.Minute)),
		"resume": s.Resume(baseTime.Add(2 * time.Minute)),
		"stop":   s.Stop(baseTime.Add(2*time.Minute), nil, activitytype.MetricNone),
	} {
		require.Error(t, err, name)
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err), name)
		assert.EqualError(t, err, "Session already stopped", name)
	}
}

func TestStopDoesNotCountOpenPause(t *testing.T) {
	s := newRunningSession(baseTime)
	require.NoError(t, s.Pause(baseTime.Add(10*time.Minute)))

	// Stopped while paused: the open pause interval up to the stop moment is
	// excluded from the final duration.
	require.NoError(t, s.Stop(baseTime.Add(25*time.Minute), nil, activitytype.MetricNone))

	assert.Nil(t, s.PausedAt)
	assert.Equal(t, int64(15*60), s.PausedDurationSeconds)
	assert.Equal(t, int64(600), s.EffectiveDuration(baseTime.Add(time.Hour)))
}

func TestStopFallsBackToRunningMetric(t *testing.T) {
	s := newRunningSession(baseTime)
	running := 42.0
	s.MetricCurrentValue = &running

	require.NoError(t, s.Stop(baseTime.Add(time.Minute), nil, activitytype.MetricInteger))

	require.NotNil(t, s.MetricValue)
	assert.Equal(t, 42.0, *s.MetricValue)
}

func TestStopExplicitMetricWins(t *testing.T) {
	s := newRunningSession(baseTime)
	running := 42.0
	s.MetricCurrentValue = &running
	final := 50.0

	require.NoError(t, s.Stop(baseTime.Add(time.Minute), &final, activitytype.MetricInteger))

	require.NotNil(t, s.MetricValue)
	assert.Equal(t, 50.0, *s.MetricValue)
}

func TestStopRejectsInvalidMetric(t *testing.T) {
	s := newRunningSession(baseTime)
	bad := 3.5

	err := s.Stop(baseTime.Add(time.Minute), &bad, activitytype.MetricInteger)
	require.Error(t, err)
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
	assert.True(t, s.IsLive(), "a failed stop must leave the session running")
}

func TestApplyProgress(t *testing.T) {
	s := newRunningSession(baseTime)
	v := 12.0

	require.NoError(t, s.ApplyProgress(activitytype.MetricInteger, &v))
	require.NotNil(t, s.MetricCurrentValue)
	assert.Equal(t, 12.0, *s.MetricCurrentValue)
}

func TestApplyProgressRequiresValue(t *testing.T) {
	s := newRunningSession(baseTime)

	err := s.ApplyProgress(activitytype.MetricInteger, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
	assert.EqualError(t, err, "metricCurrentValue is required")
}

func TestApplyProgressRejectedWhilePaused(t *testing.T) {
	s := newRunningSession(baseTime)
	require.NoError(t, s.Pause(baseTime.Add(time.Minute)))
	v := 5.0

	err := s.ApplyProgress(activitytype.MetricInteger, &v)
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestParseVisibility(t *testing.T) {
	v, err := ParseVisibility("public")
	require.NoError(t, err)
	assert.Equal(t, VisibilityPublic, v)

	v, err = ParseVisibility("")
	require.NoError(t, err)
	assert.Equal(t, VisibilityPrivate, v)

	_, err = ParseVisibility("FRIENDS")
	require.Error(t, err)
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
}
