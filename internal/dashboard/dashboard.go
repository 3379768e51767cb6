// Package dashboard turns a filtered set of sessions into the summary,
// per-activity-type and trend views. Everything here is pure: sessions are
// fetched elsewhere, "now" is passed in, and live sessions count toward
// in-progress duration because EffectiveDuration treats now as their end.
package dashboard

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"progressPalAPI/internal/activitytype"
	"progressPalAPI/internal/apperror"
	"progressPalAPI/internal/session"
)

type TopActivityTypeByTime struct {
	ActivityTypeID       uuid.UUID `json:"activityTypeId"`
	ActivityTypeName     string    `json:"activityTypeName"`
	TotalDurationSeconds int64     `json:"totalDurationSeconds"`
}

type Summary struct {
	TotalSessions          int64                   `json:"totalSessions"`
	TotalDurationSeconds   int64                   `json:"totalDurationSeconds"`
	ActiveDays             int64                   `json:"activeDays"`
	TopActivityTypesByTime []TopActivityTypeByTime `json:"topActivityTypesByTime"`
}

type ActivityTypeRow struct {
	ActivityTypeID       uuid.UUID `json:"activityTypeId"`
	Name                 string    `json:"name"`
	TotalDurationSeconds int64     `json:"totalDurationSeconds"`
	TotalSessions        int64     `json:"totalSessions"`
	TotalMetricValue     *float64  `json:"totalMetricValue"`
	MetricLabel          *string   `json:"metricLabel"`
}

type DurationTrendPoint struct {
	BucketStart          string `json:"bucketStart"`
	TotalDurationSeconds int64  `json:"totalDurationSeconds"`
}

type MetricTrendPoint struct {
	BucketStart      string  `json:"bucketStart"`
	TotalMetricValue float64 `json:"totalMetricValue"`
}

type Trends struct {
	Bucket               TrendBucket          `json:"bucket"`
	DurationSeries       []DurationTrendPoint `json:"durationSeries"`
	MetricActivityTypeID *uuid.UUID           `json:"metricActivityTypeId"`
	MetricLabel          *string              `json:"metricLabel"`
	MetricSeries         []MetricTrendPoint   `json:"metricSeries"`
}

type TrendBucket string

const (
	BucketDay  TrendBucket = "DAY"
	BucketWeek TrendBucket = "WEEK"
)

func ParseTrendBucket(raw string) (TrendBucket, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperror.BadRequest("bucket is required (DAY or WEEK)")
	}
	switch TrendBucket(strings.ToUpper(trimmed)) {
	case BucketDay:
		return BucketDay, nil
	case BucketWeek:
		return BucketWeek, nil
	default:
		return "", apperror.BadRequest("Invalid bucket. Use DAY or WEEK")
	}
}

// BuildSummary computes the headline numbers plus the top 3 activity types by
// summed effective duration. Ties break by type name, then type id.
func BuildSummary(sessions []*session.Session, typeNames map[uuid.UUID]string, now time.Time) *Summary {
	var totalDuration int64
	activeDays := make(map[string]struct{})
	durationByType := make(map[uuid.UUID]int64)

	for _, s := range sessions {
		d := s.EffectiveDuration(now)
		totalDuration += d
		activeDays[s.StartedAt.UTC().Format("2006-01-02")] = struct{}{}
		durationByType[s.ActivityTypeID] += d
	}

	top := make([]TopActivityTypeByTime, 0, len(durationByType))
	for id, d := range durationByType {
		top = append(top, TopActivityTypeByTime{
			ActivityTypeID:       id,
			ActivityTypeName:     typeNames[id],
			TotalDurationSeconds: d,
		})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].TotalDurationSeconds != top[j].TotalDurationSeconds {
			return top[i].TotalDurationSeconds > top[j].TotalDurationSeconds
		}
		if top[i].ActivityTypeName != top[j].ActivityTypeName {
			return top[i].ActivityTypeName < top[j].ActivityTypeName
		}
		return top[i].ActivityTypeID.String() < top[j].ActivityTypeID.String()
	})
	if len(top) > 3 {
		top = top[:3]
	}

	return &Summary{
		TotalSessions:          int64(len(sessions)),
		TotalDurationSeconds:   totalDuration,
		ActiveDays:             int64(len(activeDays)),
		TopActivityTypesByTime: top,
	}
}

// BuildByActivityType emits one row per activity type present in the session
// set. Metric totals only exist for metric-bearing types; NONE-metric types
// keep both totalMetricValue and metricLabel null.
func BuildByActivityType(sessions []*session.Session, types map[uuid.UUID]*activitytype.ActivityType, now time.Time) []ActivityTypeRow {
	rowsByType := make(map[uuid.UUID]*ActivityTypeRow)

	for _, s := range sessions {
		row, ok := rowsByType[s.ActivityTypeID]
		if !ok {
			row = &ActivityTypeRow{ActivityTypeID: s.ActivityTypeID}
			if t := types[s.ActivityTypeID]; t != nil {
				row.Name = t.Name
				if t.HasMetric() {
					zero := 0.0
					row.TotalMetricValue = &zero
					row.MetricLabel = t.MetricLabel
				}
			}
			rowsByType[s.ActivityTypeID] = row
		}

		row.TotalSessions++
		row.TotalDurationSeconds += s.EffectiveDuration(now)
		if row.TotalMetricValue != nil && s.MetricValue != nil {
			*row.TotalMetricValue += *s.MetricValue
		}
	}

	rows := make([]ActivityTypeRow, 0, len(rowsByType))
	for _, row := range rowsByType {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalDurationSeconds != rows[j].TotalDurationSeconds {
			return rows[i].TotalDurationSeconds > rows[j].TotalDurationSeconds
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ActivityTypeID.String() < rows[j].ActivityTypeID.String()
	})
	return rows
}

// BuildTrends buckets every session's effective duration by DAY or WEEK of
// its start date. When metricType is a metric-bearing type, a second series
// sums the final metric values of that type's sessions per bucket; sessions
// without a final value are excluded. A NONE-metric target is not an error,
// the metric outputs just stay null.
func BuildTrends(sessions []*session.Session, bucket TrendBucket, metricType *activitytype.ActivityType, now time.Time) *Trends {
	durationByBucket := make(map[string]int64)
	for _, s := range sessions {
		durationByBucket[bucketStart(s.StartedAt, bucket)] += s.EffectiveDuration(now)
	}

	trends := &Trends{
		Bucket:         bucket,
		DurationSeries: make([]DurationTrendPoint, 0, len(durationByBucket)),
	}
	for b, d := range durationByBucket {
		trends.DurationSeries = append(trends.DurationSeries, DurationTrendPoint{BucketStart: b, TotalDurationSeconds: d})
	}
	sort.Slice(trends.DurationSeries, func(i, j int) bool {
		return trends.DurationSeries[i].BucketStart < trends.DurationSeries[j].BucketStart
	})

	if metricType == nil || !metricType.HasMetric() {
		return trends
	}

	trends.MetricActivityTypeID = &metricType.ID
	trends.MetricLabel = metricType.MetricLabel

	metricByBucket := make(map[string]float64)
	for _, s := range sessions {
		if s.ActivityTypeID != metricType.ID || s.MetricValue == nil {
			continue
		}
		metricByBucket[bucketStart(s.StartedAt, bucket)] += *s.MetricValue
	}
	trends.MetricSeries = make([]MetricTrendPoint, 0, len(metricByBucket))
	for b, v := range metricByBucket {
		trends.MetricSeries = append(trends.MetricSeries, MetricTrendPoint{BucketStart: b, TotalMetricValue: v})
	}
	sort.Slice(trends.MetricSeries, func(i, j int) bool {
		return trends.MetricSeries[i].BucketStart < trends.MetricSeries[j].BucketStart
	})
	return trends
}

// bucketStart rolls an instant to its UTC calendar date, and for WEEK buckets
// further back to the most recent Monday.
func bucketStart(t time.Time, bucket TrendBucket) string {
	day := t.UTC().Truncate(24 * time.Hour)
	if bucket == BucketWeek {
		// Monday=0 ... Sunday=6
		back := (int(day.Weekday()) + 6) % 7
		day = day.AddDate(0, 0, -back)
	}
	return day.Format("2006-01-02")
}
