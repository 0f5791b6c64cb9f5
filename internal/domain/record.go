// Package domain defines the record model and completeness rules for the export.
package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNoTrack indicates the provider confirmed no GPS track exists for an activity.
	ErrNoTrack = errors.New("no gps track available for activity")
	// ErrAuthFailed indicates the session could not be established.
	ErrAuthFailed = errors.New("authentication failed")
)

// Record is one exported row: a flat key/value bag whose schema grows as
// enrichment categories are fetched. Values hold the cell representation
// written to the table; the empty string is the universal absent marker.
type Record map[string]string

// Fields is a normalized value set returned by one enrichment category fetch.
type Fields map[string]string

// Base fields delivered by the remote activity listing.
const (
	FieldActivityID     = "activityId"
	FieldActivityName   = "activityName"
	FieldStartTimeLocal = "startTimeLocal"
	FieldDuration       = "duration"
	FieldDistance       = "distance"
	FieldCalories       = "calories"
	FieldAverageHR      = "averageHR"
	FieldMaxHR          = "maxHR"
	FieldHasPolyline    = "hasPolyline"
)

// FieldDate is the primary key of daily health records.
const FieldDate = "date"

// Enrichment fields attached to either record type.
const (
	FieldSleepDuration      = "sleepDuration"
	FieldSleepDeepDuration  = "sleepDeepDuration"
	FieldSleepLightDuration = "sleepLightDuration"
	FieldSleepRemDuration   = "sleepRemDuration"
	FieldSleepAwakeDuration = "sleepAwakeDuration"
	FieldSleepQuality       = "sleepQuality"

	FieldStressAvg            = "stressAvg"
	FieldStressMax            = "stressMax"
	FieldStressRestDuration   = "stressRestDuration"
	FieldStressLowDuration    = "stressLowDuration"
	FieldStressMediumDuration = "stressMediumDuration"
	FieldStressHighDuration   = "stressHighDuration"

	FieldBodyBatteryAvg = "bodyBatteryAvg"
	FieldBodyBatteryMax = "bodyBatteryMax"
	FieldBodyBatteryMin = "bodyBatteryMin"

	FieldRestingHeartRate = "restingHeartRate"
	FieldDailySteps       = "dailySteps"

	FieldTrainingReadinessScore = "trainingReadinessScore"
	FieldTrainingReadiness      = "trainingReadiness"
	FieldTrainingStatus         = "trainingStatus"
	FieldTrainingStatusText     = "trainingStatusText"

	FieldGPSTrackFile = "gpsTrackFile"
)

// TrackAbsent marks an activity whose track download was attempted and the
// provider confirmed nothing exists. It is never re-attempted.
const TrackAbsent = "none"

// Has reports whether the record carries a non-blank value for field.
func (r Record) Has(field string) bool {
	return strings.TrimSpace(r[field]) != ""
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// TrackAvailable reports whether the remote listing advertised a GPS polyline.
func (r Record) TrackAvailable() bool {
	return strings.EqualFold(strings.TrimSpace(r[FieldHasPolyline]), "true")
}

const dateLayout = "2006-01-02"

// ActivityDate derives the calendar date used for per-day enrichment lookups
// from startTimeLocal. It accepts combined date-time values ("2006-01-02
// 15:04:05", ISO 8601 with or without zone) as well as bare dates. The second
// return value is false when nothing parseable is present.
func ActivityDate(r Record) (string, bool) {
	raw := strings.TrimSpace(r[FieldStartTimeLocal])
	if raw == "" {
		return "", false
	}
	if i := strings.IndexAny(raw, " T"); i >= 0 {
		raw = raw[:i]
	}
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return "", false
	}
	return raw, true
}
