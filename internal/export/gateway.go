// Package export implements the incremental reconciliation engine that mirrors
// remote activity and daily health history into the local table.
package export

import (
	"context"

	"github.com/alexanderakbik/GarminExport/internal/domain"
)

// TrackFormat names a downloadable GPS track encoding.
type TrackFormat string

const (
	TrackFormatGPX TrackFormat = "gpx"
	TrackFormatTCX TrackFormat = "tcx"
)

// TrackFormats is the provider preference order for track downloads.
var TrackFormats = []TrackFormat{TrackFormatGPX, TrackFormatTCX}

// Gateway is the authenticated remote API surface the engine consumes. The
// caller owns the session lifecycle; every method assumes a prior login.
//
// Category fetches return (nil, nil) when the provider confirmed it has no
// data for the date. A non-nil error means the fetch failed and the category
// stays missing, to be retried on a future run. DownloadTrack reports a
// confirmed missing track with domain.ErrNoTrack.
type Gateway interface {
	ActivitiesByDate(ctx context.Context, startDate, endDate string) ([]domain.Record, error)

	SleepSummary(ctx context.Context, date string) (domain.Fields, error)
	StressSummary(ctx context.Context, date string) (domain.Fields, error)
	BodyBattery(ctx context.Context, date string) (domain.Fields, error)
	RestingHeartRate(ctx context.Context, date string) (domain.Fields, error)
	DailySteps(ctx context.Context, date string) (domain.Fields, error)
	TrainingReadiness(ctx context.Context, date string) (domain.Fields, error)
	TrainingStatus(ctx context.Context) (domain.Fields, error)

	DownloadTrack(ctx context.Context, activityID string, formats []TrackFormat) ([]byte, TrackFormat, error)
}
