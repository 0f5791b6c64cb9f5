package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderakbik/GarminExport/internal/domain"
	"github.com/alexanderakbik/GarminExport/internal/observability"
	"github.com/alexanderakbik/GarminExport/internal/store"
)

// Counts reports the classification outcome of one reconciliation run.
// It is fixed at classification time and independent of fetch success.
type Counts struct {
	New       int
	Updated   int
	Unchanged int
}

// Option configures optional behaviour for the Engine.
type Option func(*Engine)

// WithLogger overrides the logger used for progress and fetch diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithProgressEvery overrides how often batch progress is logged.
func WithProgressEvery(n int) Option {
	return func(e *Engine) {
		e.progressActivities = n
		e.progressDaily = n
	}
}

// WithClock overrides the time source, used to pin "today" in tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// Engine reconciles the remote listing against the local store, fetching only
// missing enrichment categories. Processing is strictly sequential: the
// gateway session is stateful and must not see concurrent requests.
type Engine struct {
	gateway            Gateway
	logger             *log.Logger
	clock              func() time.Time
	progressActivities int
	progressDaily      int
}

// New constructs an Engine around an authenticated gateway.
func New(gateway Gateway, opts ...Option) *Engine {
	e := &Engine{
		gateway:            gateway,
		logger:             log.New(log.Writer(), "[export] ", log.LstdFlags),
		clock:              time.Now,
		progressActivities: 5,
		progressDaily:      10,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// needs marks which enrichment categories are still missing for one record.
type needs struct {
	health    bool
	readiness bool
	gps       bool
}

func (n needs) any() bool { return n.health || n.readiness || n.gps }

// workItem is one record queued for fetching, with its last persisted copy.
type workItem struct {
	remote domain.Record
	prior  domain.Record
	want   needs
}

// category is one independently fallible enrichment fetch.
type category struct {
	name  string
	fetch func(ctx context.Context, date string) (domain.Fields, error)
}

func (e *Engine) healthCategories() []category {
	return []category{
		{"sleep", e.gateway.SleepSummary},
		{"stress", e.gateway.StressSummary},
		{"body_battery", e.gateway.BodyBattery},
		{"resting_heart_rate", e.gateway.RestingHeartRate},
		{"daily_steps", e.gateway.DailySteps},
	}
}

func (e *Engine) readinessCategories() []category {
	return []category{
		{"training_readiness", e.gateway.TrainingReadiness},
		{"training_status", func(ctx context.Context, _ string) (domain.Fields, error) {
			return e.gateway.TrainingStatus(ctx)
		}},
	}
}

// SyncActivities reconciles the activity table at outputPath against the
// remote listing from startDate to today. GPS tracks land under gpsDir and
// are referenced relative to the table's directory. The table is rewritten
// once, after the whole pass succeeds.
func (e *Engine) SyncActivities(ctx context.Context, outputPath, gpsDir, startDate string) (Counts, error) {
	runID := uuid.NewString()

	prior, err := store.Load(outputPath)
	if err != nil {
		e.logger.Printf("run=%s could not load existing table %s: %v", runID, outputPath, err)
		prior = nil
	}
	index := indexByKey(prior, domain.FieldActivityID)
	e.logger.Printf("run=%s found %d existing activities", runID, len(prior))

	endDate := e.clock().Format("2006-01-02")
	remote, err := e.gateway.ActivitiesByDate(ctx, startDate, endDate)
	if err != nil {
		return Counts{}, fmt.Errorf("list activities %s..%s: %w", startDate, endDate, err)
	}
	e.logger.Printf("run=%s remote listing has %d activities", runID, len(remote))

	var counts Counts
	var results []domain.Record
	var queue []workItem

	for _, activity := range remote {
		id := strings.TrimSpace(activity[domain.FieldActivityID])
		existing, ok := index[id]
		if !ok {
			counts.New++
			queue = append(queue, workItem{
				remote: activity,
				want:   needs{health: true, readiness: true, gps: activity.TrackAvailable()},
			})
			continue
		}

		want := needs{
			health:    domain.NeedsHealthMetrics(existing),
			readiness: domain.NeedsTrainingReadiness(existing),
			gps:       domain.NeedsGPSTrack(existing, activity.TrackAvailable()),
		}
		if !want.any() {
			counts.Unchanged++
			results = append(results, existing)
			continue
		}
		counts.Updated++
		queue = append(queue, workItem{remote: activity, prior: existing, want: want})
	}

	e.logger.Printf("run=%s processing %d activities (%d new, %d updates)", runID, len(queue), counts.New, counts.Updated)

	for i, item := range queue {
		results = append(results, e.enrichActivity(ctx, item, gpsDir, outputPath))
		if done := i + 1; e.progressActivities > 0 && done%e.progressActivities == 0 {
			e.logger.Printf("run=%s processed %d/%d activities", runID, done, len(queue))
		}
	}

	if err := store.Write(outputPath, domain.FieldActivityID, results); err != nil {
		return Counts{}, fmt.Errorf("write %s: %w", outputPath, err)
	}

	observability.RecordRunResults(counts.New, counts.Updated, counts.Unchanged)
	observability.RecordRunCompleted(e.clock())
	e.logger.Printf("run=%s complete: total=%d new=%d updated=%d unchanged=%d",
		runID, len(results), counts.New, counts.Updated, counts.Unchanged)
	return counts, nil
}

// enrichActivity fetches the missing categories for one activity and merges
// the result with the prior copy. Any record-level failure falls back to the
// last-known-good version instead of dropping the record.
func (e *Engine) enrichActivity(ctx context.Context, item workItem, gpsDir, outputPath string) (result domain.Record) {
	id := strings.TrimSpace(item.remote[domain.FieldActivityID])
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("activity %s: processing failed: %v", id, r)
			if item.prior != nil {
				result = item.prior
			} else {
				result = item.remote
			}
		}
	}()

	enriched := item.remote.Clone()
	date, hasDate := domain.ActivityDate(item.remote)
	if !hasDate {
		// Date-scoped fetches are skipped, the record itself survives.
		e.logger.Printf("activity %s: unparsable startTimeLocal %q", id, item.remote[domain.FieldStartTimeLocal])
	}

	if item.want.health && hasDate {
		e.applyCategories(ctx, enriched, date, e.healthCategories())
	}
	if item.want.readiness && hasDate {
		e.applyCategories(ctx, enriched, date, e.readinessCategories())
	}
	if item.want.gps && id != "" {
		e.downloadTrack(ctx, enriched, id, gpsDir, outputPath)
	}

	if item.prior != nil {
		return Merge(enriched, item.prior)
	}
	return enriched
}

// applyCategories runs each fetch in order. A failing category is logged and
// left missing; it never blocks the remaining categories or the record.
func (e *Engine) applyCategories(ctx context.Context, record domain.Record, date string, categories []category) {
	for _, cat := range categories {
		fields, err := cat.fetch(ctx, date)
		if err != nil {
			observability.RecordCategoryFailure(cat.name)
			e.logger.Printf("could not fetch %s for %s: %v", cat.name, date, err)
			continue
		}
		for key, value := range fields {
			record[key] = value
		}
	}
}

func (e *Engine) downloadTrack(ctx context.Context, record domain.Record, activityID, gpsDir, outputPath string) {
	data, format, err := e.gateway.DownloadTrack(ctx, activityID, TrackFormats)
	switch {
	case errors.Is(err, domain.ErrNoTrack):
		record[domain.FieldGPSTrackFile] = domain.TrackAbsent
	case err != nil:
		observability.RecordCategoryFailure("gps_track")
		e.logger.Printf("could not download track for activity %s: %v", activityID, err)
	default:
		path, werr := writeTrack(gpsDir, activityID, format, data)
		if werr != nil {
			observability.RecordCategoryFailure("gps_track")
			e.logger.Printf("could not store track for activity %s: %v", activityID, werr)
			return
		}
		if rel, rerr := filepath.Rel(filepath.Dir(outputPath), path); rerr == nil {
			record[domain.FieldGPSTrackFile] = rel
		} else {
			record[domain.FieldGPSTrackFile] = path
		}
	}
}

func writeTrack(gpsDir, activityID string, format TrackFormat, data []byte) (string, error) {
	if err := os.MkdirAll(gpsDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(gpsDir, activityID+"."+string(format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// SyncDailyHealth reconciles one daily health record per calendar day in the
// inclusive startDate..endDate range against the table at outputPath. Days
// already complete in the store are passed through without gateway calls.
func (e *Engine) SyncDailyHealth(ctx context.Context, outputPath, startDate, endDate string) (Counts, error) {
	runID := uuid.NewString()

	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return Counts{}, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	if endDate == "" {
		endDate = e.clock().Format("2006-01-02")
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return Counts{}, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}

	prior, err := store.Load(outputPath)
	if err != nil {
		e.logger.Printf("run=%s could not load existing table %s: %v", runID, outputPath, err)
		prior = nil
	}
	index := indexByKey(prior, domain.FieldDate)
	e.logger.Printf("run=%s found %d existing daily records", runID, len(prior))

	var counts Counts
	var results []domain.Record
	var queue []workItem

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		existing, ok := index[date]
		if !ok {
			counts.New++
			queue = append(queue, workItem{
				remote: domain.Record{domain.FieldDate: date},
				want:   needs{health: true, readiness: true},
			})
			continue
		}

		want := needs{
			health:    domain.NeedsHealthMetrics(existing),
			readiness: domain.NeedsTrainingReadiness(existing),
		}
		if !want.any() {
			counts.Unchanged++
			results = append(results, existing)
			continue
		}
		counts.Updated++
		queue = append(queue, workItem{
			remote: domain.Record{domain.FieldDate: date},
			prior:  existing,
			want:   want,
		})
	}

	e.logger.Printf("run=%s fetching %d days (%d new, %d updates), %d already complete",
		runID, len(queue), counts.New, counts.Updated, counts.Unchanged)

	for i, item := range queue {
		results = append(results, e.enrichDay(ctx, item))
		if done := i + 1; e.progressDaily > 0 && done%e.progressDaily == 0 {
			e.logger.Printf("run=%s fetched %d/%d days", runID, done, len(queue))
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i][domain.FieldDate] < results[j][domain.FieldDate]
	})

	if err := store.Write(outputPath, domain.FieldDate, results); err != nil {
		return Counts{}, fmt.Errorf("write %s: %w", outputPath, err)
	}

	observability.RecordRunResults(counts.New, counts.Updated, counts.Unchanged)
	observability.RecordRunCompleted(e.clock())
	e.logger.Printf("run=%s complete: total=%d new=%d updated=%d unchanged=%d",
		runID, len(results), counts.New, counts.Updated, counts.Unchanged)
	return counts, nil
}

func (e *Engine) enrichDay(ctx context.Context, item workItem) (result domain.Record) {
	date := item.remote[domain.FieldDate]
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("day %s: processing failed: %v", date, r)
			if item.prior != nil {
				result = item.prior
			} else {
				result = item.remote
			}
		}
	}()

	enriched := item.remote.Clone()
	if item.want.health {
		e.applyCategories(ctx, enriched, date, e.healthCategories())
	}
	if item.want.readiness {
		e.applyCategories(ctx, enriched, date, e.readinessCategories())
	}

	if item.prior != nil {
		return Merge(enriched, item.prior)
	}
	return enriched
}

// indexByKey builds the local lookup map. Records without a key are kept in
// the table but cannot be matched against the remote listing.
func indexByKey(records []domain.Record, keyField string) map[string]domain.Record {
	index := make(map[string]domain.Record, len(records))
	for _, record := range records {
		key := strings.TrimSpace(record[keyField])
		if key == "" {
			continue
		}
		index[key] = record
	}
	return index
}
