package garmin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/alexanderakbik/GarminExport/internal/domain"
	"github.com/alexanderakbik/GarminExport/internal/export"
)

// SleepSummary normalizes the daily sleep payload. Durations arrive as
// seconds and are stored as hours; the modern dailySleepDTO shape is
// preferred over the legacy sleep object.
func (c *Client) SleepSummary(ctx context.Context, date string) (domain.Fields, error) {
	payload, found, err := c.getObject(ctx, "/wellness-service/wellness/dailySleepData?date="+url.QueryEscape(date))
	if err != nil || !found {
		return nil, err
	}

	sleep, ok := object(payload, "dailySleepDTO")
	if !ok {
		sleep, ok = object(payload, "sleep")
	}
	if !ok {
		return nil, nil
	}

	fields := domain.Fields{}
	setHours := func(field, key string) {
		if v, ok := number(sleep, key); ok && v != 0 {
			fields[field] = formatNumber(v / 3600)
		}
	}
	setHours(domain.FieldSleepDuration, "sleepTimeSeconds")
	setHours(domain.FieldSleepDeepDuration, "deepSleepSeconds")
	setHours(domain.FieldSleepLightDuration, "lightSleepSeconds")
	setHours(domain.FieldSleepRemDuration, "remSleepSeconds")
	setHours(domain.FieldSleepAwakeDuration, "awakeSleepSeconds")

	if scores, ok := object(sleep, "sleepScores"); ok {
		if overall, ok := object(scores, "overall"); ok {
			setScalar(fields, domain.FieldSleepQuality, overall, "value")
		}
	}
	if _, ok := fields[domain.FieldSleepQuality]; !ok {
		setScalar(fields, domain.FieldSleepQuality, sleep, "sleepQualityScore", "sleepQuality")
	}

	return nonEmpty(fields), nil
}

// StressSummary normalizes the daily stress payload.
func (c *Client) StressSummary(ctx context.Context, date string) (domain.Fields, error) {
	payload, found, err := c.getObject(ctx, "/wellness-service/wellness/dailyStress/"+url.PathEscape(date))
	if err != nil || !found {
		return nil, err
	}

	fields := domain.Fields{}
	setScalar(fields, domain.FieldStressAvg, payload, "avgStressLevel", "averageStressLevel")
	setScalar(fields, domain.FieldStressMax, payload, "maxStressLevel")
	setScalar(fields, domain.FieldStressRestDuration, payload, "restStressDuration")
	setScalar(fields, domain.FieldStressLowDuration, payload, "lowStressDuration")
	setScalar(fields, domain.FieldStressMediumDuration, payload, "mediumStressDuration")
	setScalar(fields, domain.FieldStressHighDuration, payload, "highStressDuration")
	return nonEmpty(fields), nil
}

// BodyBattery normalizes the daily body battery report, falling back to the
// raw values array when the summary fields are absent.
func (c *Client) BodyBattery(ctx context.Context, date string) (domain.Fields, error) {
	path := fmt.Sprintf("/wellness-service/wellness/bodyBattery/reports/daily?startDate=%s&endDate=%s",
		url.QueryEscape(date), url.QueryEscape(date))
	payload, found, err := c.getObject(ctx, path)
	if err != nil || !found {
		return nil, err
	}

	fields := domain.Fields{}
	setScalar(fields, domain.FieldBodyBatteryAvg, payload, "averageBodyBattery")
	setScalar(fields, domain.FieldBodyBatteryMax, payload, "maxBodyBattery")
	setScalar(fields, domain.FieldBodyBatteryMin, payload, "minBodyBattery")

	if _, ok := fields[domain.FieldBodyBatteryMax]; !ok {
		if values := levelSamples(payload, "bodyBatteryValuesArray"); len(values) > 0 {
			min, max, sum := values[0], values[0], 0.0
			for _, v := range values {
				if v < min {
					min = v
				}
				if v > max {
					max = v
				}
				sum += v
			}
			fields[domain.FieldBodyBatteryMin] = formatNumber(min)
			fields[domain.FieldBodyBatteryMax] = formatNumber(max)
			fields[domain.FieldBodyBatteryAvg] = formatNumber(sum / float64(len(values)))
		}
	}
	return nonEmpty(fields), nil
}

// RestingHeartRate extracts the wellness RHR metric for the date.
func (c *Client) RestingHeartRate(ctx context.Context, date string) (domain.Fields, error) {
	payload, found, err := c.getObject(ctx, "/userstats-service/wellness/daily/"+url.PathEscape(date))
	if err != nil || !found {
		return nil, err
	}

	fields := domain.Fields{}
	if all, ok := object(payload, "allMetrics"); ok {
		if metrics, ok := object(all, "metricsMap"); ok {
			if samples, ok := metrics["WELLNESS_RESTING_HEART_RATE"].([]any); ok && len(samples) > 0 {
				if first, ok := samples[0].(map[string]any); ok {
					setScalar(fields, domain.FieldRestingHeartRate, first, "value")
				}
			}
		}
	}
	if _, ok := fields[domain.FieldRestingHeartRate]; !ok {
		setScalar(fields, domain.FieldRestingHeartRate, payload, "value")
	}
	return nonEmpty(fields), nil
}

// DailySteps returns the step total for the date. The range endpoint returns
// one element per day; the last one covers the requested date.
func (c *Client) DailySteps(ctx context.Context, date string) (domain.Fields, error) {
	path := fmt.Sprintf("/usersummary-service/stats/steps/daily/%s/%s", url.PathEscape(date), url.PathEscape(date))
	var payload []map[string]any
	found, err := c.getJSON(ctx, path, &payload)
	if err != nil || !found || len(payload) == 0 {
		return nil, err
	}

	fields := domain.Fields{}
	setScalar(fields, domain.FieldDailySteps, payload[len(payload)-1], "totalSteps")
	return nonEmpty(fields), nil
}

// TrainingReadiness normalizes the readiness score and level for the date.
func (c *Client) TrainingReadiness(ctx context.Context, date string) (domain.Fields, error) {
	payload, found, err := c.getObject(ctx, "/metrics-service/metrics/trainingreadiness/"+url.PathEscape(date))
	if err != nil || !found {
		return nil, err
	}

	fields := domain.Fields{}
	setScalar(fields, domain.FieldTrainingReadinessScore, payload, "score")
	setScalar(fields, domain.FieldTrainingReadiness, payload, "level")
	return nonEmpty(fields), nil
}

// TrainingStatus returns the provider's current training status; the endpoint
// is not date-scoped.
func (c *Client) TrainingStatus(ctx context.Context) (domain.Fields, error) {
	payload, found, err := c.getObject(ctx, "/metrics-service/metrics/trainingstatus/aggregated")
	if err != nil || !found {
		return nil, err
	}

	fields := domain.Fields{}
	setScalar(fields, domain.FieldTrainingStatus, payload, "status")
	setScalar(fields, domain.FieldTrainingStatusText, payload, "statusText")
	return nonEmpty(fields), nil
}

// DownloadTrack fetches the activity's track in the first format that yields
// data. A transport failure on any format is reported for retry; exhausting
// the preference list without data means the track does not exist.
func (c *Client) DownloadTrack(ctx context.Context, activityID string, formats []export.TrackFormat) ([]byte, export.TrackFormat, error) {
	var lastErr error
	for _, format := range formats {
		path := fmt.Sprintf("/download-service/export/%s/activity/%s", format, url.PathEscape(activityID))
		data, err := c.download(ctx, path)
		if err != nil {
			lastErr = err
			continue
		}
		if len(data) > 0 {
			return data, format, nil
		}
	}
	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", domain.ErrNoTrack
}

func (c *Client) download(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound, http.StatusNoContent:
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	default:
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
}

func object(m map[string]any, key string) (map[string]any, bool) {
	child, ok := m[key].(map[string]any)
	return child, ok
}

func number(m map[string]any, key string) (float64, bool) {
	v, ok := m[key].(float64)
	return v, ok
}

// scalar renders a JSON leaf as a table cell. Nested values report false.
func scalar(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return formatNumber(v), true
	default:
		return "", false
	}
}

// setScalar stores the first non-blank value among keys into field.
func setScalar(fields domain.Fields, field string, m map[string]any, keys ...string) {
	for _, key := range keys {
		if cell, ok := scalar(m[key]); ok && cell != "" {
			fields[field] = cell
			return
		}
	}
}

// levelSamples extracts the level component of [timestamp, level] pairs.
func levelSamples(m map[string]any, key string) []float64 {
	pairs, ok := m[key].([]any)
	if !ok {
		return nil
	}
	values := make([]float64, 0, len(pairs))
	for _, pair := range pairs {
		sample, ok := pair.([]any)
		if !ok || len(sample) < 2 {
			continue
		}
		if level, ok := sample[1].(float64); ok {
			values = append(values, level)
		}
	}
	return values
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// nonEmpty distinguishes "provider had nothing" from a populated result.
func nonEmpty(fields domain.Fields) domain.Fields {
	if len(fields) == 0 {
		return nil
	}
	return fields
}
