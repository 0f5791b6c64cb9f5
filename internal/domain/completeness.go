package domain

// Completeness predicates decide which enrichment categories still have to be
// fetched for a record. They are pure functions of the record and total over
// arbitrary partial records, including nil.

// NeedsHealthMetrics reports whether the daily health metric group is still
// missing. The group counts as complete once both anchor fields,
// sleepDuration and stressAvg, carry values: every health fetch populates all
// categories it can, so a record holding both anchors has been through a full
// fetch round. Partially available days are re-fetched on later runs.
func NeedsHealthMetrics(r Record) bool {
	return !(r.Has(FieldSleepDuration) && r.Has(FieldStressAvg))
}

// NeedsTrainingReadiness reports whether training readiness data is missing.
// Either a readiness score or a training status proves a prior fetch.
func NeedsTrainingReadiness(r Record) bool {
	return !r.Has(FieldTrainingReadinessScore) && !r.Has(FieldTrainingStatus)
}

// NeedsGPSTrack reports whether a track download should be attempted.
// trackAvailable is the remote listing's polyline flag; without it there is
// nothing to download. A stored path or the TrackAbsent sentinel both count
// as done.
func NeedsGPSTrack(r Record, trackAvailable bool) bool {
	return trackAvailable && !r.Has(FieldGPSTrackFile)
}
