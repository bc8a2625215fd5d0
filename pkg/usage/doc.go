// Package usage meters per-subscription quota consumption in billable
// minutes.
//
// Every charge and refund performs exactly two writes, an append to the
// usage_records ledger and an update of the subscription's minutes_used
// counter, inside a single transaction. A crash between the two writes is
// therefore unobservable, and the counter always equals the ledger sum
// clamped at zero.
//
// Media duration converts to billable minutes through EstimateMinutes,
// which applies a per-feature multiplier and rounds up so partial minutes
// bill as full minutes.
//
//	quota, err := meter.Check(ctx, userID)
//	if err != nil || !quota.Allowed {
//	    return ErrQuotaExceeded
//	}
//	minutes := usage.EstimateMinutes(usage.FeatureTranscription, durationSeconds)
//	quota, err = meter.Track(ctx, userID, usage.FeatureTranscription, minutes)
package usage
