package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Feature identifies a billable product feature. Each feature carries its
// own cost multiplier because a minute of audio does not cost the same to
// process everywhere.
type Feature string

const (
	FeatureIsolation     Feature = "isolation"
	FeatureTranscription Feature = "transcription"
	FeatureAnalysis      Feature = "analysis"
)

// Quota is the metering snapshot returned by every Meter operation.
type Quota struct {
	// Allowed reports whether the user may consume more minutes right now.
	Allowed bool
	// Remaining is Limit minus Used, floored at zero.
	Remaining int
	// Limit is the plan's minutes per billing period.
	Limit int
	// Used is the minutes consumed in the current period.
	Used int
	// Tier is the subscription tier the limit came from.
	Tier string
	// PercentUsed is Used relative to Limit, capped at 100.
	PercentUsed int
}

// Record is one row of the append-only usage ledger. Refunds are stored
// as negative minutes.
type Record struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Feature   Feature
	Minutes   int
	CreatedAt time.Time
}

// Store applies a signed minute delta for a user: it appends a ledger row
// and updates the subscription's minutes_used counter, clamped at zero,
// in one transaction. It returns the counter's new value.
type Store interface {
	Apply(ctx context.Context, userID uuid.UUID, feature Feature, minutes int) (newUsed int, err error)
}
