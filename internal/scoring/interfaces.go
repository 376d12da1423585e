package scoring

import "context"

// RiskModel is the opaque classifier. Predict returns the probability of
// the fraud class; SchemaVersion names the feature schema it was trained on.
type RiskModel interface {
	Predict(ctx context.Context, features FeatureVector) (float64, error)
	SchemaVersion() string
	Version() string
}

// ApplicationStore persists scored applications
type ApplicationStore interface {
	Insert(ctx context.Context, app *ScoredApplication) InsertOutcome
}

// SubmissionCounter counts stored applications by device fingerprint
type SubmissionCounter interface {
	CountByDeviceFingerprint(ctx context.Context, fingerprint string) (int, error)
}

// RepeatCounter resolves the repeat-device count for a submission
type RepeatCounter interface {
	CountPrior(ctx context.Context, fingerprint string) int
}
