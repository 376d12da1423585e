package scoring

import (
	"context"
	"time"

	"github.com/richxcame/loan-risk/pkg/logger"
	"go.uber.org/zap"
)

// RepeatSubmissionTracker counts prior applications from the same device.
// Detection is best-effort: failures degrade to 0.
type RepeatSubmissionTracker struct {
	counter SubmissionCounter
	timeout time.Duration
}

// NewRepeatSubmissionTracker creates a tracker with a per-lookup timeout
func NewRepeatSubmissionTracker(counter SubmissionCounter, timeout time.Duration) *RepeatSubmissionTracker {
	return &RepeatSubmissionTracker{counter: counter, timeout: timeout}
}

// CountPrior returns the number of stored applications sharing fingerprint.
// An empty fingerprint returns 0 without querying.
func (t *RepeatSubmissionTracker) CountPrior(ctx context.Context, fingerprint string) int {
	if fingerprint == "" || t.counter == nil {
		return 0
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	count, err := t.counter.CountByDeviceFingerprint(ctx, fingerprint)
	if err != nil {
		lookupDegradedTotal.Inc()
		logger.WithContext(ctx).Warn("repeat-device lookup failed, using 0",
			zap.Error(err),
		)
		return 0
	}
	if count < 0 {
		return 0
	}
	return count
}
