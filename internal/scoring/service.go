package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/loan-risk/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	// ErrModelFailure wraps any inference error or malformed model output
	ErrModelFailure = errors.New("risk model failure")
	// ErrPersistenceFailure wraps any store error other than a uniqueness violation
	ErrPersistenceFailure = errors.New("persistence failure")
)

var tracer = otel.Tracer("github.com/richxcame/loan-risk/internal/scoring")

// Service orchestrates a single scoring request
type Service struct {
	tracker   RepeatCounter
	extractor *FeatureExtractor
	model     RiskModel
	store     ApplicationStore
	now       Clock
}

// NewService creates a new scoring service
func NewService(tracker RepeatCounter, extractor *FeatureExtractor, model RiskModel, store ApplicationStore) *Service {
	if extractor == nil {
		extractor = NewFeatureExtractor(nil)
	}
	return &Service{
		tracker:   tracker,
		extractor: extractor,
		model:     model,
		store:     store,
		now:       time.Now,
	}
}

// ModelVersion reports the version of the injected model
func (s *Service) ModelVersion() string {
	return s.model.Version()
}

// Score runs the pipeline: count repeats, extract, predict, persist once.
// A uniqueness conflict is a successful terminal state. Failures are
// returned wrapped in ErrModelFailure or ErrPersistenceFailure.
func (s *Service) Score(ctx context.Context, payload *ApplicationPayload, meta RequestMeta) (*ScoreResult, error) {
	ctx, span := tracer.Start(ctx, "scoring.Score")
	defer span.End()

	if payload == nil {
		payload = &ApplicationPayload{}
	}
	log := logger.WithContext(ctx)
	state := StateReceived

	repeatCount := 0
	if s.tracker != nil {
		repeatCount = s.tracker.CountPrior(ctx, payload.DeviceFingerprint.String)
	}

	features := s.extractor.Extract(payload, repeatCount)
	state = StateFeaturesExtracted

	probability, err := s.predict(ctx, features)
	if err != nil {
		s.finish(ctx, StateFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "model failure")
		log.Error("scoring failed", zap.String("after", string(state)), zap.Error(err))
		return nil, err
	}
	riskScore := RiskScore(probability)
	state = StateScored
	riskScoreHistogram.Observe(float64(riskScore))

	app := s.assemble(payload, meta, probability, riskScore, repeatCount)

	// A request past its deadline must not persist a row the caller was told failed.
	var outcome InsertOutcome
	if cerr := ctx.Err(); cerr != nil {
		outcome = Failed(cerr)
	} else {
		outcome = s.store.Insert(ctx, app)
	}
	state = StatePersistAttempted

	result := &ScoreResult{
		RiskScore:        riskScore,
		FraudProbability: probability,
		RepeatCount:      repeatCount,
		ApplicationID:    app.ID,
	}

	switch outcome.Kind {
	case InsertSucceeded:
		result.State = StateSucceeded
	case InsertConflict:
		result.State = StateDuplicateAccepted
		log.Info("duplicate application accepted",
			zap.String("code", outcome.Code),
			zap.String("constraint", outcome.Constraint),
		)
	default:
		err := fmt.Errorf("%w: %w", ErrPersistenceFailure, outcome.Err)
		s.finish(ctx, StateFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failure")
		log.Error("scoring failed", zap.String("after", string(state)), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("scoring.risk_score", riskScore),
		attribute.Int("scoring.repeat_count", repeatCount),
		attribute.String("scoring.state", string(result.State)),
	)
	s.finish(ctx, result.State)
	return result, nil
}

func (s *Service) predict(ctx context.Context, features FeatureVector) (p float64, err error) {
	ctx, span := tracer.Start(ctx, "scoring.Predict")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrModelFailure, r)
		}
	}()

	if v := s.model.SchemaVersion(); v != FeatureSchemaVersion {
		return 0, fmt.Errorf("%w: model schema %q does not match features %q", ErrModelFailure, v, FeatureSchemaVersion)
	}

	start := time.Now()
	p, err = s.model.Predict(ctx, features)
	modelLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrModelFailure, err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: probability %v outside [0,1]", ErrModelFailure, p)
	}
	return p, nil
}

func (s *Service) assemble(payload *ApplicationPayload, meta RequestMeta, probability float64, riskScore, repeatCount int) *ScoredApplication {
	deviceMismatch, ipMismatch := MismatchFlags(payload, meta.ObservedIP)

	app := &ScoredApplication{
		ID:                   uuid.New(),
		Applicant:            *payload,
		RiskScore:            riskScore,
		FraudProbability:     probability,
		Status:               StatusReviewed,
		DeviceMismatch:       deviceMismatch,
		IPMismatch:           ipMismatch,
		MultipleApplications: repeatCount,
		ModelVersion:         s.model.Version(),
		RequestID:            meta.RequestID,
		CreatedAt:            s.now().UTC(),
	}

	if payload.TypingSpeed.Valid {
		v := truncate(payload.TypingSpeed.Float64)
		app.TypingSpeed = &v
	}
	if payload.ErrorRate.Valid {
		v := payload.ErrorRate.Float64
		app.ErrorRate = &v
	}
	if payload.HesitationTime.Valid {
		v := truncate(payload.HesitationTime.Float64)
		app.HesitationTimeMs = &v
	}
	return app
}

func (s *Service) finish(ctx context.Context, state State) {
	scoringOutcomesTotal.WithLabelValues(string(state)).Inc()
	logger.WithContext(ctx).Info("scoring finished", zap.String("state", string(state)))
}

// RiskScore converts a probability to an integer score: floor(100p) clamped to [0,100]
func RiskScore(p float64) int {
	if math.IsNaN(p) || p <= 0 {
		return 0
	}
	score := int(math.Floor(p * 100))
	if score > 100 {
		return 100
	}
	return score
}

func truncate(v float64) int {
	t := math.Trunc(v)
	if t > math.MaxInt32 {
		return math.MaxInt32
	}
	if t < math.MinInt32 {
		return math.MinInt32
	}
	return int(t)
}
