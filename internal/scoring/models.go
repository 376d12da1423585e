package scoring

import (
	"time"

	"github.com/google/uuid"
)

// StatusReviewed is the status every scored application is created with
const StatusReviewed = "Reviewed"

// ApplicationPayload is the partial, untrusted submission from the front end.
// Every field is optional.
type ApplicationPayload struct {
	// Identity
	FullName     Text `json:"full_name"`
	DateOfBirth  Text `json:"date_of_birth"`
	Email        Text `json:"email"`
	PhoneNumber  Text `json:"phone_number"`
	PANNumber    Text `json:"pan_number"`
	AadharNumber Text `json:"aadhar_number"`

	// Demographic
	Gender         Text `json:"gender"`
	MaritalStatus  Text `json:"marital_status"`
	State          Text `json:"state"`
	City           Text `json:"city"`
	Dependants     Text `json:"dependants"`
	EducationLevel Text `json:"education_level"`
	SelfEmployed   Text `json:"self_employed"`

	// Financial
	ApplicantIncome Number `json:"applicant_income"`
	CreditScore     Number `json:"credit_score"`
	LoanAmount      Number `json:"loan_amount"`
	LoanTermMonths  Number `json:"loan_term_months"`

	// Behavioral telemetry
	TypingSpeed    Number `json:"typing_speed"`    // words per minute
	ErrorRate      Number `json:"error_rate"`      // fraction of keystrokes corrected
	HesitationTime Number `json:"hesitation_time"` // milliseconds

	// Device and session
	DeviceFingerprint           Text `json:"device_fingerprint"`
	ApplicantIP                 Text `json:"applicant_ip"`
	RegisteredDeviceFingerprint Text `json:"registered_device_fingerprint"`
	FaceCaptureData             Text `json:"face_capture_data"`
}

// RequestMeta carries what the server observed about the request
type RequestMeta struct {
	RequestID  string
	ObservedIP string
}

// ScoredApplication is the row persisted for every scored submission
type ScoredApplication struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	Applicant ApplicationPayload `json:"applicant"`

	RiskScore            int       `json:"risk_score" db:"risk_score"`
	FraudProbability     float64   `json:"fraud_probability" db:"fraud_probability"`
	Status               string    `json:"status" db:"status"`
	TypingSpeed          *int      `json:"typing_speed,omitempty" db:"typing_speed"`
	ErrorRate            *float64  `json:"error_rate,omitempty" db:"error_rate"`
	HesitationTimeMs     *int      `json:"hesitation_time,omitempty" db:"hesitation_time"`
	DeviceMismatch       bool      `json:"device_mismatch" db:"device_mismatch"`
	IPMismatch           bool      `json:"ip_mismatch" db:"ip_mismatch"`
	MultipleApplications int       `json:"multiple_applications" db:"multiple_applications"`
	ModelVersion         string    `json:"model_version" db:"model_version"`
	RequestID            string    `json:"request_id,omitempty" db:"request_id"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// OutcomeKind classifies a store insert
type OutcomeKind int

const (
	InsertSucceeded OutcomeKind = iota
	InsertConflict
	InsertFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case InsertSucceeded:
		return "succeeded"
	case InsertConflict:
		return "conflict"
	default:
		return "failed"
	}
}

// InsertOutcome is the typed result of ApplicationStore.Insert.
// Code and Constraint are set for conflicts, Err for failures.
type InsertOutcome struct {
	Kind       OutcomeKind
	Code       string
	Constraint string
	Err        error
}

// Succeeded builds a success outcome
func Succeeded() InsertOutcome {
	return InsertOutcome{Kind: InsertSucceeded}
}

// Conflict builds a uniqueness-violation outcome
func Conflict(code, constraint string) InsertOutcome {
	return InsertOutcome{Kind: InsertConflict, Code: code, Constraint: constraint}
}

// Failed builds a failure outcome
func Failed(err error) InsertOutcome {
	return InsertOutcome{Kind: InsertFailed, Err: err}
}

// State is a step of the per-request scoring lifecycle
type State string

const (
	StateReceived          State = "received"
	StateFeaturesExtracted State = "features_extracted"
	StateScored            State = "scored"
	StatePersistAttempted  State = "persist_attempted"
	StateSucceeded         State = "succeeded"
	StateDuplicateAccepted State = "duplicate_accepted"
	StateFailed            State = "failed"
)

// ScoreResult is returned for the two non-failing terminal states
type ScoreResult struct {
	State            State
	RiskScore        int
	FraudProbability float64
	RepeatCount      int
	ApplicationID    uuid.UUID
}

// Duplicate reports whether the store rejected the row as a duplicate
func (r *ScoreResult) Duplicate() bool {
	return r.State == StateDuplicateAccepted
}

// PredictResponse is the success body of POST /predict
type PredictResponse struct {
	Message          string   `json:"message"`
	RiskScore        *int     `json:"risk_score,omitempty"`
	FraudProbability *float64 `json:"fraud_probability,omitempty"`
}

// ErrorBody is the failure body of POST /predict
type ErrorBody struct {
	Error string `json:"error"`
}
