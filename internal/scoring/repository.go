package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/loan-risk/pkg/database"
)

// DBTX is the subset of pgxpool.Pool used by the repository
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores scored applications in PostgreSQL
type Repository struct {
	db            DBTX
	insertTimeout time.Duration
}

// Ensure the concrete repository satisfies the service's requirements.
var (
	_ ApplicationStore  = (*Repository)(nil)
	_ SubmissionCounter = (*Repository)(nil)
)

// NewRepository creates a new scoring repository
func NewRepository(db DBTX, insertTimeout time.Duration) *Repository {
	return &Repository{db: db, insertTimeout: insertTimeout}
}

const insertApplicationQuery = `
	INSERT INTO loan_applications (
		id, full_name, date_of_birth, email, phone_number, pan_number, aadhar_number,
		gender, marital_status, state, city, dependants, education_level, self_employed,
		applicant_income, credit_score, loan_amount, loan_term_months,
		applicant_ip_address, device_fingerprint, liveness_check_data,
		typing_speed, error_rate, hesitation_time,
		device_mismatch, ip_mismatch, multiple_applications,
		risk_score, fraud_probability, status, model_version, request_id, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9, $10, $11, $12, $13, $14,
		$15, $16, $17, $18,
		$19, $20, $21,
		$22, $23, $24,
		$25, $26, $27,
		$28, $29, $30, $31, $32, $33
	)
`

// Insert makes exactly one insert attempt and classifies the result.
// SQLSTATE 23505 is reported as a conflict, any other error as a failure.
func (r *Repository) Insert(ctx context.Context, app *ScoredApplication) InsertOutcome {
	if r.insertTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.insertTimeout)
		defer cancel()
	}

	a := &app.Applicant
	_, err := r.db.Exec(ctx, insertApplicationQuery,
		app.ID,
		a.FullName,
		a.DateOfBirth,
		a.Email,
		a.PhoneNumber,
		a.PANNumber,
		a.AadharNumber,
		a.Gender,
		a.MaritalStatus,
		a.State,
		a.City,
		a.Dependants,
		a.EducationLevel,
		a.SelfEmployed,
		a.ApplicantIncome,
		a.CreditScore,
		a.LoanAmount,
		a.LoanTermMonths,
		a.ApplicantIP,
		a.DeviceFingerprint,
		a.FaceCaptureData,
		app.TypingSpeed,
		app.ErrorRate,
		app.HesitationTimeMs,
		app.DeviceMismatch,
		app.IPMismatch,
		app.MultipleApplications,
		app.RiskScore,
		app.FraudProbability,
		app.Status,
		app.ModelVersion,
		app.RequestID,
		app.CreatedAt,
	)
	if err == nil {
		return Succeeded()
	}

	if constraint, ok := database.IsUniqueViolation(err); ok {
		return Conflict(database.UniqueViolationCode, constraint)
	}
	if code, ok := database.PgErrorCode(err); ok {
		return Failed(fmt.Errorf("insert loan application (sqlstate %s): %w", code, err))
	}
	return Failed(fmt.Errorf("insert loan application: %w", err))
}

// CountByDeviceFingerprint counts stored applications submitted from fingerprint
func (r *Repository) CountByDeviceFingerprint(ctx context.Context, fingerprint string) (int, error) {
	query := `SELECT COUNT(*) FROM loan_applications WHERE device_fingerprint = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, fingerprint).Scan(&count); err != nil {
		return 0, fmt.Errorf("count applications by device: %w", err)
	}
	return count, nil
}
