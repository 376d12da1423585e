package scoring

import (
	"net/netip"
	"time"
)

// FeatureSchemaVersion identifies the column set and order the model was trained on
const FeatureSchemaVersion = "loan-fraud-features/v1"

// DefaultAge is used when date_of_birth is missing or unparseable
const DefaultAge = 30

// FeatureNames lists the model input columns in training order
var FeatureNames = []string{
	"age",
	"income",
	"loan_amount",
	"typing_speed",
	"error_rate",
	"hesitation_time",
	"device_mismatch",
	"ip_mismatch",
	"multiple_applications",
	"credit_score",
}

// FeatureVector is the fixed-shape model input
type FeatureVector struct {
	Age                  float64 `json:"age"`
	Income               float64 `json:"income"`
	LoanAmount           float64 `json:"loan_amount"`
	TypingSpeed          float64 `json:"typing_speed"`
	ErrorRate            float64 `json:"error_rate"`
	HesitationTime       float64 `json:"hesitation_time"` // seconds
	DeviceMismatch       float64 `json:"device_mismatch"`
	IPMismatch           float64 `json:"ip_mismatch"`
	MultipleApplications float64 `json:"multiple_applications"`
	CreditScore          float64 `json:"credit_score"`
}

// Values returns the slots in FeatureNames order
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.Age,
		v.Income,
		v.LoanAmount,
		v.TypingSpeed,
		v.ErrorRate,
		v.HesitationTime,
		v.DeviceMismatch,
		v.IPMismatch,
		v.MultipleApplications,
		v.CreditScore,
	}
}

// Clock returns the current time
type Clock func() time.Time

// FeatureExtractor turns a payload into a FeatureVector. All defaulting
// rules for missing input live here.
type FeatureExtractor struct {
	now Clock
}

// NewFeatureExtractor creates an extractor. A nil clock uses time.Now.
func NewFeatureExtractor(now Clock) *FeatureExtractor {
	if now == nil {
		now = time.Now
	}
	return &FeatureExtractor{now: now}
}

// Extract never fails.
func (e *FeatureExtractor) Extract(p *ApplicationPayload, repeatCount int) FeatureVector {
	if p == nil {
		p = &ApplicationPayload{}
	}
	if repeatCount < 0 {
		repeatCount = 0
	}

	return FeatureVector{
		Age:            float64(e.Age(p.DateOfBirth)),
		Income:         p.ApplicantIncome.Float(),
		LoanAmount:     p.LoanAmount.Float(),
		TypingSpeed:    p.TypingSpeed.Float(),
		ErrorRate:      p.ErrorRate.Float(),
		HesitationTime: HesitationSeconds(p.HesitationTime),
		// Mismatch flags are stored for audit only; the model was trained with these at 0.
		DeviceMismatch:       0,
		IPMismatch:           0,
		MultipleApplications: float64(repeatCount),
		CreditScore:          p.CreditScore.Float(),
	}
}

// Age returns whole years since dob on the extractor's clock
func (e *FeatureExtractor) Age(dob Text) int {
	if !dob.Valid {
		return DefaultAge
	}
	born, err := time.Parse(time.DateOnly, dob.String)
	if err != nil {
		return DefaultAge
	}
	return AgeAt(born, e.now())
}

// AgeAt computes calendar age, subtracting a year when today's (month, day)
// precedes the birthday's.
func AgeAt(born, today time.Time) int {
	age := today.Year() - born.Year()
	if today.Month() < born.Month() || (today.Month() == born.Month() && today.Day() < born.Day()) {
		age--
	}
	return age
}

// HesitationSeconds converts the telemetry value from ms; absent or 0 yields 0
func HesitationSeconds(ms Number) float64 {
	if !ms.Valid || ms.Float64 == 0 {
		return 0
	}
	return ms.Float64 / 1000
}

// MismatchFlags reports the audit-only device and IP mismatch flags.
// The device flag needs a registered fingerprint that differs from the
// submitted one; the IP flag needs both the client-reported and the
// server-observed address.
func MismatchFlags(p *ApplicationPayload, observedIP string) (deviceMismatch, ipMismatch bool) {
	if p == nil {
		return false, false
	}
	if p.RegisteredDeviceFingerprint.Valid {
		deviceMismatch = p.RegisteredDeviceFingerprint.String != p.DeviceFingerprint.String
	}
	if p.ApplicantIP.Valid && observedIP != "" {
		ipMismatch = !sameIP(p.ApplicantIP.String, observedIP)
	}
	return deviceMismatch, ipMismatch
}

// sameIP compares two addresses, treating IPv4-mapped IPv6 as IPv4.
// Unparseable input falls back to string comparison.
func sameIP(a, b string) bool {
	pa, errA := netip.ParseAddr(a)
	pb, errB := netip.ParseAddr(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return pa.Unmap() == pb.Unmap()
}
