package scoring

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(y int, m time.Month, d int) Clock {
	return func() time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
}

func TestFeatureExtractor_Age(t *testing.T) {
	tests := []struct {
		name  string
		dob   Text
		clock Clock
		want  int
	}{
		{"day before birthday", NewText("2000-06-15"), fixedClock(2024, time.June, 14), 23},
		{"on birthday", NewText("2000-06-15"), fixedClock(2024, time.June, 15), 24},
		{"earlier month", NewText("2000-06-15"), fixedClock(2024, time.May, 30), 23},
		{"later month", NewText("2000-06-15"), fixedClock(2024, time.July, 1), 24},
		{"leap day", NewText("2004-02-29"), fixedClock(2024, time.February, 28), 19},
		{"missing", Text{}, fixedClock(2024, time.June, 15), DefaultAge},
		{"unparseable", NewText("15/06/2000"), fixedClock(2024, time.June, 15), DefaultAge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewFeatureExtractor(tt.clock).Age(tt.dob))
		})
	}
}

func TestFeatureExtractor_EmptyPayload(t *testing.T) {
	e := NewFeatureExtractor(fixedClock(2024, time.January, 1))

	v := e.Extract(&ApplicationPayload{}, 0)

	assert.Len(t, v.Values(), len(FeatureNames))
	assert.Equal(t, []float64{DefaultAge, 0, 0, 0, 0, 0, 0, 0, 0, 0}, v.Values())
	assert.Equal(t, v, e.Extract(nil, 0))
}

func TestFeatureExtractor_Extract(t *testing.T) {
	var p ApplicationPayload
	require.NoError(t, json.Unmarshal([]byte(`{
		"date_of_birth": "1990-01-01",
		"applicant_income": 50000,
		"loan_amount": "200000",
		"credit_score": 700,
		"typing_speed": 41.7,
		"error_rate": 0.08,
		"hesitation_time": 2500,
		"device_fingerprint": "fp-1",
		"registered_device_fingerprint": "fp-2",
		"applicant_ip": "10.0.0.1"
	}`), &p))

	v := NewFeatureExtractor(fixedClock(2024, time.June, 1)).Extract(&p, 3)

	assert.Equal(t, FeatureVector{
		Age:                  34,
		Income:               50000,
		LoanAmount:           200000,
		TypingSpeed:          41.7,
		ErrorRate:            0.08,
		HesitationTime:       2.5,
		DeviceMismatch:       0,
		IPMismatch:           0,
		MultipleApplications: 3,
		CreditScore:          700,
	}, v)
}

func TestFeatureVector_ValuesOrder(t *testing.T) {
	v := FeatureVector{
		Age: 1, Income: 2, LoanAmount: 3, TypingSpeed: 4, ErrorRate: 5,
		HesitationTime: 6, DeviceMismatch: 7, IPMismatch: 8, MultipleApplications: 9, CreditScore: 10,
	}

	out, err := json.Marshal(v)
	require.NoError(t, err)

	var byName map[string]float64
	require.NoError(t, json.Unmarshal(out, &byName))
	for i, name := range FeatureNames {
		assert.Equal(t, v.Values()[i], byName[name], name)
	}
}

func TestHesitationSeconds(t *testing.T) {
	assert.Equal(t, 0.0, HesitationSeconds(Number{}))
	assert.Equal(t, 0.0, HesitationSeconds(NewNumber(0)))
	assert.Equal(t, 1.25, HesitationSeconds(NewNumber(1250)))
	assert.Equal(t, 0.001, HesitationSeconds(NewNumber(1)))
}

func TestMismatchFlags(t *testing.T) {
	tests := []struct {
		name       string
		payload    ApplicationPayload
		observedIP string
		wantDevice bool
		wantIP     bool
	}{
		{"nothing set", ApplicationPayload{}, "", false, false},
		{
			"same device",
			ApplicationPayload{DeviceFingerprint: NewText("a"), RegisteredDeviceFingerprint: NewText("a")},
			"", false, false,
		},
		{
			"different device",
			ApplicationPayload{DeviceFingerprint: NewText("a"), RegisteredDeviceFingerprint: NewText("b")},
			"", true, false,
		},
		{
			"no registered device",
			ApplicationPayload{DeviceFingerprint: NewText("a")},
			"", false, false,
		},
		{"ip matches", ApplicationPayload{ApplicantIP: NewText("203.0.113.7")}, "203.0.113.7", false, false},
		{"ip mapped", ApplicationPayload{ApplicantIP: NewText("203.0.113.7")}, "::ffff:203.0.113.7", false, false},
		{"ip differs", ApplicationPayload{ApplicantIP: NewText("203.0.113.7")}, "198.51.100.1", false, true},
		{"ip not observed", ApplicationPayload{ApplicantIP: NewText("203.0.113.7")}, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device, ip := MismatchFlags(&tt.payload, tt.observedIP)
			assert.Equal(t, tt.wantDevice, device)
			assert.Equal(t, tt.wantIP, ip)
		})
	}
}
