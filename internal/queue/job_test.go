package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestNewJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	checkInID := uuid.New()

	job := NewJob(JobTypeSuggestionGeneration, userID, checkInID)

	if job.ID == uuid.Nil {
		t.Error("Expected job ID to be set")
	}
	if job.Type != JobTypeSuggestionGeneration {
		t.Errorf("Expected job type to be %s, got %s", JobTypeSuggestionGeneration, job.Type)
	}
	if job.UserID != userID {
		t.Errorf("Expected user ID to be %s, got %s", userID, job.UserID)
	}
	if job.CheckInID != checkInID {
		t.Errorf("Expected check-in ID to be %s, got %s", checkInID, job.CheckInID)
	}
	if job.Metadata == nil {
		t.Error("Expected metadata to be initialized")
	}
	if job.RetryCount != 0 {
		t.Errorf("Expected retry count to be 0, got %d", job.RetryCount)
	}
	if job.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected max retries to be %d, got %d", DefaultMaxRetries, job.MaxRetries)
	}
}

func TestJob_ShouldProcess(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name      string
		notBefore *time.Time
		notAfter  *time.Time
		want      bool
		expired   bool
	}{
		{"no time constraints", nil, nil, true, false},
		{"not before in past", timePtr(now.Add(-time.Hour)), nil, true, false},
		{"not before in future", timePtr(now.Add(time.Hour)), nil, false, false},
		{"not after in future", nil, timePtr(now.Add(time.Hour)), true, false},
		{"not after in past", nil, timePtr(now.Add(-time.Hour)), false, true},
		{"inside window", timePtr(now.Add(-time.Hour)), timePtr(now.Add(time.Hour)), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := &Job{ID: uuid.New(), Type: JobTypeSuggestionGeneration, NotBefore: tt.notBefore, NotAfter: tt.notAfter}
			if got := job.ShouldProcess(); got != tt.want {
				t.Errorf("Expected ShouldProcess() = %v, got %v", tt.want, got)
			}
			if got := job.IsExpired(); got != tt.expired {
				t.Errorf("Expected IsExpired() = %v, got %v", tt.expired, got)
			}
		})
	}
}

func TestJob_Retry(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeSuggestionGeneration, uuid.New(), uuid.New())
	for i := 0; i < DefaultMaxRetries; i++ {
		if !job.CanRetry() {
			t.Fatalf("Expected job to be retryable at attempt %d", i)
		}
		job.IncrementRetry()
	}
	if job.CanRetry() {
		t.Error("Expected job to exhaust retries")
	}
}

func TestJob_RetryAfter(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeSuggestionRegeneration, uuid.New(), uuid.New())
	next := job.RetryAfter(time.Minute)

	if job.RetryCount != 0 || job.NotBefore != nil {
		t.Error("Expected RetryAfter not to modify the original job")
	}
	if next.RetryCount != 1 {
		t.Errorf("Expected retry count 1, got %d", next.RetryCount)
	}
	if next.NotBefore == nil || time.Until(*next.NotBefore) < 50*time.Second {
		t.Errorf("Expected NotBefore about a minute ahead, got %v", next.NotBefore)
	}
	if next.ID != job.ID || next.CheckInID != job.CheckInID {
		t.Error("Expected retried job to keep its identity")
	}
}

func TestBuildPublishing(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeSuggestionGeneration, uuid.New(), uuid.New())
	job.NotBefore = timePtr(time.Now().Add(time.Minute))
	job.NotAfter = timePtr(time.Now().Add(time.Hour))

	p, delayed, err := buildPublishing(job, true)
	if err != nil {
		t.Fatalf("buildPublishing: %v", err)
	}
	if !delayed {
		t.Error("Expected future NotBefore to use the delayed exchange")
	}
	if _, ok := p.Headers["x-delay"]; !ok {
		t.Error("Expected x-delay header")
	}
	if p.Expiration == "" {
		t.Error("Expected expiration from NotAfter")
	}
	if p.MessageId != job.ID.String() {
		t.Errorf("Expected message id %s, got %s", job.ID, p.MessageId)
	}

	var decoded Job
	if err := json.Unmarshal(p.Body, &decoded); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if decoded.CheckInID != job.CheckInID {
		t.Errorf("Expected check-in id %s in body, got %s", job.CheckInID, decoded.CheckInID)
	}

	_, delayed, err = buildPublishing(job, false)
	if err != nil {
		t.Fatalf("buildPublishing: %v", err)
	}
	if delayed {
		t.Error("Expected no delayed exchange when the plugin is unavailable")
	}
}

func TestDeliveredBefore(t *testing.T) {
	t.Parallel()

	cutoff := time.Now().Add(-24 * time.Hour)

	old := amqp.Delivery{Timestamp: cutoff.Add(-time.Hour)}
	if !deliveredBefore(old, cutoff) {
		t.Error("Expected old message to be purged")
	}
	fresh := amqp.Delivery{Timestamp: time.Now()}
	if deliveredBefore(fresh, cutoff) {
		t.Error("Expected fresh message to be kept")
	}

	job := NewJob(JobTypeSuggestionGeneration, uuid.New(), uuid.New())
	job.CreatedAt = cutoff.Add(-time.Minute)
	body, _ := json.Marshal(job)
	if !deliveredBefore(amqp.Delivery{Body: body}, cutoff) {
		t.Error("Expected body timestamp to be used when the header is missing")
	}
	if !deliveredBefore(amqp.Delivery{Body: []byte("not json")}, cutoff) {
		t.Error("Expected undecodable message to be purged")
	}
}
