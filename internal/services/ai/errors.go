package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
)

const codeInsufficientQuota = "insufficient_quota"

// APIError is a throttling response from the generator backend. Quota
// exhaustion is Permanent until the account is topped up.
type APIError struct {
	Message     string
	Type        string
	Code        string
	StatusCode  int
	RetryAfter  *time.Duration
	IsPermanent bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

func newThrottleError(message, typ, code string) *APIError {
	e := &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Message:     message,
		Type:        typ,
		Code:        code,
		IsPermanent: code == codeInsufficientQuota,
	}
	wait := time.Minute
	if e.IsPermanent {
		wait = time.Hour
	}
	e.RetryAfter = &wait
	return e
}

// ExtractAPIError returns the throttling details carried by err, or nil when
// err is not a 429. SDK errors are read directly; anything else is matched
// on its message, which may embed the JSON error body.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		if sdkErr.StatusCode != http.StatusTooManyRequests {
			return nil
		}
		return newThrottleError(sdkErr.Message, sdkErr.Type, sdkErr.Code)
	}

	msg := err.Error()
	if !strings.Contains(msg, "429") {
		return nil
	}
	var body struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	}
	start, end := strings.Index(msg, "{"), strings.LastIndex(msg, "}")
	if start >= 0 && end > start && json.Unmarshal([]byte(msg[start:end+1]), &body) == nil {
		return newThrottleError(body.Message, body.Type, body.Code)
	}
	return newThrottleError(msg, "rate_limit_error", "")
}

// IsRateLimitError reports a temporary throttle.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests && !apiErr.IsPermanent
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

// IsQuotaError reports an exhausted account quota.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsPermanent || apiErr.Code == codeInsufficientQuota
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, codeInsufficientQuota) || strings.Contains(msg, "quota") || strings.Contains(msg, "billing")
}

type backoff struct {
	base, max time.Duration
}

var (
	quotaBackoff     = backoff{base: time.Hour, max: 24 * time.Hour}
	rateLimitBackoff = backoff{base: time.Minute, max: 15 * time.Minute}
	defaultBackoff   = backoff{base: 5 * time.Second, max: 5 * time.Minute}
)

func (b backoff) after(attempt int) time.Duration {
	attempt = min(max(attempt, 0), 10)
	return min(b.base<<uint(attempt), b.max)
}

// GetRetryDelay returns how long to wait before retry number attempt+1
// after err.
func GetRetryDelay(err error, attempt int) time.Duration {
	switch {
	case IsQuotaError(err):
		return quotaBackoff.after(attempt)
	case IsRateLimitError(err):
		delay := rateLimitBackoff.after(attempt)
		if apiErr := ExtractAPIError(err); apiErr != nil && apiErr.RetryAfter != nil && *apiErr.RetryAfter > delay {
			delay = *apiErr.RetryAfter
		}
		return delay
	default:
		return defaultBackoff.after(attempt)
	}
}
