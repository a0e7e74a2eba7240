package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/LegalMarc/marcut/internal/interpret"
	"github.com/LegalMarc/marcut/internal/span"
)

// RetryPolicy bounds how hard the extractor leans on a flaky backend.
// Delays double per attempt starting at BaseDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Extractor runs one chunk through the backend and interprets the
// response into spans, retrying transient failures and asking the model
// to correct malformed JSON once per attempt.
type Extractor struct {
	client Client
	interp *interpret.Interpreter
	policy RetryPolicy
	log    *zap.SugaredLogger
}

func NewExtractor(client Client, interp *interpret.Interpreter, policy RetryPolicy, log *zap.SugaredLogger) *Extractor {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Extractor{client: client, interp: interp, policy: policy, log: log}
}

// ExtractChunk returns document-absolute spans for one chunk window.
// Exhausting the retry budget yields ErrBackendUnavailable so the caller
// can degrade to rules-only output; permanent rejections (plain 4xx)
// propagate immediately.
func (e *Extractor) ExtractChunk(ctx context.Context, window string, windowOffset int, opts Options) ([]span.Span, error) {
	system := SystemPrompt()
	var lastErr error

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := e.policy.BaseDelay << (attempt - 2)
			e.log.Warnw("retrying model extraction", "attempt", attempt, "delay", delay, "error", lastErr)
			if err := sleepBackoff(ctx, delay); err != nil {
				return nil, err
			}
		}

		raw, err := e.client.Generate(ctx, system, window, opts)
		if err != nil {
			if !retryable(err) {
				return nil, err
			}
			lastErr = err
			continue
		}

		spans, err := e.interp.Interpret(raw, window, windowOffset)
		if err == nil {
			return spans, nil
		}
		if !errors.Is(err, interpret.ErrResponseParse) {
			return nil, err
		}

		// One self-correction pass: hand the model its own broken output.
		e.log.Warnw("model response was not valid JSON, requesting correction", "attempt", attempt)
		corrected, cerr := e.client.Generate(ctx, "", correctionPrompt(system, window, raw), opts)
		if cerr == nil {
			if spans, err := e.interp.Interpret(corrected, window, windowOffset); err == nil {
				return spans, nil
			}
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", ErrBackendUnavailable, e.policy.MaxAttempts, lastErr)
}

func correctionPrompt(system, window, invalid string) string {
	return fmt.Sprintf(`You are a JSON correction assistant. The previous response you provided was not valid JSON.
Original Task:
%s

Text to Analyze:
%s

Your invalid response was:
---
%s
---

Please correct your response. Return ONLY the valid JSON object that adheres to the schema. Do not include any other text or explanations.`,
		system, window, invalid)
}

// retryable classifies failures: server trouble, throttling, transport
// errors, and malformed responses are worth another attempt; an explicit
// client-side rejection or a canceled context is not.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

func sleepBackoff(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
