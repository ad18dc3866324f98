package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/gleaner/document"
	"github.com/use-agent/gleaner/models"
)

var errTransient = models.NewScrapeError(models.ErrCodeTableNotFound, "not rendered yet", nil)

func transientOnly(err error) bool {
	return models.IsCode(err, models.ErrCodeTableNotFound)
}

func okDoc(t *testing.T) document.Document {
	t.Helper()
	doc, err := document.Parse("<p>ok</p>")
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	p := Policy{Timeout: 100 * time.Millisecond, PollInterval: 2 * time.Millisecond}

	calls := 0
	start := time.Now()
	doc, err := p.Do(context.Background(), func(ctx context.Context) (document.Document, error) {
		calls++
		if calls < 3 {
			return document.Document{}, errTransient
		}
		return okDoc(t), nil
	}, transientOnly)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if doc.Root() == nil {
		t.Error("expected a document")
	}
	if elapsed := time.Since(start); elapsed > p.Timeout+p.PollInterval {
		t.Errorf("exceeded time budget: %v", elapsed)
	}
}

func TestDo_NonTransientFailsImmediately(t *testing.T) {
	p := Policy{Timeout: 50 * time.Millisecond, PollInterval: time.Millisecond}

	permanent := models.NewScrapeError(models.ErrCodeNavigation, "connection refused", nil)
	calls := 0
	_, err := p.Do(context.Background(), func(ctx context.Context) (document.Document, error) {
		calls++
		return document.Document{}, permanent
	}, transientOnly)

	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
	if !errors.Is(err, permanent) {
		t.Errorf("expected the underlying error, got %v", err)
	}
	if models.Code(err) == models.ErrCodeRetryExhausted {
		t.Error("non-transient failure must not be reported as exhaustion")
	}
}

func TestDo_NilClassifierNeverRetries(t *testing.T) {
	p := Policy{Timeout: 50 * time.Millisecond, PollInterval: time.Millisecond}

	calls := 0
	_, err := p.Do(context.Background(), func(ctx context.Context) (document.Document, error) {
		calls++
		return document.Document{}, errTransient
	}, nil)

	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestDo_Exhaustion(t *testing.T) {
	p := Policy{Timeout: 5 * time.Millisecond, PollInterval: time.Millisecond}

	start := time.Now()
	_, err := p.Do(context.Background(), func(ctx context.Context) (document.Document, error) {
		return document.Document{}, errTransient
	}, transientOnly)

	if models.Code(err) != models.ErrCodeRetryExhausted {
		t.Fatalf("expected RETRY_EXHAUSTED, got %v", err)
	}
	// The last transient reason travels with the exhaustion error.
	if !errors.Is(err, errTransient) {
		t.Error("expected the last transient reason in the wrap chain")
	}
	// Total wall time may overshoot by at most one poll interval
	// (plus scheduling slack).
	if elapsed := time.Since(start); elapsed > p.Timeout+10*p.PollInterval {
		t.Errorf("exceeded time budget by too much: %v", elapsed)
	}
}

func TestDo_ContextCancelStopsPolling(t *testing.T) {
	p := Policy{Timeout: time.Minute, PollInterval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := p.Do(ctx, func(ctx context.Context) (document.Document, error) {
		calls++
		return document.Document{}, errTransient
	}, transientOnly)

	if models.Code(err) != models.ErrCodeRetryExhausted {
		t.Fatalf("expected RETRY_EXHAUSTED on cancel, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected context.Canceled in the wrap chain")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancel did not stop polling promptly: %v", elapsed)
	}
	if calls == 0 {
		t.Error("expected at least one attempt")
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(0, 0)
	if p.Timeout <= 0 || p.PollInterval <= 0 {
		t.Errorf("defaults not applied: %+v", p)
	}

	p = New(time.Second, time.Millisecond)
	if p.Timeout != time.Second || p.PollInterval != time.Millisecond {
		t.Errorf("explicit bounds not kept: %+v", p)
	}
}

func TestTransientCodes(t *testing.T) {
	c := TransientCodes(models.ErrCodeTableNotFound, models.ErrCodeNodeNotFound)

	if !c(errTransient) {
		t.Error("listed code should be transient")
	}
	if c(models.NewScrapeError(models.ErrCodeNavigation, "nope", nil)) {
		t.Error("unlisted code should not be transient")
	}
	if c(errors.New("plain error")) {
		t.Error("uncoded error should not be transient")
	}
	if c(nil) {
		t.Error("nil error should not be transient")
	}
}
