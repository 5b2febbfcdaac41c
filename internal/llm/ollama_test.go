package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestComplete_HonorsContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	o, err := NewOllama(srv.URL, "test-model")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = o.Complete(ctx, "system", "prompt", 16)
	if err == nil {
		t.Fatal("expected an error when the context expires")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Complete blocked %s past the context deadline", elapsed)
	}
}

func TestEnforceTokenBudget(t *testing.T) {
	long := strings.Repeat("x", 100)
	tests := []struct {
		name      string
		text      string
		maxTokens int
		wantLen   int
	}{
		{"under budget", long, 1000, 100},
		{"over budget", long, 10, 40},
		{"zero means unbounded", long, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := enforceTokenBudget(tt.text, tt.maxTokens)
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}
