package lang

import (
	"context"
	"errors"
	"testing"
)

type stubClient struct {
	answer string
	err    error
	calls  int
}

func (s *stubClient) Complete(_ context.Context, _, _ string, _ int) (string, error) {
	s.calls++
	return s.answer, s.err
}

func TestDetect_ClassifierAnswer(t *testing.T) {
	d := NewDetector(&stubClient{answer: "java"})
	if got := d.Detect(context.Background(), "class Main {}"); got != Java {
		t.Errorf("Detect = %q, want java", got)
	}
}

func TestDetect_NormalizesNoisyAnswer(t *testing.T) {
	d := NewDetector(&stubClient{answer: "  C++\n"})
	if got := d.Detect(context.Background(), "std::cout << 1;"); got != CPP {
		t.Errorf("Detect = %q, want cpp", got)
	}
}

func TestDetect_OutOfSetAnswerIsUnknown(t *testing.T) {
	d := NewDetector(&stubClient{answer: "haskell"})
	if got := d.Detect(context.Background(), "def f(): pass"); got != Unknown {
		t.Errorf("Detect = %q, want unknown (rejected upstream)", got)
	}
}

func TestDetect_BackendFailureFallsBackToRules(t *testing.T) {
	client := &stubClient{err: errors.New("backend down")}
	d := NewDetector(client)

	got := d.Detect(context.Background(), "#include <stdio.h>\nint main(void){ printf(\"x\"); }")
	if got != C {
		t.Errorf("Detect = %q, want c via marker fallback", got)
	}
	if client.calls != 1 {
		t.Errorf("client called %d times, want 1", client.calls)
	}
}

func TestDetect_NilClientUsesRules(t *testing.T) {
	d := NewDetector(nil)
	if got := d.Detect(context.Background(), "def f():\n    return 1\n"); got != Python {
		t.Errorf("Detect = %q, want python", got)
	}
}

func TestDetect_Idempotent(t *testing.T) {
	d := NewDetector(&stubClient{err: errors.New("always down")})
	code := "public class A { public static void main(String[] a) {} }"

	first := d.Detect(context.Background(), code)
	for i := 0; i < 3; i++ {
		if got := d.Detect(context.Background(), code); got != first {
			t.Fatalf("Detect not idempotent: %q then %q", first, got)
		}
	}
}
