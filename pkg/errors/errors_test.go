package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("disk gone")
	err := Wrap(CodeDependency, cause, "saving checkpoint")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsFindsCodedErrorInChain(t *testing.T) {
	inner := New(CodeUnknownCategory, "category not in vocabulary")
	wrapped := fmt.Errorf("encoding row 3: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected coded error in chain")
	}
	if typed.Code() != CodeUnknownCategory {
		t.Fatalf("unexpected code %s", typed.Code())
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.PublicMessage != "internal server error" {
		t.Fatalf("unexpected fallback metadata: %+v", meta)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(CodeDependency, "db unreachable")) {
		t.Fatal("dependency errors are retryable")
	}
	if IsRetryable(New(CodeValidation, "missing keys")) {
		t.Fatal("validation errors are not retryable")
	}
	if IsRetryable(stdErrors.New("plain")) {
		t.Fatal("uncoded errors are not retryable")
	}
}
