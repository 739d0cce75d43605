package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	. "golfjudge/pkg/errors"
)

func TestErrorCode_Message(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{Success, "Success"},
		{LanguageNotSupported, "Programming language not supported"},
		{TimeLimitExceeded, "Execution timeout"},
		{ErrorCode(1), "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.Message(); got != tt.want {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if !CacheError.Retryable() || !JudgeQueueFull.Retryable() {
		t.Fatal("infrastructure codes should be retryable")
	}
	if ValidationFailed.Retryable() || LanguageNotSupported.Retryable() {
		t.Fatal("input errors should not be retryable")
	}
	if IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
	if !IsRetryable(fmt.Errorf("outer: %w", New(QueueError))) {
		t.Fatal("wrapped queue error should be retryable")
	}
}

func TestWrapKeepsMessage(t *testing.T) {
	base := Newf(CacheError, "redis down")
	err := Wrap(base, JudgeSystemError)
	if err.Code != JudgeSystemError {
		t.Fatalf("code = %v", err.Code)
	}
	if err.Error() != "redis down" {
		t.Fatalf("message = %q", err.Error())
	}
	if base.Code != CacheError {
		t.Fatal("wrap must not mutate the original error")
	}
	if Wrap(nil, InvalidParams) != nil {
		t.Fatal("wrap of nil should be nil")
	}
}

func TestWrapfUnwrap(t *testing.T) {
	root := errors.New("disk full")
	err := Wrapf(root, WorkspaceError, "write source: %v", root)
	if !errors.Is(err, root) {
		t.Fatal("errors.Is should see the root cause")
	}
	if GetCode(fmt.Errorf("ctx: %w", err)) != WorkspaceError {
		t.Fatal("GetCode should walk the chain")
	}
	if GetCode(root) != InternalServerError {
		t.Fatal("uncoded errors map to InternalServerError")
	}
}

func TestHelpers(t *testing.T) {
	err := UnsupportedLanguage("cobol")
	if err.Error() != "Unsupported language: cobol" {
		t.Fatalf("message = %q", err.Error())
	}
	if !Is(err, LanguageNotSupported) {
		t.Fatal("expected LanguageNotSupported")
	}
	v := ValidationError("language", "required")
	if v.Details["field"] != "language" || v.Details["reason"] != "required" {
		t.Fatalf("details = %v", v.Details)
	}
	if v.Stack == "" {
		t.Fatal("expected captured stack")
	}
}

func TestHTTPStatusAndGetError(t *testing.T) {
	cases := map[ErrorCode]int{
		ValidationFailed:   http.StatusBadRequest,
		SubmissionNotFound: http.StatusNotFound,
		JudgeQueueFull:     http.StatusTooManyRequests,
		CodeTooLarge:       http.StatusRequestEntityTooLarge,
		JudgeSystemError:   http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Fatalf("%d.HTTPStatus() = %d, want %d", code, got, want)
		}
	}

	plain := errors.New("boom")
	if got := GetError(plain); got.Code != InternalServerError || !errors.Is(got, plain) {
		t.Fatalf("GetError(plain) = %+v", got)
	}
	coded := New(NotFound)
	if GetError(fmt.Errorf("wrapped: %w", coded)) != coded {
		t.Fatal("GetError should return the coded error in the chain")
	}
	if GetError(nil) != nil {
		t.Fatal("GetError(nil) should be nil")
	}
}
