package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNew_DerivesClassAndHint(t *testing.T) {
	tests := []struct {
		code      Code
		wantClass Class
		wantHint  bool
	}{
		{CodeGasTooHigh, ClassThresholdNotMet, false},
		{CodeEthereumRPCError, ClassInfrastructure, false},
		{CodeMalformedCredential, ClassConfiguration, true},
		{CodeContractNotDeployed, ClassConfiguration, true},
		{CodeContractReverted, ClassOnChainRejection, true},
		{Code("SOMETHING_NEW"), ClassInternal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code)
			if err.Class != tt.wantClass {
				t.Errorf("class = %s, want %s", err.Class, tt.wantClass)
			}
			if (err.Hint != "") != tt.wantHint {
				t.Errorf("hint = %q, want present=%v", err.Hint, tt.wantHint)
			}
		})
	}
}

func TestWithHint_Overrides(t *testing.T) {
	err := New(CodeContractReverted, WithHint("check allowance"))
	if err.Hint != "check allowance" {
		t.Errorf("hint = %q", err.Hint)
	}
}

func TestClassOf_ThroughWrapping(t *testing.T) {
	base := New(CodeVenueUnavailable, WithCause(context.DeadlineExceeded))
	wrapped := fmt.Errorf("fetch: %w", base)

	if got := ClassOf(wrapped); got != ClassInfrastructure {
		t.Errorf("ClassOf = %s", got)
	}
	if !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("cause not reachable through errors.Is")
	}
	if !errors.Is(wrapped, New(CodeVenueUnavailable)) {
		t.Error("code match through errors.Is failed")
	}
	if ClassOf(errors.New("plain")) != ClassInternal {
		t.Error("plain errors should be internal")
	}
}

func TestWrap_KeepsExistingAppError(t *testing.T) {
	orig := New(CodeMissingCredential)
	got := Wrap(orig, CodeInternalError, "stage 2")
	if got != orig {
		t.Fatal("Wrap should return the existing AppError")
	}
	if got.Context != "stage 2" {
		t.Errorf("context = %q", got.Context)
	}
	if Wrap(nil, CodeInternalError, "") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestLogArgs_IncludesHint(t *testing.T) {
	args := LogArgs(New(CodeRealTradingDisabled))
	found := false
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == "hint" {
			found = true
		}
	}
	if !found {
		t.Errorf("hint missing from %v", args)
	}
}
