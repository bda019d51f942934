package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseCheck,
				Kind:   KindDoubleUse,
				Path:   []string{"buf"},
				Line:   3,
				Column: 12,
				Detail: "consumed twice",
			},
			contains: []string{"[check]", "double_use", "buf", "line 3", "col 12", "consumed twice"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRun,
				Kind:  KindStackUnderflow,
			},
			contains: []string{"[run]", "stack_underflow"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseInterop,
				Kind:   KindExecution,
				Detail: "call failed",
				Cause:  errors.New("trap: unreachable"),
			},
			contains: []string{"[interop]", "execution", "call failed", "caused by", "trap: unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause through Unwrap")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseCheck,
		Kind:  KindLeak,
		Path:  []string{"x"},
	}

	if !err.Is(&Error{Phase: PhaseCheck, Kind: KindLeak}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseRun, Kind: KindLeak}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseCheck, Kind: KindDoubleUse}) {
		t.Error("Is should not match different kind")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseCompile, KindUnresolved).
		Path("main", "helper").
		At(7, 2).
		Detail("intrinsic %q unknown", "frobnicate").
		Build()

	if err.Phase != PhaseCompile || err.Kind != KindUnresolved {
		t.Errorf("builder lost phase/kind: %v %v", err.Phase, err.Kind)
	}
	if len(err.Path) != 2 || err.Path[1] != "helper" {
		t.Errorf("builder lost path: %v", err.Path)
	}
	if err.Line != 7 || err.Column != 2 {
		t.Errorf("builder lost position: %d:%d", err.Line, err.Column)
	}
	if !strings.Contains(err.Detail, "frobnicate") {
		t.Errorf("builder did not format detail: %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	if e := DoubleUse("res", 1, 1); e.Kind != KindDoubleUse || e.Phase != PhaseCheck {
		t.Errorf("DoubleUse: %v", e)
	}
	if e := Leak("res", 1, 1); e.Kind != KindLeak {
		t.Errorf("Leak: %v", e)
	}
	if e := FuelExhausted(100); !strings.Contains(e.Detail, "100") {
		t.Errorf("FuelExhausted detail: %q", e.Detail)
	}
	if e := HashMismatch("aa", "bb"); e.Kind != KindHashMismatch {
		t.Errorf("HashMismatch: %v", e)
	}
	if e := NotFound(PhaseInterop, "export", "add"); !strings.Contains(e.Detail, `"add"`) {
		t.Errorf("NotFound detail: %q", e.Detail)
	}
}
