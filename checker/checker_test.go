package checker

import (
	"testing"

	"github.com/merchantmoh-debug/ArkLang/errors"
	"github.com/merchantmoh-debug/ArkLang/parser"
)

func check(t *testing.T, src string) error {
	t.Helper()
	block, err := parser.ParseBlock(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return Check(block)
}

func wantKind(t *testing.T, err error, kind errors.Kind) *errors.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s violation, got nil", kind)
	}
	var arkErr *errors.Error
	if !errors.As(err, &arkErr) {
		t.Fatalf("error type = %T: %v", err, err)
	}
	if arkErr.Kind != kind {
		t.Fatalf("kind = %s, want %s (%v)", arkErr.Kind, kind, err)
	}
	return arkErr
}

func TestCheckAcceptsSharedReuse(t *testing.T) {
	err := check(t, `
func f(n: Int) -> Int {
    let a = n + n
    let b = a + a
    return b
}
`)
	if err != nil {
		t.Fatalf("shared values are freely reusable: %v", err)
	}
}

func TestCheckAcceptsSingleUse(t *testing.T) {
	err := check(t, `
func f() -> List<Int> {
    let xs = [1, 2, 3]
    return xs
}
`)
	if err != nil {
		t.Fatalf("single consumption must pass: %v", err)
	}
}

func TestCheckDoubleUse(t *testing.T) {
	err := check(t, `
func f() -> Unit {
    let xs = [1, 2]
    consume(xs)
    consume(xs)
}
`)
	arkErr := wantKind(t, err, errors.KindDoubleUse)
	if arkErr.Line != 5 {
		t.Fatalf("violation at line %d, want 5", arkErr.Line)
	}
}

func TestCheckLeak(t *testing.T) {
	err := check(t, `
func f() -> Unit {
    let xs = [1, 2, 3]
    return
}
`)
	wantKind(t, err, errors.KindLeak)
}

func TestCheckLeakOnRebind(t *testing.T) {
	err := check(t, `
func f() -> Unit {
    let xs = [1]
    let xs = [2]
    consume(xs)
}
`)
	wantKind(t, err, errors.KindLeak)
}

func TestCheckLinearParam(t *testing.T) {
	err := check(t, `
func f(xs: List<Int>) -> Unit {
    consume(xs)
    consume(xs)
}
`)
	wantKind(t, err, errors.KindDoubleUse)
}

func TestCheckLinearParamLeaks(t *testing.T) {
	err := check(t, `
func f(xs: List<Int>) -> Unit {
    return
}
`)
	wantKind(t, err, errors.KindLeak)
}

func TestCheckConsumeInLoop(t *testing.T) {
	// a linear value declared outside a loop would be consumed once
	// per iteration
	err := check(t, `
func f(n: Int) -> Unit {
    let xs = [1, 2]
    while n > 0 {
        consume(xs)
    }
}
`)
	wantKind(t, err, errors.KindDoubleUse)
}

func TestCheckLoopLocalLinearOK(t *testing.T) {
	err := check(t, `
func f(n: Int) -> Unit {
    while n > 0 {
        let xs = [1, 2]
        consume(xs)
    }
}
`)
	if err != nil {
		t.Fatalf("loop-local linear value is fine: %v", err)
	}
}

func TestCheckLinearFromCallResult(t *testing.T) {
	err := check(t, `
func make() -> List<Int> {
    return [1, 2]
}

func f() -> Unit {
    let xs = make()
}
`)
	wantKind(t, err, errors.KindLeak)
}

func TestCheckStructsAreLinear(t *testing.T) {
	err := check(t, `
struct Point { x: Int, y: Int }

func f() -> Unit {
    let p = Point { x: 1, y: 2 }
    use_point(p)
    use_point(p)
}
`)
	wantKind(t, err, errors.KindDoubleUse)
}

func TestCheckDeclaredTypeWins(t *testing.T) {
	// an explicit linear annotation makes the binding linear even when
	// the initializer looks shared
	err := check(t, `
func f() -> Unit {
    let xs: List<Int> = make()
}
`)
	wantKind(t, err, errors.KindLeak)
}

func TestCheckBranchesIndependent(t *testing.T) {
	err := check(t, `
func f(flag: Bool) -> Unit {
    if flag {
        let xs = [1]
        consume(xs)
    } else {
        let ys = [2]
        consume(ys)
    }
}
`)
	if err != nil {
		t.Fatalf("branch-local ownership must pass: %v", err)
	}
}

func TestCheckFailsBeforeAnythingRuns(t *testing.T) {
	// both violations present, the first one reported wins
	err := check(t, `
func f() -> Unit {
    let a = [1]
    consume(a)
    consume(a)
    let b = [2]
}
`)
	wantKind(t, err, errors.KindDoubleUse)
}
