package oserr

import (
	"fmt"
	"testing"

	"src.oopis.sh/pkg/tt"
)

func TestExitCode(t *testing.T) {
	tt.Test(t, tt.Fn("ExitCode", func(e *Error) int { return e.ExitCode() }), tt.Table{
		tt.Args(Newf(Usage, "bad flag")).Rets(StatusUsage),
		tt.Args(Newf(PermissionDenied, "no")).Rets(StatusPermissionDenied),
		tt.Args(Newf(Cancelled, "stop")).Rets(StatusCancelled),
		tt.Args(Newf(NotFound, "nope")).Rets(StatusError),
		tt.Args(&Error{Kind: NotFound, Message: "x", Code: StatusCmdNotFound}).
			Rets(StatusCmdNotFound),
	})
}

func TestExitCodeOf(t *testing.T) {
	tt.Test(t, tt.Fn("ExitCodeOf", ExitCodeOf), tt.Table{
		tt.Args(nil).Rets(StatusOK),
		tt.Args(fmt.Errorf("plain")).Rets(StatusError),
		tt.Args(fmt.Errorf("wrapped: %w", Newf(Usage, "u"))).Rets(StatusUsage),
	})
}

func TestKindOf(t *testing.T) {
	tt.Test(t, tt.Fn("KindOf", KindOf), tt.Table{
		tt.Args(Newf(Exists, "e")).Rets(Exists),
		tt.Args(fmt.Errorf("plain")).Rets(Internal),
	})
}

func TestWithSuggestion(t *testing.T) {
	err := Newf(NotFound, "no such command").WithSuggestion("try help")
	if err.Suggestion != "try help" {
		t.Errorf("got suggestion %q, want %q", err.Suggestion, "try help")
	}
}
