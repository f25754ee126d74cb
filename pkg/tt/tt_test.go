package tt

import (
	"fmt"
	"testing"
)

func errStatus(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func countNonNil(errs ...error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}

// A plain nil argument must reach interface parameters as a typed nil.
func TestNilArgs(t *testing.T) {
	Test(t, Fn("errStatus", errStatus), Table{
		Args(nil).Rets(0),
		Args(fmt.Errorf("boom")).Rets(1),
	})
}

func TestNilVariadicArgs(t *testing.T) {
	Test(t, Fn("countNonNil", countNonNil), Table{
		Args().Rets(0),
		Args(nil, fmt.Errorf("boom"), nil).Rets(1),
	})
}
