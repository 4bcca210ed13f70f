package testutils

import (
	"go.uber.org/goleak"
)

// VerifyTestMain checks that a package's tests leave no goroutines
// running.
func VerifyTestMain(m goleak.TestingM) {
	goleak.VerifyTestMain(m)
}
