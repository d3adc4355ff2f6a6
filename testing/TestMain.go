// Package testing flips the binaries into test mode when blank-imported from
// a test.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("MAISON_TEST_MODE", "1")
	})
}

func init() {
	ensureTestMode()
}
