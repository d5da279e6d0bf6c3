package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("GESTOR_TEST_MODE", "1")
		if os.Getenv("SESSION_STORE") == "" {
			_ = os.Setenv("SESSION_STORE", "memory")
		}
		if os.Getenv("VERIFY_DELAY") == "" {
			_ = os.Setenv("VERIFY_DELAY", "0s")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
