package browser

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	code := m.Run()
	cleanupSharedDrupalTestEnv()
	os.Exit(code)
}
