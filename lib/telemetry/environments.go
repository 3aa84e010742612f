package telemetry

import (
	"context"
	"os"
	"sync"
	"testing"

	"gamestats/lib/configutil"
)

var (
	setupTestEnvironments = map[string]struct{}{}
	setupTestMutex        sync.Mutex
)

// SetupForTesting exports the telemetry of a test run when a `telemetry.json5`
// exists somewhere above the working directory, otherwise it does nothing.
func SetupForTesting(t testing.TB, serviceName string) func() {
	setupTestMutex.Lock()
	defer setupTestMutex.Unlock()

	_, setupAlready := setupTestEnvironments[serviceName]
	if setupAlready {
		return func() {}
	}
	setupTestEnvironments[serviceName] = struct{}{}

	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if os.IsNotExist(err) {
		return func() {}
	}
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	tel, err := Setup(ctx, serviceName, config)
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := tel.Shutdown(ctx)
		if err != nil {
			t.Error(err)
		}
	}
}
