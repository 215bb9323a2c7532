package e2e

import (
	"os"
	"os/exec"
	"testing"
)

// runOnAllConfigs is a helper that runs a test on all configurations
func runOnAllConfigs(t *testing.T, testFunc func(t *testing.T, tc *TestContext)) {
	t.Helper()
	requireMountable(t)

	for _, config := range AllConfigurations() {
		t.Run(config.Name, func(t *testing.T) {
			tc := NewTestContext(t, config)
			defer tc.Cleanup()

			testFunc(t, tc)
		})
	}
}

// requireMountable skips unless the test can run mount(8).
func requireMountable(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("e2e tests mount an NFS export")
	}
	if os.Geteuid() != 0 {
		t.Skip("mounting NFS requires root")
	}
	if _, err := exec.LookPath("mount"); err != nil {
		t.Skip("mount not found")
	}
}
