package worker

import (
	"os"
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that once Run returns, its recovery and heartbeat
// goroutines have actually exited rather than leaking past ctx
// cancellation.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("time.Sleep"),
	)
	os.Exit(m.Run())
}
