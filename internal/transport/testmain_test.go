package transport_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain runs all tests in the transport_test package and checks for
// goroutine leaks after all tests complete. TCPNetwork.Close must unblock
// every accept/dial/read goroutine it started for this to pass.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
