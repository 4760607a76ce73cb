package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadTimeouts_Defaults(t *testing.T) {
	clearTimeoutEnvVars(t)

	timeouts := LoadTimeouts()

	if timeouts.RetryAttempts != 3 {
		t.Errorf("Expected RetryAttempts default 3, got %d", timeouts.RetryAttempts)
	}
	if timeouts.NetworkRetryDelay != 5*time.Second {
		t.Errorf("Expected NetworkRetryDelay default 5s, got %v", timeouts.NetworkRetryDelay)
	}
	if timeouts.LBRetryDelay != 10*time.Second {
		t.Errorf("Expected LBRetryDelay default 10s, got %v", timeouts.LBRetryDelay)
	}
	if timeouts.RouterFIPWait != 5*time.Second {
		t.Errorf("Expected RouterFIPWait default 5s, got %v", timeouts.RouterFIPWait)
	}
	if timeouts.SecGroupSettle != 5*time.Second {
		t.Errorf("Expected SecGroupSettle default 5s, got %v", timeouts.SecGroupSettle)
	}
	if timeouts.InstancePollAttempts != 30 {
		t.Errorf("Expected InstancePollAttempts default 30, got %d", timeouts.InstancePollAttempts)
	}
	if timeouts.InstancePollInterval != 2*time.Second {
		t.Errorf("Expected InstancePollInterval default 2s, got %v", timeouts.InstancePollInterval)
	}
	if timeouts.VerifyAttempts != 10 {
		t.Errorf("Expected VerifyAttempts default 10, got %d", timeouts.VerifyAttempts)
	}
	if timeouts.VerifyInterval != 2*time.Second {
		t.Errorf("Expected VerifyInterval default 2s, got %v", timeouts.VerifyInterval)
	}
	if timeouts.BulkVerifyBudget != 300*time.Second {
		t.Errorf("Expected BulkVerifyBudget default 300s, got %v", timeouts.BulkVerifyBudget)
	}
	if timeouts.BulkVerifyInterval != 3*time.Second {
		t.Errorf("Expected BulkVerifyInterval default 3s, got %v", timeouts.BulkVerifyInterval)
	}
	if timeouts.StackDeleteTimeout != 120*time.Second {
		t.Errorf("Expected StackDeleteTimeout default 120s, got %v", timeouts.StackDeleteTimeout)
	}
}

func TestLoadTimeouts_EnvVars(t *testing.T) {
	clearTimeoutEnvVars(t)

	t.Setenv("OSCLEAN_RETRY_ATTEMPTS", "5")
	t.Setenv("OSCLEAN_NETWORK_RETRY_DELAY", "1s")
	t.Setenv("OSCLEAN_LB_RETRY_DELAY", "2s")
	t.Setenv("OSCLEAN_ROUTER_FIP_WAIT", "3s")
	t.Setenv("OSCLEAN_SECGROUP_SETTLE", "4s")
	t.Setenv("OSCLEAN_INSTANCE_POLL_ATTEMPTS", "7")
	t.Setenv("OSCLEAN_INSTANCE_POLL_INTERVAL", "500ms")
	t.Setenv("OSCLEAN_VERIFY_ATTEMPTS", "2")
	t.Setenv("OSCLEAN_VERIFY_INTERVAL", "100ms")
	t.Setenv("OSCLEAN_BULK_VERIFY_BUDGET", "1m")
	t.Setenv("OSCLEAN_BULK_VERIFY_INTERVAL", "1s")
	t.Setenv("OSCLEAN_STACK_DELETE_TIMEOUT", "10m")

	timeouts := LoadTimeouts()

	if timeouts.RetryAttempts != 5 {
		t.Errorf("Expected RetryAttempts 5, got %d", timeouts.RetryAttempts)
	}
	if timeouts.NetworkRetryDelay != time.Second {
		t.Errorf("Expected NetworkRetryDelay 1s, got %v", timeouts.NetworkRetryDelay)
	}
	if timeouts.LBRetryDelay != 2*time.Second {
		t.Errorf("Expected LBRetryDelay 2s, got %v", timeouts.LBRetryDelay)
	}
	if timeouts.RouterFIPWait != 3*time.Second {
		t.Errorf("Expected RouterFIPWait 3s, got %v", timeouts.RouterFIPWait)
	}
	if timeouts.SecGroupSettle != 4*time.Second {
		t.Errorf("Expected SecGroupSettle 4s, got %v", timeouts.SecGroupSettle)
	}
	if timeouts.InstancePollAttempts != 7 {
		t.Errorf("Expected InstancePollAttempts 7, got %d", timeouts.InstancePollAttempts)
	}
	if timeouts.InstancePollInterval != 500*time.Millisecond {
		t.Errorf("Expected InstancePollInterval 500ms, got %v", timeouts.InstancePollInterval)
	}
	if timeouts.VerifyAttempts != 2 {
		t.Errorf("Expected VerifyAttempts 2, got %d", timeouts.VerifyAttempts)
	}
	if timeouts.VerifyInterval != 100*time.Millisecond {
		t.Errorf("Expected VerifyInterval 100ms, got %v", timeouts.VerifyInterval)
	}
	if timeouts.BulkVerifyBudget != time.Minute {
		t.Errorf("Expected BulkVerifyBudget 1m, got %v", timeouts.BulkVerifyBudget)
	}
	if timeouts.BulkVerifyInterval != time.Second {
		t.Errorf("Expected BulkVerifyInterval 1s, got %v", timeouts.BulkVerifyInterval)
	}
	if timeouts.StackDeleteTimeout != 10*time.Minute {
		t.Errorf("Expected StackDeleteTimeout 10m, got %v", timeouts.StackDeleteTimeout)
	}
}

func TestLoadTimeouts_InvalidValues(t *testing.T) {
	clearTimeoutEnvVars(t)

	t.Setenv("OSCLEAN_NETWORK_RETRY_DELAY", "invalid")
	t.Setenv("OSCLEAN_RETRY_ATTEMPTS", "not-a-number")

	timeouts := LoadTimeouts()

	if timeouts.NetworkRetryDelay != 5*time.Second {
		t.Errorf("Expected NetworkRetryDelay to fall back to default 5s, got %v", timeouts.NetworkRetryDelay)
	}
	if timeouts.RetryAttempts != 3 {
		t.Errorf("Expected RetryAttempts to fall back to default 3, got %d", timeouts.RetryAttempts)
	}
}

func TestTimeouts_Merge(t *testing.T) {
	t.Parallel()
	base := DefaultTimeouts()
	base.merge(&Timeouts{RetryAttempts: 9, SecGroupSettle: time.Millisecond})

	if base.RetryAttempts != 9 {
		t.Errorf("Expected merged RetryAttempts 9, got %d", base.RetryAttempts)
	}
	if base.SecGroupSettle != time.Millisecond {
		t.Errorf("Expected merged SecGroupSettle 1ms, got %v", base.SecGroupSettle)
	}
	if base.LBRetryDelay != 10*time.Second {
		t.Errorf("Zero fields must not override, got LBRetryDelay %v", base.LBRetryDelay)
	}

	base.merge(nil)
	if base.RetryAttempts != 9 {
		t.Errorf("nil merge must be a no-op")
	}
}

func TestTimeouts_Validate(t *testing.T) {
	t.Parallel()
	if err := DefaultTimeouts().Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}

	bad := DefaultTimeouts()
	bad.RetryAttempts = 0
	if err := bad.Validate(); !IsError(err) {
		t.Errorf("Expected config error for zero attempts, got %v", err)
	}

	bad = DefaultTimeouts()
	bad.BulkVerifyBudget = -time.Second
	if err := bad.Validate(); !IsError(err) {
		t.Errorf("Expected config error for negative budget, got %v", err)
	}
}

func clearTimeoutEnvVars(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"OSCLEAN_RETRY_ATTEMPTS",
		"OSCLEAN_NETWORK_RETRY_DELAY",
		"OSCLEAN_LB_RETRY_DELAY",
		"OSCLEAN_ROUTER_FIP_WAIT",
		"OSCLEAN_SECGROUP_SETTLE",
		"OSCLEAN_INSTANCE_POLL_ATTEMPTS",
		"OSCLEAN_INSTANCE_POLL_INTERVAL",
		"OSCLEAN_VERIFY_ATTEMPTS",
		"OSCLEAN_VERIFY_INTERVAL",
		"OSCLEAN_BULK_VERIFY_BUDGET",
		"OSCLEAN_BULK_VERIFY_INTERVAL",
		"OSCLEAN_STACK_DELETE_TIMEOUT",
	} {
		// t.Setenv registers the restore; Unsetenv then clears it for this test.
		t.Setenv(name, "")
		_ = os.Unsetenv(name)
	}
}
