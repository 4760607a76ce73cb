package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds every wait, poll and retry knob used by the cleanup engine.
// Values come from defaults, then the config file, then environment variables.
type Timeouts struct {
	RetryAttempts        int           `mapstructure:"retry_attempts"`         // Attempts for conflict retries
	NetworkRetryDelay    time.Duration `mapstructure:"network_retry_delay"`    // Delay between router/network/secgroup retries
	LBRetryDelay         time.Duration `mapstructure:"lb_retry_delay"`         // Delay between load balancer retries
	RouterFIPWait        time.Duration `mapstructure:"router_fip_wait"`        // Settle time after deleting a router's floating IPs
	SecGroupSettle       time.Duration `mapstructure:"secgroup_settle"`        // Settle time before deleting security groups
	InstancePollAttempts int           `mapstructure:"instance_poll_attempts"` // Polls while waiting for instances to vanish
	InstancePollInterval time.Duration `mapstructure:"instance_poll_interval"` // Interval between instance polls
	VerifyAttempts       int           `mapstructure:"verify_attempts"`        // Polls for single-resource verification
	VerifyInterval       time.Duration `mapstructure:"verify_interval"`        // Interval for single-resource verification
	BulkVerifyBudget     time.Duration `mapstructure:"bulk_verify_budget"`     // Wall-clock budget for bulk verification
	BulkVerifyInterval   time.Duration `mapstructure:"bulk_verify_interval"`   // Interval between bulk verification sweeps
	StackDeleteTimeout   time.Duration `mapstructure:"stack_delete_timeout"`   // Wait for asynchronous Heat stack deletion
}

// DefaultTimeouts returns the built-in values.
func DefaultTimeouts() *Timeouts {
	return &Timeouts{
		RetryAttempts:        3,
		NetworkRetryDelay:    5 * time.Second,
		LBRetryDelay:         10 * time.Second,
		RouterFIPWait:        5 * time.Second,
		SecGroupSettle:       5 * time.Second,
		InstancePollAttempts: 30,
		InstancePollInterval: 2 * time.Second,
		VerifyAttempts:       10,
		VerifyInterval:       2 * time.Second,
		BulkVerifyBudget:     300 * time.Second,
		BulkVerifyInterval:   3 * time.Second,
		StackDeleteTimeout:   120 * time.Second,
	}
}

// LoadTimeouts returns the defaults with environment overrides applied.
// If an environment variable is not set or invalid, the default value is kept.
//
// Environment Variables:
//   - OSCLEAN_RETRY_ATTEMPTS (default: 3)
//   - OSCLEAN_NETWORK_RETRY_DELAY (default: 5s)
//   - OSCLEAN_LB_RETRY_DELAY (default: 10s)
//   - OSCLEAN_ROUTER_FIP_WAIT (default: 5s)
//   - OSCLEAN_SECGROUP_SETTLE (default: 5s)
//   - OSCLEAN_INSTANCE_POLL_ATTEMPTS (default: 30)
//   - OSCLEAN_INSTANCE_POLL_INTERVAL (default: 2s)
//   - OSCLEAN_VERIFY_ATTEMPTS (default: 10)
//   - OSCLEAN_VERIFY_INTERVAL (default: 2s)
//   - OSCLEAN_BULK_VERIFY_BUDGET (default: 300s)
//   - OSCLEAN_BULK_VERIFY_INTERVAL (default: 3s)
//   - OSCLEAN_STACK_DELETE_TIMEOUT (default: 120s)
func LoadTimeouts() *Timeouts {
	return DefaultTimeouts().WithEnv()
}

// WithEnv applies environment overrides on top of t and returns it.
func (t *Timeouts) WithEnv() *Timeouts {
	t.RetryAttempts = parseInt("OSCLEAN_RETRY_ATTEMPTS", t.RetryAttempts)
	t.NetworkRetryDelay = parseDuration("OSCLEAN_NETWORK_RETRY_DELAY", t.NetworkRetryDelay)
	t.LBRetryDelay = parseDuration("OSCLEAN_LB_RETRY_DELAY", t.LBRetryDelay)
	t.RouterFIPWait = parseDuration("OSCLEAN_ROUTER_FIP_WAIT", t.RouterFIPWait)
	t.SecGroupSettle = parseDuration("OSCLEAN_SECGROUP_SETTLE", t.SecGroupSettle)
	t.InstancePollAttempts = parseInt("OSCLEAN_INSTANCE_POLL_ATTEMPTS", t.InstancePollAttempts)
	t.InstancePollInterval = parseDuration("OSCLEAN_INSTANCE_POLL_INTERVAL", t.InstancePollInterval)
	t.VerifyAttempts = parseInt("OSCLEAN_VERIFY_ATTEMPTS", t.VerifyAttempts)
	t.VerifyInterval = parseDuration("OSCLEAN_VERIFY_INTERVAL", t.VerifyInterval)
	t.BulkVerifyBudget = parseDuration("OSCLEAN_BULK_VERIFY_BUDGET", t.BulkVerifyBudget)
	t.BulkVerifyInterval = parseDuration("OSCLEAN_BULK_VERIFY_INTERVAL", t.BulkVerifyInterval)
	t.StackDeleteTimeout = parseDuration("OSCLEAN_STACK_DELETE_TIMEOUT", t.StackDeleteTimeout)
	return t
}

// merge copies every non-zero field of o into t.
func (t *Timeouts) merge(o *Timeouts) {
	if o == nil {
		return
	}
	if o.RetryAttempts != 0 {
		t.RetryAttempts = o.RetryAttempts
	}
	if o.NetworkRetryDelay != 0 {
		t.NetworkRetryDelay = o.NetworkRetryDelay
	}
	if o.LBRetryDelay != 0 {
		t.LBRetryDelay = o.LBRetryDelay
	}
	if o.RouterFIPWait != 0 {
		t.RouterFIPWait = o.RouterFIPWait
	}
	if o.SecGroupSettle != 0 {
		t.SecGroupSettle = o.SecGroupSettle
	}
	if o.InstancePollAttempts != 0 {
		t.InstancePollAttempts = o.InstancePollAttempts
	}
	if o.InstancePollInterval != 0 {
		t.InstancePollInterval = o.InstancePollInterval
	}
	if o.VerifyAttempts != 0 {
		t.VerifyAttempts = o.VerifyAttempts
	}
	if o.VerifyInterval != 0 {
		t.VerifyInterval = o.VerifyInterval
	}
	if o.BulkVerifyBudget != 0 {
		t.BulkVerifyBudget = o.BulkVerifyBudget
	}
	if o.BulkVerifyInterval != 0 {
		t.BulkVerifyInterval = o.BulkVerifyInterval
	}
	if o.StackDeleteTimeout != 0 {
		t.StackDeleteTimeout = o.StackDeleteTimeout
	}
}

// Validate rejects negative values and attempt counts below one.
func (t *Timeouts) Validate() error {
	ints := map[string]int{
		"retry_attempts":         t.RetryAttempts,
		"instance_poll_attempts": t.InstancePollAttempts,
		"verify_attempts":        t.VerifyAttempts,
	}
	for field, v := range ints {
		if v < 1 {
			return &Error{Field: "timeouts." + field, Msg: "must be at least 1"}
		}
	}
	durations := map[string]time.Duration{
		"network_retry_delay":    t.NetworkRetryDelay,
		"lb_retry_delay":         t.LBRetryDelay,
		"router_fip_wait":        t.RouterFIPWait,
		"secgroup_settle":        t.SecGroupSettle,
		"instance_poll_interval": t.InstancePollInterval,
		"verify_interval":        t.VerifyInterval,
		"bulk_verify_budget":     t.BulkVerifyBudget,
		"bulk_verify_interval":   t.BulkVerifyInterval,
		"stack_delete_timeout":   t.StackDeleteTimeout,
	}
	for field, v := range durations {
		if v < 0 {
			return &Error{Field: "timeouts." + field, Msg: "must not be negative"}
		}
	}
	return nil
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
