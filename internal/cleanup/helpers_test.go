package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"

	"github.com/imamik/osclean/internal/config"
	"github.com/imamik/osclean/internal/filter"
	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/resource"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return logr.NewContext(context.Background(), testr.New(t))
}

// testTimeouts keeps every wait in the millisecond range.
func testTimeouts() *config.Timeouts {
	return &config.Timeouts{
		RetryAttempts:        3,
		NetworkRetryDelay:    time.Millisecond,
		LBRetryDelay:         time.Millisecond,
		RouterFIPWait:        time.Millisecond,
		SecGroupSettle:       time.Millisecond,
		InstancePollAttempts: 3,
		InstancePollInterval: time.Millisecond,
		VerifyAttempts:       3,
		VerifyInterval:       time.Millisecond,
		BulkVerifyBudget:     30 * time.Millisecond,
		BulkVerifyInterval:   time.Millisecond,
		StackDeleteTimeout:   5 * time.Millisecond,
	}
}

func newTestDeps(client *openstack.MockClient, supplied resource.Inventory) *Deps {
	return NewDeps(client, NewDiscovery(filter.MustNew("^test-"), supplied), testTimeouts())
}

// exists makes Get report every resource as present.
func exists(_ context.Context, kind resource.Kind, id string) (*resource.Resource, error) {
	return &resource.Resource{Kind: kind, ID: id}, nil
}

func apiErr(code int) error {
	return &openstack.APIError{StatusCode: code, Op: "test", Err: errTest}
}

func outcomeFor(t *testing.T, deps *Deps, kind resource.Kind, id string) resource.Outcome {
	t.Helper()
	for _, o := range deps.Recorder.Outcomes() {
		if o.Kind == kind && o.ID == id {
			return o
		}
	}
	t.Fatalf("no outcome recorded for %s/%s", kind, id)
	return resource.Outcome{}
}

func mutationStrings(m *openstack.MockClient) []string {
	var out []string
	for _, c := range m.Mutations() {
		out = append(out, c.String())
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
