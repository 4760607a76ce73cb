package async

import (
	"context"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes all tasks concurrently and waits for every one of them.
// Failures are collected into an aggregate error, each prefixed with its task
// name, so one failing task never hides another.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "dns", Func: probeDNS},
//	    {Name: "orchestration", Func: probeHeat},
//	}
//	if err := RunParallel(ctx, tasks); err != nil {
//	    log.Info("some probes failed", "error", err)
//	}
func RunParallel(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	type result struct {
		index int
		err   error
	}

	resultChan := make(chan result, len(tasks))

	for i, task := range tasks {
		go func() {
			resultChan <- result{index: i, err: task.Func(ctx)}
		}()
	}

	// Collect in task order so the aggregate is deterministic.
	errs := make([]error, len(tasks))
	for range len(tasks) {
		res := <-resultChan
		if res.err != nil {
			errs[res.index] = fmt.Errorf("task %s: %w", tasks[res.index].Name, res.err)
		}
	}

	return utilerrors.NewAggregate(errs)
}
