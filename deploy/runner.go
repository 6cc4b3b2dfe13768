// Package deploy submits compiled templates to the platform and runs the
// post-deploy queue. It is the thin boundary around the external
// collaborators: the ARM deployment API and the zip upload endpoint.
package deploy

import (
	"context"
	"log/slog"

	"github.com/AltairaLabs/armature/arm"
)

// Outcome is the result of one post-deploy task.
type Outcome struct {
	// Resource is the resource the task acted on.
	Resource arm.ResourceName
	// Err is nil on success and a *TaskError on failure.
	Err error
}

// Failed reports whether the task failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// RunPostDeploy executes tasks strictly sequentially, in declaration
// order, after the template has been confirmed applied. One task's failure
// does not stop the remaining tasks: every outcome is collected and
// returned.
func RunPostDeploy(
	ctx context.Context,
	target arm.DeployTarget,
	tasks []arm.PostDeployTask,
	log *slog.Logger,
) []Outcome {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	outcomes := make([]Outcome, 0, len(tasks))
	for _, task := range tasks {
		log.Info("running post-deploy task", "resource", task.Resource)
		err := task.Run(ctx, target)
		if err != nil {
			err = &TaskError{Resource: task.Resource, Cause: err}
			log.Error("post-deploy task failed", "resource", task.Resource, "error", err)
		}
		outcomes = append(outcomes, Outcome{Resource: task.Resource, Err: err})
	}
	return outcomes
}

// Succeeded reports whether every outcome succeeded. The post-deploy
// phase as a whole succeeds only when all of its tasks did.
func Succeeded(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Failed() {
			return false
		}
	}
	return true
}
