package arm

import "fmt"

// Compilation is the output of compiling a configuration batch: the
// deployment template, the secret parameter manifest, and the ordered
// post-deploy queue.
type Compilation struct {
	// Template is the serializable deployment document.
	Template *Template

	// Parameters lists the unique secret parameter names the deployment
	// requires, in first-declared order. Values are supplied out of band.
	Parameters []string

	// PostDeploy holds the tasks to run, strictly in order, after the
	// template has been confirmed applied.
	PostDeploy []PostDeployTask
}

// Compile walks the configuration batch in input order and flattens it into
// a Compilation.
//
// Every builder is validated before any resource is emitted: a template
// referencing an undeclared dependency is worse than no template, so a
// single invalid configuration aborts the whole batch. Resource order is
// preserved within and across builders; the platform performs its own
// dependency ordering from the dependsOn references, so no topological sort
// happens here. Duplicate secret parameter names collapse to the first
// occurrence. An empty batch compiles to an empty, valid Compilation.
func Compile(loc Location, builders ...Builder) (*Compilation, error) {
	for _, b := range builders {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("validate %q: %w", b.DependencyName(), err)
		}
	}

	peers := newPeers(builders)

	var (
		resources []Resource
		params    []string
		seen      = map[string]bool{}
		tasks     []PostDeployTask
	)
	for _, b := range builders {
		resources = append(resources, b.Build(loc, peers)...)

		if src, ok := b.(SecretSource); ok {
			for _, name := range src.SecretParameters() {
				if seen[name] {
					continue
				}
				seen[name] = true
				params = append(params, name)
			}
		}

		if src, ok := b.(PostDeploySource); ok {
			tasks = append(tasks, src.PostDeployTasks()...)
		}
	}

	return &Compilation{
		Template:   &Template{resources: resources, parameters: params},
		Parameters: params,
		PostDeploy: tasks,
	}, nil
}
