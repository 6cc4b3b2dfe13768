// Package arm implements the resource graph compiler: it turns a set of
// typed resource configurations into an ARM deployment template, a manifest
// of secure parameters, and an ordered queue of post-deploy tasks.
package arm

import (
	"context"
	"encoding/json"
)

// Location is an Azure region name as it appears in a resource's location
// field.
type Location string

// Well-known locations. The type is open; any valid region string works.
const (
	NorthEurope Location = "northeurope"
	WestEurope  Location = "westeurope"
	EastUS      Location = "eastus"
	WestUS      Location = "westus"
	UKSouth     Location = "uksouth"
)

// Resource is a single compiled template node. Implementations are closed
// per-kind structs that own their JSON shape: every field that appears,
// is omitted, or is emitted as an explicit null is a deliberate decision
// of the kind module, enforced in MarshalJSON.
type Resource interface {
	json.Marshaler

	// ResourceName returns the name other resources use in dependsOn lists.
	ResourceName() ResourceName
}

// Builder is the contract every resource-kind configuration satisfies. The
// compiler treats heterogeneous configurations uniformly through it.
type Builder interface {
	// DependencyName is the identifier peer configurations use to declare a
	// dependency on this one.
	DependencyName() ResourceName

	// Validate checks configuration invariants. It runs before any Build
	// call; a non-nil error aborts compilation of the entire batch.
	Validate() error

	// Build returns every resource this configuration contributes. It is a
	// pure function of the configuration, the target location, and the
	// read-only peer context: no I/O, no mutation, no transient failures.
	Build(loc Location, peers Peers) []Resource
}

// SecretSource is an optional Builder capability: configurations that
// require deploy-time secret parameters expose their names through it.
type SecretSource interface {
	SecretParameters() []string
}

// PostDeploySource is an optional Builder capability: configurations whose
// resources need work after the template is applied expose it here.
type PostDeploySource interface {
	PostDeployTasks() []PostDeployTask
}

// DeployTarget is the post-deploy collaborator boundary. The compiler and
// the kind modules never implement it; the deploy package does.
type DeployTarget interface {
	// UploadZip uploads the archive at archivePath to the named resource.
	UploadZip(ctx context.Context, resource ResourceName, archivePath string) error
}

// PostDeployTask is one unit of work to run after the whole template has
// been confirmed applied. The compiler aggregates and orders tasks; it
// never inspects Run.
type PostDeployTask struct {
	// Resource is the name of the resource this task acts on.
	Resource ResourceName

	// Run performs the work. A failure is surfaced to the caller as the
	// task's outcome; it is never retried automatically.
	Run func(ctx context.Context, target DeployTarget) error
}

// Peers gives a builder read-only access to its sibling configurations
// during Build, keyed by dependency name.
type Peers struct {
	byName map[ResourceName]Builder
}

// newPeers indexes the batch by dependency name. Later builders shadow
// earlier ones on a name collision; the platform rejects duplicate resource
// names anyway, so the collision never reaches a valid deployment.
func newPeers(builders []Builder) Peers {
	byName := make(map[ResourceName]Builder, len(builders))
	for _, b := range builders {
		byName[b.DependencyName()] = b
	}
	return Peers{byName: byName}
}

// Lookup returns the peer configuration registered under name.
func (p Peers) Lookup(name ResourceName) (Builder, bool) {
	b, ok := p.byName[name]
	return b, ok
}
