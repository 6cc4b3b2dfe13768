package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/google/uuid"

	"github.com/AltairaLabs/armature/arm"
)

// deploymentNameSuffixLen is how much of the random uuid is appended to
// deployment names to keep retries distinguishable in the activity log.
const deploymentNameSuffixLen = 8

// deploymentsClient abstracts the ARM deployments API so tests can swap in
// a fake.
type deploymentsClient interface {
	CreateOrUpdateAndWait(
		ctx context.Context,
		resourceGroup, name string,
		dep armresources.Deployment,
	) error
}

// armDeployments is the real deploymentsClient backed by the Azure SDK.
type armDeployments struct {
	client *armresources.DeploymentsClient
}

// CreateOrUpdateAndWait submits the deployment and polls until the
// platform reports a terminal state.
func (a *armDeployments) CreateOrUpdateAndWait(
	ctx context.Context, resourceGroup, name string, dep armresources.Deployment,
) error {
	poller, err := a.client.BeginCreateOrUpdate(ctx, resourceGroup, name, dep, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

// Deployer submits compiled templates to a resource group.
type Deployer struct {
	deployments   deploymentsClient
	resourceGroup string
	log           *slog.Logger
}

// NewDeployer creates a Deployer for the given subscription and resource
// group. Credentials resolve through the standard azidentity chain
// supplied by the caller.
func NewDeployer(
	subscriptionID, resourceGroup string,
	cred azcore.TokenCredential,
	log *slog.Logger,
) (*Deployer, error) {
	client, err := armresources.NewDeploymentsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create deployments client: %w", err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Deployer{
		deployments:   &armDeployments{client: client},
		resourceGroup: resourceGroup,
		log:           log,
	}, nil
}

// Deploy submits the compilation as an incremental deployment named after
// prefix and waits for it to finish. Every secret parameter declared in
// the manifest must have a value in params; values travel with the request
// body and never appear in the template itself.
func (d *Deployer) Deploy(
	ctx context.Context,
	prefix string,
	c *arm.Compilation,
	params map[string]string,
) error {
	if err := checkParameters(c.Parameters, params); err != nil {
		return err
	}

	templateJSON, err := json.Marshal(c.Template)
	if err != nil {
		return fmt.Errorf("serialize template: %w", err)
	}
	var templateDoc map[string]any
	if err := json.Unmarshal(templateJSON, &templateDoc); err != nil {
		return fmt.Errorf("reparse template: %w", err)
	}

	paramDoc := make(map[string]any, len(c.Parameters))
	for _, name := range c.Parameters {
		paramDoc[name] = map[string]any{"value": params[name]}
	}

	mode := armresources.DeploymentModeIncremental
	name := fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:deploymentNameSuffixLen])

	d.log.Info("submitting deployment",
		"name", name,
		"resourceGroup", d.resourceGroup,
		"resources", len(c.Template.Resources()),
	)

	dep := armresources.Deployment{
		Properties: &armresources.DeploymentProperties{
			Mode:       &mode,
			Template:   templateDoc,
			Parameters: paramDoc,
		},
	}
	if err := d.deployments.CreateOrUpdateAndWait(ctx, d.resourceGroup, name, dep); err != nil {
		return fmt.Errorf("deployment %q: %w", name, err)
	}

	d.log.Info("deployment applied", "name", name)
	return nil
}

// checkParameters verifies that every declared secret parameter has a
// supplied value. Missing names are reported together, sorted, so the
// caller can fix them in one pass.
func checkParameters(declared []string, supplied map[string]string) error {
	var missing []string
	for _, name := range declared {
		if _, ok := supplied[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing values for secret parameters: %s", strings.Join(missing, ", "))
}
