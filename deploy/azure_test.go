package deploy

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"

	"github.com/AltairaLabs/armature/arm"
	"github.com/AltairaLabs/armature/arm/keyvault"
	"github.com/AltairaLabs/armature/arm/web"
)

// fakeDeployments captures the submitted deployment instead of calling
// the platform.
type fakeDeployments struct {
	resourceGroup string
	name          string
	dep           armresources.Deployment
	calls         int
	err           error
}

func (f *fakeDeployments) CreateOrUpdateAndWait(
	_ context.Context, resourceGroup, name string, dep armresources.Deployment,
) error {
	f.calls++
	f.resourceGroup = resourceGroup
	f.name = name
	f.dep = dep
	return f.err
}

func testDeployer(fake *fakeDeployments) *Deployer {
	return &Deployer{
		deployments:   fake,
		resourceGroup: "rg-test",
		log:           slog.New(slog.DiscardHandler),
	}
}

func compileSample(t *testing.T) *arm.Compilation {
	t.Helper()
	plan := &web.ServicePlan{Name: arm.MustResourceName("farm"), Sku: web.SkuBasic()}
	vault := &keyvault.Vault{
		Name:    arm.MustResourceName("vault"),
		Secrets: []keyvault.Secret{{Key: "storage-key"}},
	}
	c, err := arm.Compile(arm.WestEurope, plan, vault)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return c
}

func TestDeploySubmitsTemplateAndParameters(t *testing.T) {
	fake := &fakeDeployments{}
	d := testDeployer(fake)
	c := compileSample(t)

	err := d.Deploy(context.Background(), "myapp", c, map[string]string{
		"storage-key": "hunter2",
	})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	if fake.calls != 1 {
		t.Fatalf("expected 1 submission, got %d", fake.calls)
	}
	if fake.resourceGroup != "rg-test" {
		t.Errorf("resource group: got %q", fake.resourceGroup)
	}
	if !strings.HasPrefix(fake.name, "myapp-") {
		t.Errorf("deployment name should carry the prefix: %q", fake.name)
	}

	props := fake.dep.Properties
	if props == nil || props.Mode == nil || *props.Mode != armresources.DeploymentModeIncremental {
		t.Fatal("expected an incremental deployment")
	}

	tmpl, ok := props.Template.(map[string]any)
	if !ok {
		t.Fatalf("template: got %T", props.Template)
	}
	// The plan, the vault, and the vault's secret.
	resources, ok := tmpl["resources"].([]any)
	if !ok || len(resources) != 3 {
		t.Errorf("expected 3 template resources, got %v", tmpl["resources"])
	}

	params, ok := props.Parameters.(map[string]any)
	if !ok {
		t.Fatalf("parameters: got %T", props.Parameters)
	}
	wrapper, ok := params["storage-key"].(map[string]any)
	if !ok || wrapper["value"] != "hunter2" {
		t.Errorf("parameter value wrapper: got %v", params["storage-key"])
	}
}

func TestDeployRejectsMissingParameters(t *testing.T) {
	fake := &fakeDeployments{}
	d := testDeployer(fake)
	c := compileSample(t)

	err := d.Deploy(context.Background(), "myapp", c, nil)
	if err == nil {
		t.Fatal("expected an error for the missing secret value")
	}
	if !strings.Contains(err.Error(), "storage-key") {
		t.Errorf("error should name the missing parameter: %v", err)
	}
	if fake.calls != 0 {
		t.Error("nothing may be submitted when the manifest is incomplete")
	}
}

func TestDeployUniqueNames(t *testing.T) {
	fake := &fakeDeployments{}
	d := testDeployer(fake)
	c := compileSample(t)
	params := map[string]string{"storage-key": "v"}

	if err := d.Deploy(context.Background(), "myapp", c, params); err != nil {
		t.Fatalf("first Deploy: %v", err)
	}
	first := fake.name
	if err := d.Deploy(context.Background(), "myapp", c, params); err != nil {
		t.Fatalf("second Deploy: %v", err)
	}
	if fake.name == first {
		t.Errorf("retried deployments must get distinct names: %q", first)
	}
}
