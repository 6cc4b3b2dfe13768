// Command armature-sample compiles a representative definition — a Linux
// compute plan, a site with secret settings, and a vault holding the
// site's connection secret — and prints the template. With -deploy it
// submits the template and runs the post-deploy queue.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/AltairaLabs/armature/arm"
	"github.com/AltairaLabs/armature/arm/keyvault"
	"github.com/AltairaLabs/armature/arm/web"
	"github.com/AltairaLabs/armature/deploy"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if err := run(log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	var (
		location      = flag.String("location", string(arm.WestEurope), "target location")
		doDeploy      = flag.Bool("deploy", false, "submit the template instead of printing it")
		subscription  = flag.String("subscription", "", "subscription ID (required with -deploy)")
		resourceGroup = flag.String("resource-group", "", "resource group (required with -deploy)")
		artifact      = flag.String("artifact", "", "optional folder or .zip to upload to the site")
	)
	flag.Parse()

	plan := &web.ServicePlan{
		Name:            arm.MustResourceName("sample-farm"),
		Sku:             web.SkuStandard("S1"),
		WorkerSize:      web.WorkerSizeSmall,
		WorkerCount:     1,
		OperatingSystem: web.Linux,
	}
	site := &web.Site{
		Name:           arm.MustResourceName("sample-site"),
		ServicePlan:    plan.Name,
		AlwaysOn:       true,
		HTTPSOnly:      true,
		Settings:       map[string]string{"ENVIRONMENT": "sample"},
		SecretSettings: []string{"storage-key"},
		Identity:       []web.IdentityType{web.IdentitySystemAssigned},
		ZipDeployPath:  *artifact,
	}
	vault := &keyvault.Vault{
		Name:       arm.MustResourceName("sample-vault"),
		SoftDelete: keyvault.SoftDeleteEnabled,
		Secrets:    []keyvault.Secret{{Key: "storage-key"}},
	}

	c, err := arm.Compile(arm.Location(*location), plan, site, vault)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	if !*doDeploy {
		out, err := json.MarshalIndent(c.Template, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if *subscription == "" || *resourceGroup == "" {
		return fmt.Errorf("-deploy requires -subscription and -resource-group")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}

	params := make(map[string]string, len(c.Parameters))
	for _, name := range c.Parameters {
		value, ok := os.LookupEnv("ARMATURE_PARAM_" + name)
		if !ok {
			return fmt.Errorf("secret parameter %q: set ARMATURE_PARAM_%s", name, name)
		}
		params[name] = value
	}

	deployer, err := deploy.NewDeployer(*subscription, *resourceGroup, cred, log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := deployer.Deploy(ctx, "armature-sample", c, params); err != nil {
		return err
	}

	target := deploy.NewZipUploadTarget(cred, log)
	outcomes := deploy.RunPostDeploy(ctx, target, c.PostDeploy, log)
	if !deploy.Succeeded(outcomes) {
		return fmt.Errorf("post-deploy phase failed")
	}
	return nil
}
