package web

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/AltairaLabs/armature/arm"
	"github.com/AltairaLabs/armature/zipdeploy"
)

// siteAPIVersion pins the Microsoft.Web/sites schema version.
const siteAPIVersion = "2016-08-01"

// siteType is the ARM resource type for hosted sites.
const siteType = "Microsoft.Web/sites"

// IdentityType enumerates the managed identity kinds a site can enable.
type IdentityType int

// IdentitySystemAssigned enables the platform-managed identity.
const IdentitySystemAssigned IdentityType = iota

// Identity object shapes. A site emits exactly one of these, or no
// identity object at all.
const (
	identityShapeSystemAssigned = "SystemAssigned"
	identityShapeNone           = "None"
)

// Site is the typed configuration of one hosted site. It compiles to a
// single sites resource paired with a ServicePlan, and contributes a
// post-deploy upload task when an artifact path is configured.
type Site struct {
	// Name is the site's resource name.
	Name arm.ResourceName
	// ServicePlan names the compute plan this site runs on. The plan is
	// consulted at build time for serverless gating.
	ServicePlan arm.ResourceName

	// AlwaysOn and HTTPSOnly are always emitted.
	AlwaysOn  bool
	HTTPSOnly bool

	// Settings are plain app settings, emitted sorted by name.
	Settings map[string]string
	// SecretSettings are app settings whose values are deploy-time secret
	// parameters; each contributes a securestring parameter named after
	// the setting.
	SecretSettings []string

	// Optional stack fields. The zero value means unset: the field is
	// omitted from the template entirely, never emitted as null.
	JavaVersion           string
	JavaContainer         string
	JavaContainerVersion  string
	NetFrameworkVersion   string
	LinuxFxVersion        string
	WebSocketsEnabled     *bool
	HTTP20Enabled         *bool
	ClientAffinityEnabled *bool

	// Identity lists the enabled managed identity types. nil emits no
	// identity object; an empty non-nil list explicitly disables identity.
	Identity []IdentityType

	// ZipDeployPath, when set, is a folder or .zip archive to upload to
	// the site after deployment.
	ZipDeployPath string

	// Dependencies are extra resources this site depends on, beyond its
	// compute plan.
	Dependencies []arm.ResourceName
}

// DependencyName implements arm.Builder.
func (s *Site) DependencyName() arm.ResourceName { return s.Name }

// Validate implements arm.Builder.
func (s *Site) Validate() error {
	if _, err := arm.NewResourceName(s.Name.String()); err != nil {
		return &arm.ConfigError{Resource: s.Name, Field: "name", Message: "site needs a name"}
	}
	if _, err := arm.NewResourceName(s.ServicePlan.String()); err != nil {
		return &arm.ConfigError{Resource: s.Name, Field: "servicePlan", Message: "site needs a compute plan"}
	}
	for _, name := range s.SecretSettings {
		if name == "" {
			return &arm.ConfigError{Resource: s.Name, Field: "secretSettings", Message: "secret setting name must not be empty"}
		}
		if _, clash := s.Settings[name]; clash {
			return &arm.ConfigError{
				Resource: s.Name,
				Field:    "secretSettings",
				Message:  fmt.Sprintf("setting %q is declared both plain and secret", name),
			}
		}
	}
	return nil
}

// SecretParameters implements arm.SecretSource: one securestring parameter
// per secret setting.
func (s *Site) SecretParameters() []string {
	return append([]string(nil), s.SecretSettings...)
}

// PostDeployTasks implements arm.PostDeploySource. A task is contributed
// only when an artifact path was configured; it resolves the artifact and
// uploads it, surfacing any failure without retrying.
func (s *Site) PostDeployTasks() []arm.PostDeployTask {
	if s.ZipDeployPath == "" {
		return nil
	}
	name := s.Name
	path := s.ZipDeployPath
	return []arm.PostDeployTask{{
		Resource: name,
		Run: func(ctx context.Context, target arm.DeployTarget) error {
			ref, err := zipdeploy.Classify(path)
			if err != nil {
				return fmt.Errorf("resolve deploy artifact for %q: %w", name, err)
			}
			archive, err := ref.Materialize(ctx)
			if err != nil {
				return fmt.Errorf("package deploy artifact for %q: %w", name, err)
			}
			return target.UploadZip(ctx, name, archive)
		},
	}}
}

// Build implements arm.Builder. The paired compute plan is looked up in
// the peer context to decide the computeMode/perSiteScaling pair.
func (s *Site) Build(loc arm.Location, peers arm.Peers) []arm.Resource {
	dynamic := false
	if peer, ok := peers.Lookup(s.ServicePlan); ok {
		if plan, ok := peer.(*ServicePlan); ok {
			dynamic = plan.dynamic()
		}
	}

	dependsOn := append([]arm.ResourceName{s.ServicePlan}, s.Dependencies...)

	return []arm.Resource{&siteResource{
		cfg:       s,
		location:  loc,
		dynamic:   dynamic,
		dependsOn: dependsOn,
	}}
}

// appSetting is one name/value entry in the site's appSettings list.
type appSetting struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// appSettings merges plain and secret settings into one list sorted by
// name. Secret settings reference their deploy-time parameter.
func (s *Site) appSettings() []appSetting {
	merged := make(map[string]string, len(s.Settings)+len(s.SecretSettings))
	for k, v := range s.Settings {
		merged[k] = v
	}
	for _, name := range s.SecretSettings {
		merged[name] = fmt.Sprintf("[parameters('%s')]", name)
	}
	if len(merged) == 0 {
		return nil
	}

	names := make([]string, 0, len(merged))
	for k := range merged {
		names = append(names, k)
	}
	sort.Strings(names)

	settings := make([]appSetting, 0, len(names))
	for _, k := range names {
		settings = append(settings, appSetting{Name: k, Value: merged[k]})
	}
	return settings
}

// identityShape returns the identity object to emit, or nil for none.
func (s *Site) identityShape() *identityJSON {
	if s.Identity == nil {
		return nil
	}
	for _, id := range s.Identity {
		if id == IdentitySystemAssigned {
			return &identityJSON{Type: identityShapeSystemAssigned}
		}
	}
	return &identityJSON{Type: identityShapeNone}
}

// siteResource is the compiled sites template node.
type siteResource struct {
	cfg       *Site
	location  arm.Location
	dynamic   bool
	dependsOn []arm.ResourceName
}

// ResourceName implements arm.Resource.
func (r *siteResource) ResourceName() arm.ResourceName { return r.cfg.Name }

type identityJSON struct {
	Type string `json:"type"`
}

type siteConfigJSON struct {
	AlwaysOn             bool         `json:"alwaysOn"`
	AppSettings          []appSetting `json:"appSettings,omitempty"`
	JavaVersion          string       `json:"javaVersion,omitempty"`
	JavaContainer        string       `json:"javaContainer,omitempty"`
	JavaContainerVersion string       `json:"javaContainerVersion,omitempty"`
	NetFrameworkVersion  string       `json:"netFrameworkVersion,omitempty"`
	LinuxFxVersion       string       `json:"linuxFxVersion,omitempty"`
	WebSocketsEnabled    *bool        `json:"webSocketsEnabled,omitempty"`
	HTTP20Enabled        *bool        `json:"http20Enabled,omitempty"`
}

type sitePropertiesJSON struct {
	ServerFarmID          string `json:"serverFarmId"`
	HTTPSOnly             bool   `json:"httpsOnly"`
	ClientAffinityEnabled *bool  `json:"clientAffinityEnabled,omitempty"`
	ComputeMode           string `json:"computeMode,omitempty"`
	// PerSiteScaling is always present: explicit null on a dynamic plan,
	// explicit false otherwise. This is the one field where null and
	// false mean different things to the platform.
	PerSiteScaling json.RawMessage `json:"perSiteScaling"`
	SiteConfig     siteConfigJSON  `json:"siteConfig"`
}

// MarshalJSON emits the sites shape. Optional stack fields are omitted
// when unset; perSiteScaling is never omitted.
func (r *siteResource) MarshalJSON() ([]byte, error) {
	s := r.cfg

	perSiteScaling := json.RawMessage("false")
	computeMode := ""
	if r.dynamic {
		perSiteScaling = json.RawMessage("null")
		computeMode = "Dynamic"
	}

	dependsOn := make([]string, len(r.dependsOn))
	for i, d := range r.dependsOn {
		dependsOn[i] = d.String()
	}

	return json.Marshal(struct {
		Type       string             `json:"type"`
		APIVersion string             `json:"apiVersion"`
		Name       string             `json:"name"`
		Location   string             `json:"location"`
		Identity   *identityJSON      `json:"identity,omitempty"`
		DependsOn  []string           `json:"dependsOn"`
		Properties sitePropertiesJSON `json:"properties"`
	}{
		Type:       siteType,
		APIVersion: siteAPIVersion,
		Name:       s.Name.String(),
		Location:   string(r.location),
		Identity:   s.identityShape(),
		DependsOn:  dependsOn,
		Properties: sitePropertiesJSON{
			ServerFarmID:          s.ServicePlan.String(),
			HTTPSOnly:             s.HTTPSOnly,
			ClientAffinityEnabled: s.ClientAffinityEnabled,
			ComputeMode:           computeMode,
			PerSiteScaling:        perSiteScaling,
			SiteConfig: siteConfigJSON{
				AlwaysOn:             s.AlwaysOn,
				AppSettings:          s.appSettings(),
				JavaVersion:          s.JavaVersion,
				JavaContainer:        s.JavaContainer,
				JavaContainerVersion: s.JavaContainerVersion,
				NetFrameworkVersion:  s.NetFrameworkVersion,
				LinuxFxVersion:       s.LinuxFxVersion,
				WebSocketsEnabled:    s.WebSocketsEnabled,
				HTTP20Enabled:        s.HTTP20Enabled,
			},
		},
	})
}
