// Package keyvault implements the Key Vault and vault-secret resource
// kinds.
package keyvault

import (
	"encoding/json"

	"github.com/AltairaLabs/armature/arm"
)

// vaultAPIVersion pins the Microsoft.KeyVault schema version for both the
// vault and its secrets.
const vaultAPIVersion = "2018-02-14"

// ARM resource types for the vault kind.
const (
	vaultType  = "Microsoft.KeyVault/vaults"
	secretType = "Microsoft.KeyVault/vaults/secrets"
)

// CreateMode is the vault creation/recovery choice. It is fixed when the
// configuration is finalized and drives which policies and which creation
// token appear in the template.
type CreateMode int

const (
	// CreateModeUnspecified emits no createMode field; the platform
	// decides the default behavior. Zero or more policies allowed.
	CreateModeUnspecified CreateMode = iota
	// CreateModeDefault emits the explicit default token. Zero or more
	// policies allowed.
	CreateModeDefault
	// CreateModeRecover emits the recover token and requires at least one
	// access policy, enforced at finalization.
	CreateModeRecover
)

// Platform tokens for the explicit create modes.
var createModeTokens = map[CreateMode]string{
	CreateModeDefault: "default",
	CreateModeRecover: "recover",
}

// SoftDelete selects the optional soft-delete strictness of a vault.
type SoftDelete int

const (
	// SoftDeleteOff leaves soft-delete unconfigured.
	SoftDeleteOff SoftDelete = iota
	// SoftDeleteEnabled turns on soft-delete.
	SoftDeleteEnabled
	// SoftDeleteWithPurgeProtection turns on soft-delete and additionally
	// blocks purging of deleted entries.
	SoftDeleteWithPurgeProtection
)

// DefaultAction is the network ACL verdict for traffic matching no rule.
type DefaultAction string

const (
	DefaultActionAllow DefaultAction = "Allow"
	DefaultActionDeny  DefaultAction = "Deny"
)

// Bypass selects which traffic skips the network ACL.
type Bypass string

const (
	BypassAzureServices Bypass = "AzureServices"
	BypassNone          Bypass = "None"
)

// NetworkACL restricts network access to a vault.
type NetworkACL struct {
	// IPRules are CIDR ranges, emitted in declaration order.
	IPRules []string
	// VirtualNetworkRules are subnet resource IDs, emitted in declaration
	// order.
	VirtualNetworkRules []string
	DefaultAction       DefaultAction
	Bypass              Bypass
}

// Permissions grants per-category operations to one access policy.
type Permissions struct {
	Keys         []string
	Secrets      []string
	Certificates []string
	Storage      []string
}

// AccessPolicy grants a principal access to the vault.
type AccessPolicy struct {
	TenantID    string
	ObjectID    string
	Permissions Permissions
}

// Vault is the typed configuration of one Key Vault plus its secrets. It
// compiles to a vaults resource followed by one secrets resource per
// secret sub-configuration.
type Vault struct {
	// Name is the vault's resource name.
	Name arm.ResourceName
	// TenantID is the directory tenant securing the vault.
	TenantID string
	// SkuName is the vault pricing tier ("standard" or "premium").
	SkuName string

	// The four independent access toggles.
	EnabledForDeployment         bool
	EnabledForDiskEncryption     bool
	EnabledForTemplateDeployment bool
	EnableRBACAuthorization      bool

	// SoftDelete optionally hardens deletion behavior.
	SoftDelete SoftDelete

	// NetworkACL, when set, restricts network access. Unset emits no
	// networkAcls object.
	NetworkACL *NetworkACL

	// CreateMode drives the creation token and the policy invariant.
	CreateMode CreateMode

	// Policies are the vault's access policies. Recover mode requires at
	// least one.
	Policies []AccessPolicy

	// Secrets are the vault's secret sub-configurations.
	Secrets []Secret
}

// DependencyName implements arm.Builder.
func (v *Vault) DependencyName() arm.ResourceName { return v.Name }

// Validate implements arm.Builder. It enforces the Recover-mode policy
// invariant and every secret's key rules; violations are fatal to the
// batch before any resource is emitted.
func (v *Vault) Validate() error {
	if _, err := arm.NewResourceName(v.Name.String()); err != nil {
		return &arm.ConfigError{Resource: v.Name, Field: "name", Message: "vault needs a name"}
	}
	if v.CreateMode == CreateModeRecover && len(v.Policies) == 0 {
		return &arm.ConfigError{
			Resource: v.Name,
			Field:    "createMode",
			Message:  "recover mode requires at least one access policy",
		}
	}
	for _, s := range v.Secrets {
		if err := validateSecretKey(s.Key); err != nil {
			return &arm.ConfigError{Resource: v.Name, Field: "secrets", Message: err.Error()}
		}
	}
	return nil
}

// SecretParameters implements arm.SecretSource: one securestring
// parameter per parameter-valued secret, named after its key.
func (v *Vault) SecretParameters() []string {
	var params []string
	for _, s := range v.Secrets {
		if s.parameterValued() {
			params = append(params, s.Key)
		}
	}
	return params
}

// Build implements arm.Builder: the vault resource first, then one
// resource per secret in declaration order.
func (v *Vault) Build(loc arm.Location, _ arm.Peers) []arm.Resource {
	resources := make([]arm.Resource, 0, 1+len(v.Secrets))
	resources = append(resources, &vaultResource{cfg: v, location: loc})
	for i := range v.Secrets {
		resources = append(resources, v.Secrets[i].resource(v.Name, loc))
	}
	return resources
}

// vaultResource is the compiled vaults template node.
type vaultResource struct {
	cfg      *Vault
	location arm.Location
}

// ResourceName implements arm.Resource.
func (r *vaultResource) ResourceName() arm.ResourceName { return r.cfg.Name }

type permissionsJSON struct {
	Keys         []string `json:"keys,omitempty"`
	Secrets      []string `json:"secrets,omitempty"`
	Certificates []string `json:"certificates,omitempty"`
	Storage      []string `json:"storage,omitempty"`
}

type accessPolicyJSON struct {
	TenantID    string          `json:"tenantId"`
	ObjectID    string          `json:"objectId"`
	Permissions permissionsJSON `json:"permissions"`
}

type ipRuleJSON struct {
	Value string `json:"value"`
}

type vnetRuleJSON struct {
	ID string `json:"id"`
}

type networkACLJSON struct {
	DefaultAction       string         `json:"defaultAction"`
	Bypass              string         `json:"bypass"`
	IPRules             []ipRuleJSON   `json:"ipRules"`
	VirtualNetworkRules []vnetRuleJSON `json:"virtualNetworkRules"`
}

type vaultSkuJSON struct {
	Family string `json:"family"`
	Name   string `json:"name"`
}

type vaultPropertiesJSON struct {
	TenantID                     string             `json:"tenantId"`
	Sku                          vaultSkuJSON       `json:"sku"`
	EnabledForDeployment         bool               `json:"enabledForDeployment"`
	EnabledForDiskEncryption     bool               `json:"enabledForDiskEncryption"`
	EnabledForTemplateDeployment bool               `json:"enabledForTemplateDeployment"`
	EnableRBACAuthorization      bool               `json:"enableRbacAuthorization"`
	EnableSoftDelete             *bool              `json:"enableSoftDelete,omitempty"`
	EnablePurgeProtection        *bool              `json:"enablePurgeProtection,omitempty"`
	CreateMode                   string             `json:"createMode,omitempty"`
	AccessPolicies               []accessPolicyJSON `json:"accessPolicies"`
	NetworkACLs                  *networkACLJSON    `json:"networkAcls,omitempty"`
}

// MarshalJSON emits the vaults shape. createMode appears only for the
// explicit modes; soft-delete fields only when configured; networkAcls
// only when an ACL is set.
func (r *vaultResource) MarshalJSON() ([]byte, error) {
	v := r.cfg

	policies := make([]accessPolicyJSON, len(v.Policies))
	for i, p := range v.Policies {
		policies[i] = accessPolicyJSON{
			TenantID: p.TenantID,
			ObjectID: p.ObjectID,
			Permissions: permissionsJSON{
				Keys:         p.Permissions.Keys,
				Secrets:      p.Permissions.Secrets,
				Certificates: p.Permissions.Certificates,
				Storage:      p.Permissions.Storage,
			},
		}
	}

	props := vaultPropertiesJSON{
		TenantID:                     v.TenantID,
		Sku:                          vaultSkuJSON{Family: "A", Name: v.skuName()},
		EnabledForDeployment:         v.EnabledForDeployment,
		EnabledForDiskEncryption:     v.EnabledForDiskEncryption,
		EnabledForTemplateDeployment: v.EnabledForTemplateDeployment,
		EnableRBACAuthorization:      v.EnableRBACAuthorization,
		CreateMode:                   createModeTokens[v.CreateMode],
		AccessPolicies:               policies,
	}

	switch v.SoftDelete {
	case SoftDeleteOff:
	case SoftDeleteEnabled:
		props.EnableSoftDelete = boolPtr(true)
	case SoftDeleteWithPurgeProtection:
		props.EnableSoftDelete = boolPtr(true)
		props.EnablePurgeProtection = boolPtr(true)
	}

	if v.NetworkACL != nil {
		acl := &networkACLJSON{
			DefaultAction:       string(v.NetworkACL.DefaultAction),
			Bypass:              string(v.NetworkACL.Bypass),
			IPRules:             []ipRuleJSON{},
			VirtualNetworkRules: []vnetRuleJSON{},
		}
		for _, ip := range v.NetworkACL.IPRules {
			acl.IPRules = append(acl.IPRules, ipRuleJSON{Value: ip})
		}
		for _, id := range v.NetworkACL.VirtualNetworkRules {
			acl.VirtualNetworkRules = append(acl.VirtualNetworkRules, vnetRuleJSON{ID: id})
		}
		props.NetworkACLs = acl
	}

	return json.Marshal(struct {
		Type       string              `json:"type"`
		APIVersion string              `json:"apiVersion"`
		Name       string              `json:"name"`
		Location   string              `json:"location"`
		Properties vaultPropertiesJSON `json:"properties"`
	}{
		Type:       vaultType,
		APIVersion: vaultAPIVersion,
		Name:       v.Name.String(),
		Location:   string(r.location),
		Properties: props,
	})
}

// defaultSkuName is used when the configuration leaves SkuName empty.
const defaultSkuName = "standard"

func (v *Vault) skuName() string {
	if v.SkuName == "" {
		return defaultSkuName
	}
	return v.SkuName
}

func boolPtr(b bool) *bool { return &b }
