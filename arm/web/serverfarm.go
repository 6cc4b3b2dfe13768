// Package web implements the compute-plan (server farm) and hosted-site
// resource kinds.
package web

import (
	"encoding/json"

	"github.com/AltairaLabs/armature/arm"
)

// serverFarmAPIVersion pins the Microsoft.Web/serverfarms schema version.
const serverFarmAPIVersion = "2018-02-01"

// serverFarmType is the ARM resource type for compute plans.
const serverFarmType = "Microsoft.Web/serverfarms"

// skuKind enumerates the seven pricing cases of a compute plan.
type skuKind int

const (
	skuFree skuKind = iota
	skuShared
	skuBasic
	skuStandard
	skuPremium
	skuPremiumV2
	skuIsolated
)

// skuTiers maps each case to the fixed tier string the platform expects.
var skuTiers = map[skuKind]string{
	skuFree:      "Free",
	skuShared:    "Shared",
	skuBasic:     "Basic",
	skuStandard:  "Standard",
	skuPremium:   "Premium",
	skuPremiumV2: "PremiumV2",
	skuIsolated:  "Isolated",
}

// Fixed SKU codes for the cases that do not carry a user-supplied code.
var skuCodes = map[skuKind]string{
	skuFree:   "F1",
	skuShared: "D1",
	skuBasic:  "B1",
}

// serverlessSkuCode is the code that, combined with the serverless worker
// size, marks a plan as dynamic (consumption-billed).
const serverlessSkuCode = "Y1"

// Sku is the closed pricing choice for a compute plan. Construct one with
// the Sku* functions; the zero value is the free tier.
type Sku struct {
	kind skuKind
	code string
}

// SkuFree is the free shared-infrastructure tier.
func SkuFree() Sku { return Sku{kind: skuFree} }

// SkuShared is the paid shared-infrastructure tier.
func SkuShared() Sku { return Sku{kind: skuShared} }

// SkuBasic is the entry dedicated tier.
func SkuBasic() Sku { return Sku{kind: skuBasic} }

// SkuStandard is the standard dedicated tier; code (e.g. "S1") is emitted
// verbatim.
func SkuStandard(code string) Sku { return Sku{kind: skuStandard, code: code} }

// SkuPremium is the premium dedicated tier; code (e.g. "P1") is emitted
// verbatim.
func SkuPremium(code string) Sku { return Sku{kind: skuPremium, code: code} }

// SkuPremiumV2 is the second-generation premium tier; code (e.g. "P1V2")
// is emitted verbatim.
func SkuPremiumV2(code string) Sku { return Sku{kind: skuPremiumV2, code: code} }

// SkuIsolated is the isolated tier; code is emitted verbatim. The special
// code "Y1" combined with WorkerSizeServerless selects consumption billing.
func SkuIsolated(code string) Sku { return Sku{kind: skuIsolated, code: code} }

// Tier returns the fixed tier string for this SKU case.
func (s Sku) Tier() string { return skuTiers[s.kind] }

// Code returns the SKU short code: fixed for Free/Shared/Basic, the
// user-supplied code for the other four cases.
func (s Sku) Code() string {
	if c, ok := skuCodes[s.kind]; ok {
		return c
	}
	return s.code
}

// WorkerSize selects the instance size of a compute plan's workers.
type WorkerSize int

const (
	WorkerSizeSmall WorkerSize = iota
	WorkerSizeMedium
	WorkerSizeLarge
	// WorkerSizeServerless is the reserved size for consumption plans.
	WorkerSizeServerless
)

// workerSizeCodes maps worker sizes to the platform's size codes. The
// serverless case reuses the reserved Y1 code.
var workerSizeCodes = map[WorkerSize]string{
	WorkerSizeSmall:      "0",
	WorkerSizeMedium:     "1",
	WorkerSizeLarge:      "2",
	WorkerSizeServerless: serverlessSkuCode,
}

// OS selects the operating-system family of a compute plan.
type OS int

const (
	Windows OS = iota
	Linux
)

// ServicePlan is the typed configuration of one compute plan. It compiles
// to a single serverfarms resource.
type ServicePlan struct {
	// Name is the plan's resource name.
	Name arm.ResourceName
	// Sku is the pricing tier.
	Sku Sku
	// WorkerSize selects the instance size.
	WorkerSize WorkerSize
	// WorkerCount is the number of workers; ignored for dynamic plans,
	// whose capacity is forced to zero.
	WorkerCount int
	// OperatingSystem selects the OS family. Linux plans set the reserved
	// flag, the platform's boolean proxy for the OS family.
	OperatingSystem OS
}

// DependencyName implements arm.Builder.
func (p *ServicePlan) DependencyName() arm.ResourceName { return p.Name }

// Validate implements arm.Builder.
func (p *ServicePlan) Validate() error {
	if _, err := arm.NewResourceName(p.Name.String()); err != nil {
		return &arm.ConfigError{Resource: p.Name, Field: "name", Message: "compute plan needs a name"}
	}
	return nil
}

// dynamic reports whether this plan is consumption-billed: the isolated
// SKU with code Y1 combined with the serverless worker size. Both
// conditions are required.
func (p *ServicePlan) dynamic() bool {
	return p.Sku.kind == skuIsolated &&
		p.Sku.code == serverlessSkuCode &&
		p.WorkerSize == WorkerSizeServerless
}

// Build implements arm.Builder.
func (p *ServicePlan) Build(loc arm.Location, _ arm.Peers) []arm.Resource {
	res := &serverFarmResource{
		name:     p.Name,
		location: loc,
		skuName:  p.Sku.Code(),
		tier:     p.Sku.Tier(),
		size:     workerSizeCodes[p.WorkerSize],
		capacity: p.WorkerCount,
		reserved: p.OperatingSystem == Linux,
	}
	if p.dynamic() {
		// Consumption billing: zero capacity, fixed Y family.
		res.capacity = 0
		res.family = "Y"
	}
	return []arm.Resource{res}
}

// serverFarmResource is the compiled serverfarms template node.
type serverFarmResource struct {
	name     arm.ResourceName
	location arm.Location
	skuName  string
	tier     string
	size     string
	family   string // empty unless dynamic; omitted when empty
	capacity int
	reserved bool
}

// ResourceName implements arm.Resource.
func (r *serverFarmResource) ResourceName() arm.ResourceName { return r.name }

// MarshalJSON emits the serverfarms shape. family appears only for dynamic
// plans; every other field is always present.
func (r *serverFarmResource) MarshalJSON() ([]byte, error) {
	type sku struct {
		Name     string `json:"name"`
		Tier     string `json:"tier"`
		Size     string `json:"size"`
		Family   string `json:"family,omitempty"`
		Capacity int    `json:"capacity"`
	}
	type properties struct {
		Name     string `json:"name"`
		Reserved bool   `json:"reserved"`
	}
	return json.Marshal(struct {
		Type       string     `json:"type"`
		APIVersion string     `json:"apiVersion"`
		Name       string     `json:"name"`
		Location   string     `json:"location"`
		Sku        sku        `json:"sku"`
		Properties properties `json:"properties"`
	}{
		Type:       serverFarmType,
		APIVersion: serverFarmAPIVersion,
		Name:       r.name.String(),
		Location:   string(r.location),
		Sku: sku{
			Name:     r.skuName,
			Tier:     r.tier,
			Size:     r.size,
			Family:   r.family,
			Capacity: r.capacity,
		},
		Properties: properties{
			Name:     r.name.String(),
			Reserved: r.reserved,
		},
	})
}
