package web

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/AltairaLabs/armature/arm"
)

func TestSkuTierAndCode(t *testing.T) {
	tests := []struct {
		name     string
		sku      Sku
		wantTier string
		wantCode string
	}{
		{"free", SkuFree(), "Free", "F1"},
		{"shared", SkuShared(), "Shared", "D1"},
		{"basic", SkuBasic(), "Basic", "B1"},
		{"standard", SkuStandard("S2"), "Standard", "S2"},
		{"premium", SkuPremium("P1"), "Premium", "P1"},
		{"premium v2", SkuPremiumV2("P1V2"), "PremiumV2", "P1V2"},
		{"isolated", SkuIsolated("I1"), "Isolated", "I1"},
		{"isolated consumption", SkuIsolated("Y1"), "Isolated", "Y1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sku.Tier(); got != tt.wantTier {
				t.Errorf("Tier: got %q want %q", got, tt.wantTier)
			}
			if got := tt.sku.Code(); got != tt.wantCode {
				t.Errorf("Code: got %q want %q", got, tt.wantCode)
			}
		})
	}
}

// farmJSON is the subset of the serverfarms shape the tests inspect.
type farmJSON struct {
	Type       string `json:"type"`
	APIVersion string `json:"apiVersion"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	Sku        struct {
		Name     string `json:"name"`
		Tier     string `json:"tier"`
		Size     string `json:"size"`
		Family   string `json:"family"`
		Capacity int    `json:"capacity"`
	} `json:"sku"`
	Properties struct {
		Name     string `json:"name"`
		Reserved bool   `json:"reserved"`
	} `json:"properties"`
}

func buildFarm(t *testing.T, plan *ServicePlan) (farmJSON, string) {
	t.Helper()
	resources := plan.Build(arm.WestEurope, arm.Peers{})
	if len(resources) != 1 {
		t.Fatalf("expected 1 resource, got %d", len(resources))
	}
	raw, err := json.Marshal(resources[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc farmJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	return doc, string(raw)
}

func TestServicePlanDynamicGating(t *testing.T) {
	tests := []struct {
		name        string
		sku         Sku
		size        WorkerSize
		count       int
		wantDynamic bool
	}{
		{"isolated Y1 serverless", SkuIsolated("Y1"), WorkerSizeServerless, 4, true},
		{"isolated Y1 small", SkuIsolated("Y1"), WorkerSizeSmall, 4, false},
		{"isolated I1 serverless", SkuIsolated("I1"), WorkerSizeServerless, 4, false},
		{"standard serverless", SkuStandard("S1"), WorkerSizeServerless, 4, false},
		{"standard small", SkuStandard("S1"), WorkerSizeSmall, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &ServicePlan{
				Name:        arm.MustResourceName("farm"),
				Sku:         tt.sku,
				WorkerSize:  tt.size,
				WorkerCount: tt.count,
			}
			doc, raw := buildFarm(t, plan)

			if tt.wantDynamic {
				if doc.Sku.Capacity != 0 {
					t.Errorf("dynamic plan capacity: got %d want 0", doc.Sku.Capacity)
				}
				if doc.Sku.Family != "Y" {
					t.Errorf("dynamic plan family: got %q want \"Y\"", doc.Sku.Family)
				}
			} else {
				if doc.Sku.Capacity != tt.count {
					t.Errorf("capacity: got %d want %d", doc.Sku.Capacity, tt.count)
				}
				if strings.Contains(raw, `"family"`) {
					t.Errorf("family must be omitted for non-dynamic plans: %s", raw)
				}
			}
		})
	}
}

func TestServicePlanWorkerSizeCodes(t *testing.T) {
	tests := []struct {
		name string
		size WorkerSize
		want string
	}{
		{"small", WorkerSizeSmall, "0"},
		{"medium", WorkerSizeMedium, "1"},
		{"large", WorkerSizeLarge, "2"},
		{"serverless", WorkerSizeServerless, "Y1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &ServicePlan{
				Name:       arm.MustResourceName("farm"),
				Sku:        SkuBasic(),
				WorkerSize: tt.size,
			}
			doc, _ := buildFarm(t, plan)
			if doc.Sku.Size != tt.want {
				t.Errorf("size code: got %q want %q", doc.Sku.Size, tt.want)
			}
		})
	}
}

func TestServicePlanReservedFlag(t *testing.T) {
	linux := &ServicePlan{Name: arm.MustResourceName("farm"), OperatingSystem: Linux}
	doc, _ := buildFarm(t, linux)
	if !doc.Properties.Reserved {
		t.Error("linux plan must set reserved")
	}

	windows := &ServicePlan{Name: arm.MustResourceName("farm"), OperatingSystem: Windows}
	doc, _ = buildFarm(t, windows)
	if doc.Properties.Reserved {
		t.Error("windows plan must not set reserved")
	}
}

func TestServicePlanShape(t *testing.T) {
	plan := &ServicePlan{
		Name:        arm.MustResourceName("farm"),
		Sku:         SkuStandard("S1"),
		WorkerCount: 2,
	}
	doc, _ := buildFarm(t, plan)

	if doc.Type != "Microsoft.Web/serverfarms" {
		t.Errorf("type: got %q", doc.Type)
	}
	if doc.APIVersion != "2018-02-01" {
		t.Errorf("apiVersion: got %q", doc.APIVersion)
	}
	if doc.Name != "farm" || doc.Properties.Name != "farm" {
		t.Errorf("name: got %q / %q", doc.Name, doc.Properties.Name)
	}
	if doc.Location != "westeurope" {
		t.Errorf("location: got %q", doc.Location)
	}
}

func TestServicePlanValidate(t *testing.T) {
	plan := &ServicePlan{}
	if err := plan.Validate(); err == nil {
		t.Error("expected a config error for a nameless plan")
	}
	if arm.IsConfigError((&ServicePlan{}).Validate()) == nil {
		t.Error("expected a ConfigError")
	}
}
