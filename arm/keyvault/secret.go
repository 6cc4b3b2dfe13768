package keyvault

import (
	"encoding/json"
	"fmt"

	"github.com/AltairaLabs/armature/arm"
)

// Secret key limits. Keys name both the vault entry and, for
// parameter-valued secrets, the deployment parameter.
const (
	minKeyLength = 1
	maxKeyLength = 127
)

// Secret is one secret sub-configuration of a vault. Its value is either
// supplied at deployment time through a securestring parameter named after
// the key (the default, when Expression is empty) or computed from an ARM
// expression referencing other resources.
type Secret struct {
	// Key names the secret. 1–127 characters, each alphanumeric or a
	// dash; validated when the owning vault is finalized.
	Key string

	// Expression, when set, is the ARM expression producing the secret's
	// value (e.g. a listKeys() call against a storage account).
	Expression string

	// DependsOn lists resources the expression reads from. The parent
	// vault is always a dependency and need not be listed.
	DependsOn []arm.ResourceName
}

// parameterValued reports whether the secret's value comes from a
// deployment parameter rather than an expression.
func (s *Secret) parameterValued() bool { return s.Expression == "" }

// validateSecretKey enforces the key rules: 1–127 characters, every one
// alphanumeric or a dash.
func validateSecretKey(key string) error {
	if len(key) < minKeyLength || len(key) > maxKeyLength {
		return fmt.Errorf(
			"secret key %q must be between %d and %d characters",
			key, minKeyLength, maxKeyLength)
	}
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return fmt.Errorf(
				"secret key %q contains %q: only alphanumerics and dashes are allowed",
				key, string(c))
		}
	}
	return nil
}

// resource compiles the secret into its template node. The node's name is
// the parent vault's name joined with the key, and its dependency list
// always starts with the parent vault.
func (s *Secret) resource(vault arm.ResourceName, loc arm.Location) arm.Resource {
	value := s.Expression
	if s.parameterValued() {
		value = fmt.Sprintf("[parameters('%s')]", s.Key)
	}

	dependsOn := make([]string, 0, 1+len(s.DependsOn))
	dependsOn = append(dependsOn, vault.String())
	for _, d := range s.DependsOn {
		dependsOn = append(dependsOn, d.String())
	}

	return &secretResource{
		name:      arm.ResourceName(vault.String() + "/" + s.Key),
		location:  loc,
		value:     value,
		dependsOn: dependsOn,
	}
}

// secretResource is the compiled vaults/secrets template node.
type secretResource struct {
	name      arm.ResourceName
	location  arm.Location
	value     string
	dependsOn []string
}

// ResourceName implements arm.Resource.
func (r *secretResource) ResourceName() arm.ResourceName { return r.name }

// MarshalJSON emits the vaults/secrets shape. The value is always either
// a parameter reference or an expression; a literal secret never appears
// in the template body.
func (r *secretResource) MarshalJSON() ([]byte, error) {
	type properties struct {
		Value string `json:"value"`
	}
	return json.Marshal(struct {
		Type       string     `json:"type"`
		APIVersion string     `json:"apiVersion"`
		Name       string     `json:"name"`
		Location   string     `json:"location"`
		DependsOn  []string   `json:"dependsOn"`
		Properties properties `json:"properties"`
	}{
		Type:       secretType,
		APIVersion: vaultAPIVersion,
		Name:       r.name.String(),
		Location:   string(r.location),
		DependsOn:  r.dependsOn,
		Properties: properties{Value: r.value},
	})
}
