package arm

import "encoding/json"

// templateSchema pins the deployment template schema version the target
// platform validates against.
const templateSchema = "https://schema.management.azure.com/schemas/2019-04-01/deploymentTemplate.json#"

// templateContentVersion is the fixed template content version.
const templateContentVersion = "1.0.0.0"

// secureStringType is the parameter type used for every secret parameter.
// Secret values are supplied out of band at deployment time and never
// appear in the template body.
const secureStringType = "securestring"

// Template is the compiled deployment document: an ordered resource list
// plus the declared secure parameters.
type Template struct {
	resources  []Resource
	parameters []string
}

// Resources returns the compiled resources in emission order.
func (t *Template) Resources() []Resource { return t.resources }

// Parameters returns the unique secret parameter names, in first-declared
// order.
func (t *Template) Parameters() []string { return t.parameters }

// parameterDecl is the per-parameter declaration embedded in the template.
type parameterDecl struct {
	Type string `json:"type"`
}

// MarshalJSON serializes the template in the shape the deployment API
// accepts: $schema, contentVersion, parameters, resources.
func (t *Template) MarshalJSON() ([]byte, error) {
	params := make(map[string]parameterDecl, len(t.parameters))
	for _, name := range t.parameters {
		params[name] = parameterDecl{Type: secureStringType}
	}

	resources := t.resources
	if resources == nil {
		resources = []Resource{}
	}

	return json.Marshal(struct {
		Schema         string                   `json:"$schema"`
		ContentVersion string                   `json:"contentVersion"`
		Parameters     map[string]parameterDecl `json:"parameters"`
		Resources      []Resource               `json:"resources"`
	}{
		Schema:         templateSchema,
		ContentVersion: templateContentVersion,
		Parameters:     params,
		Resources:      resources,
	})
}
