package arm

import (
	"fmt"
	"strings"
)

// ResourceName is the validated identifier of a deployable resource. It is
// used both as a lookup key between builders and as the literal text placed
// in a resource's dependsOn list, so a materialized resource never carries
// an empty name.
type ResourceName string

// NewResourceName validates s and returns it as a ResourceName. Empty and
// whitespace-only values are rejected.
func NewResourceName(s string) (ResourceName, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("resource name must not be empty")
	}
	return ResourceName(s), nil
}

// MustResourceName is NewResourceName for statically known names. It panics
// on invalid input and is intended for package-level fixtures and samples.
func MustResourceName(s string) ResourceName {
	n, err := NewResourceName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the name as plain text.
func (n ResourceName) String() string { return string(n) }
