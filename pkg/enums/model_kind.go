package enums

import "fmt"

// ModelKind names a trainable architecture in the model registry.
type ModelKind string

const (
	ModelKindWideAndDeep ModelKind = "wide_and_deep"
	ModelKindMLP         ModelKind = "mlp"
)

var validModelKinds = []ModelKind{
	ModelKindWideAndDeep,
	ModelKindMLP,
}

func (k ModelKind) String() string {
	return string(k)
}

func (k ModelKind) IsValid() bool {
	for _, candidate := range validModelKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseModelKind converts a raw string into a ModelKind, failing fast on
// unknown names.
func ParseModelKind(value string) (ModelKind, error) {
	for _, candidate := range validModelKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid model kind %q", value)
}
