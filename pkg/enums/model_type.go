package enums

import "fmt"

// ModelType labels which recommender family produced a recommendation row.
type ModelType string

const (
	ModelTypeCollaborative ModelType = "collaborative"
	ModelTypeContentBased  ModelType = "content-based"
	ModelTypeDeepLearning  ModelType = "deep-learning"
)

var validModelTypes = []ModelType{
	ModelTypeCollaborative,
	ModelTypeContentBased,
	ModelTypeDeepLearning,
}

// String implements fmt.Stringer.
func (m ModelType) String() string {
	return string(m)
}

// IsValid reports whether the model type is recognized.
func (m ModelType) IsValid() bool {
	for _, candidate := range validModelTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseModelType converts a raw string into a ModelType.
func ParseModelType(value string) (ModelType, error) {
	for _, candidate := range validModelTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid model type %q", value)
}
