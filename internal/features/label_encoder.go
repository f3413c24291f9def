// Package features turns synchronized transaction rows into the numeric
// matrices the classifier consumes. The column routing is a fixed, versioned
// schema so training and inference always see identical layouts.
package features

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
)

// UnknownIndex is the sentinel for categories absent from a fitted
// vocabulary. It is distinct from every valid class index.
const UnknownIndex = -1

// EncoderVersion is bumped when the artifact layout changes.
const EncoderVersion = 1

// LabelEncoder is an ordered string↔int vocabulary. Once fitted the mapping
// is frozen: unseen values map to UnknownIndex, never to a new class.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

type encoderArtifact struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Classes   []string  `json:"classes"`
}

// Fit builds an encoder over the distinct values, sorted so the class order
// is independent of input order.
func Fit(values []string) (*LabelEncoder, error) {
	seen := map[string]struct{}{}
	for _, v := range values {
		seen[v] = struct{}{}
	}
	if len(seen) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "cannot fit label encoder on empty input")
	}

	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)

	return fromClasses(classes)
}

func fromClasses(classes []string) (*LabelEncoder, error) {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		if _, dup := index[c]; dup {
			return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("duplicate class %q in encoder artifact", c))
		}
		index[c] = i
	}
	return &LabelEncoder{classes: classes, index: index}, nil
}

// Transform maps a value to its class index, or UnknownIndex when the value
// is not in the vocabulary.
func (e *LabelEncoder) Transform(value string) int {
	if i, ok := e.index[value]; ok {
		return i
	}
	return UnknownIndex
}

// Inverse maps a class index back to its label.
func (e *LabelEncoder) Inverse(index int) (string, error) {
	if index < 0 || index >= len(e.classes) {
		return "", apperrors.New(apperrors.CodeUnknownCategory, fmt.Sprintf("class index %d outside vocabulary of size %d", index, len(e.classes)))
	}
	return e.classes[index], nil
}

// Classes returns the vocabulary in index order.
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// NumClasses is the vocabulary size.
func (e *LabelEncoder) NumClasses() int {
	return len(e.classes)
}

// MarshalArtifact serializes the encoder as a versioned JSON document.
func (e *LabelEncoder) MarshalArtifact() ([]byte, error) {
	doc := encoderArtifact{
		Version:   EncoderVersion,
		CreatedAt: time.Now().UTC(),
		Classes:   e.classes,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalArtifact restores an encoder from its JSON artifact.
func UnmarshalArtifact(data []byte) (*LabelEncoder, error) {
	var doc encoderArtifact
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "decoding label encoder artifact")
	}
	if doc.Version != EncoderVersion {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("unsupported encoder artifact version %d", doc.Version))
	}
	if len(doc.Classes) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "encoder artifact has no classes")
	}
	return fromClasses(doc.Classes)
}
