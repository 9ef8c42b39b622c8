package neograph

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neograph/models"
)

// maxIdentifierLength keeps labels and relationship types well inside the
// server's identifier limit.
const maxIdentifierLength = 255

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can be spliced into a Cypher pattern as a
// label or relationship type without quoting.
func ValidIdentifier(s string) bool {
	return len(s) <= maxIdentifierLength && identifierPattern.MatchString(s)
}

// LabelSet is an allow-list of node labels. A nil LabelSet accepts every
// well-formed label.
type LabelSet map[string]struct{}

// NewLabelSet builds an allow-list from labels. No labels yields a nil set.
func NewLabelSet(labels ...string) LabelSet {
	if len(labels) == 0 {
		return nil
	}
	set := make(LabelSet, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}

// Check returns ErrInvalidLabel when label is empty, is not a plain
// identifier, or is missing from a non-nil set.
func (ls LabelSet) Check(label string) error {
	if label == "" {
		return fmt.Errorf("%w: label is empty", ErrInvalidLabel)
	}
	if !ValidIdentifier(label) {
		return fmt.Errorf("%w: %q must start with a letter or underscore and contain only letters, digits and underscores", ErrInvalidLabel, label)
	}
	if ls != nil {
		if _, ok := ls[label]; !ok {
			return fmt.Errorf("%w: %q is not an allowed label", ErrInvalidLabel, label)
		}
	}
	return nil
}

// valueKind groups property values the way the store does for list homogeneity.
type valueKind int

const (
	kindInvalid valueKind = iota
	kindBool
	kindInt
	kindFloat
	kindString
)

// NormalizeProperties checks that every entry of props can be stored as a
// property and returns a copy with JSON numbers converted to int64 or float64.
// Keys must be plain identifiers, as labels are. Accepted values are scalars
// (bool, integers, floats, string) and homogeneous lists of scalars. Integers
// outside the int64 range are rejected. A nil map yields an empty map.
func NormalizeProperties(props map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(props))
	for key, value := range props {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: empty property key", ErrInvalidProperties)
		}
		// Keys are written into the query pattern; only values travel as parameters.
		if !ValidIdentifier(key) {
			return nil, fmt.Errorf("%w: property key %q must start with a letter or underscore and contain only letters, digits and underscores", ErrInvalidProperties, key)
		}
		normalized, err := normalizeValue(value)
		if err != nil {
			return nil, fmt.Errorf("%w: property %q: %v", ErrInvalidProperties, key, err)
		}
		out[key] = normalized
	}
	return out, nil
}

// normalizeRelationships validates every spec and normalizes its attributes.
func normalizeRelationships(specs []models.RelationshipSpec) ([]models.RelationshipSpec, error) {
	out := make([]models.RelationshipSpec, 0, len(specs))
	for i, spec := range specs {
		if strings.TrimSpace(spec.TargetID) == "" {
			return nil, fmt.Errorf("%w: relationship %d: empty target_id", ErrInvalidProperties, i)
		}
		attrs, err := NormalizeProperties(spec.Attributes)
		if err != nil {
			return nil, fmt.Errorf("relationship %d: %w", i, err)
		}
		out = append(out, models.RelationshipSpec{TargetID: spec.TargetID, Attributes: attrs})
	}
	return out, nil
}

func normalizeValue(value any) (any, error) {
	switch list := value.(type) {
	case []any:
		return normalizeList(list)
	case []string:
		return normalizeList(anySlice(list))
	case []int:
		return normalizeList(anySlice(list))
	case []int64:
		return normalizeList(anySlice(list))
	case []float64:
		return normalizeList(anySlice(list))
	case []bool:
		return normalizeList(anySlice(list))
	}
	scalar, kind, err := normalizeScalar(value)
	if err != nil {
		return nil, err
	}
	if kind == kindInvalid {
		return nil, fmt.Errorf("unsupported value of type %T", value)
	}
	return scalar, nil
}

func normalizeList(list []any) (any, error) {
	out := make([]any, len(list))
	listKind := kindInvalid
	mixedNumbers := false

	for i, elem := range list {
		scalar, kind, err := normalizeScalar(elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %v", i, err)
		}
		if kind == kindInvalid {
			return nil, fmt.Errorf("element %d: unsupported list element of type %T", i, elem)
		}
		switch {
		case listKind == kindInvalid:
			listKind = kind
		case listKind == kind:
		case isNumeric(listKind) && isNumeric(kind):
			mixedNumbers = true
		default:
			return nil, fmt.Errorf("list mixes element types")
		}
		out[i] = scalar
	}

	// Mixed integer and float lists are stored as floats.
	if mixedNumbers {
		for i, elem := range out {
			if n, ok := elem.(int64); ok {
				out[i] = float64(n)
			}
		}
	}
	return out, nil
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func isNumeric(k valueKind) bool {
	return k == kindInt || k == kindFloat
}

func normalizeScalar(value any) (any, valueKind, error) {
	switch v := value.(type) {
	case bool:
		return v, kindBool, nil
	case string:
		return v, kindString, nil
	case int:
		return int64(v), kindInt, nil
	case int8:
		return int64(v), kindInt, nil
	case int16:
		return int64(v), kindInt, nil
	case int32:
		return int64(v), kindInt, nil
	case int64:
		return v, kindInt, nil
	case uint8:
		return int64(v), kindInt, nil
	case uint16:
		return int64(v), kindInt, nil
	case uint32:
		return int64(v), kindInt, nil
	case float32:
		return normalizeScalar(float64(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, kindInvalid, fmt.Errorf("non-finite number")
		}
		return v, kindFloat, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, kindInt, nil
		}
		if !strings.ContainsAny(v.String(), ".eE") {
			return nil, kindInvalid, fmt.Errorf("integer %s does not fit in 64 bits", v.String())
		}
		f, err := v.Float64()
		if err != nil {
			return nil, kindInvalid, fmt.Errorf("number %q out of range", v.String())
		}
		return f, kindFloat, nil
	case nil:
		return nil, kindInvalid, fmt.Errorf("null values cannot be stored")
	}
	return nil, kindInvalid, nil
}
