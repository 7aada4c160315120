package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// UnderwriterList is the underwriter dimension of a record. Source data carries
// it either as a single scalar code (legacy flat rows, field "uw") or as an
// array (grouped rows); both shapes decode into a uniform list here so nothing
// downstream ever branches on shape.
type UnderwriterList []string

// UnmarshalJSON accepts both a bare string and an array of strings. A null is
// an absent list, never an empty token; it must be caught before the scalar
// branch because unmarshalling null into a string succeeds as a no-op.
func (u *UnderwriterList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*u = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*u = UnderwriterList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*u = UnderwriterList(many)
		return nil
	}

	return fmt.Errorf("underwriters must be a string or an array of strings")
}

// UnmarshalBSONValue tolerates the same shape duality in stored documents.
// Non-string array elements and nulls are dropped, never turned into tokens.
func (u *UnderwriterList) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bson.TypeString:
		*u = UnderwriterList{raw.StringValue()}
		return nil
	case bson.TypeArray:
		values, err := raw.Array().Values()
		if err != nil {
			return fmt.Errorf("failed to read underwriters array: %w", err)
		}
		list := make(UnderwriterList, 0, len(values))
		for _, value := range values {
			if value.Type == bson.TypeString {
				list = append(list, value.StringValue())
			}
		}
		*u = list
		return nil
	case bson.TypeNull, bson.TypeUndefined:
		*u = nil
		return nil
	default:
		return fmt.Errorf("unsupported underwriters BSON type %s", t)
	}
}

// Normalized returns the canonical form of the list: upper-cased, trimmed,
// duplicate-free and sorted ascending. Empty and blank tokens are dropped.
func (u UnderwriterList) Normalized() UnderwriterList {
	seen := make(map[string]struct{}, len(u))
	normalized := make(UnderwriterList, 0, len(u))

	for _, token := range u {
		token = strings.ToUpper(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if _, exists := seen[token]; exists {
			continue
		}
		seen[token] = struct{}{}
		normalized = append(normalized, token)
	}

	sort.Strings(normalized)
	return normalized
}

// Contains reports whether the list holds the given token after both sides
// are case-folded.
func (u UnderwriterList) Contains(token string) bool {
	token = strings.ToUpper(strings.TrimSpace(token))
	for _, candidate := range u {
		if strings.ToUpper(strings.TrimSpace(candidate)) == token {
			return true
		}
	}
	return false
}
