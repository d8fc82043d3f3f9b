package domain

import "strings"

// CropKey identifies a crop for matching purchases to batches. Name is
// required; Type and Variety narrow the match when set.
type CropKey struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Variety string `json:"variety,omitempty"`
}

// NewCropKey builds a normalized key: trimmed, lower-cased, inner whitespace collapsed.
func NewCropKey(name, cropType, variety string) CropKey {
	return CropKey{
		Name:    normalizeCropPart(name),
		Type:    normalizeCropPart(cropType),
		Variety: normalizeCropPart(variety),
	}
}

// IsZero reports whether the key has no name
func (k CropKey) IsZero() bool {
	return k.Name == ""
}

// Matches reports whether a crop with the given attributes satisfies the key
func (k CropKey) Matches(name, cropType, variety string) bool {
	if k.Name != normalizeCropPart(name) {
		return false
	}
	if k.Type != "" && k.Type != normalizeCropPart(cropType) {
		return false
	}
	if k.Variety != "" && k.Variety != normalizeCropPart(variety) {
		return false
	}
	return true
}

func (k CropKey) String() string {
	parts := []string{k.Name}
	if k.Type != "" {
		parts = append(parts, k.Type)
	}
	if k.Variety != "" {
		parts = append(parts, k.Variety)
	}
	return strings.Join(parts, "/")
}

func normalizeCropPart(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
