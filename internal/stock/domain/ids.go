package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Identifier prefixes, one per entity type
const (
	PrefixBatch    = "BCH"
	PrefixStock    = "STK"
	PrefixCrop     = "CRP"
	PrefixOrder    = "ORD"
	PrefixPurchase = "PUR"
	PrefixShipment = "SHP"
)

const idTokenLength = 8

// NewID returns prefix followed by an 8-character upper-case alphanumeric token,
// e.g. BCH3F9A01C2.
func NewID(prefix string) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + token[:idTokenLength]
}

// HasPrefix reports whether id looks like an identifier of the given entity type
func HasPrefix(id, prefix string) bool {
	return len(id) == len(prefix)+idTokenLength && strings.HasPrefix(id, prefix)
}
