// Package i18n holds locale catalogs for player-facing error messages.
package i18n

import "strings"

// Code mirrors errors.Code as a plain string to avoid an import cycle.
type Code = string

// Catalog maps error codes to message templates for one locale.
type Catalog struct {
	locale   string
	messages map[Code]string
}

// Locale returns the catalog locale tag.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message for code, substituting {{.Key}} placeholders
// from metadata. Returns "" when the catalog has no entry for the code.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	template, ok := c.messages[code]
	if !ok {
		return ""
	}
	if len(metadata) == 0 {
		return template
	}
	pairs := make([]string, 0, len(metadata)*2)
	for key, value := range metadata {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// DefaultCatalog returns the en-US catalog.
func DefaultCatalog() *Catalog {
	return enUSCatalog
}

// GetCatalog returns the catalog for the locale, falling back to en-US.
func GetCatalog(locale string) *Catalog {
	if strings.EqualFold(locale, enUSCatalog.locale) {
		return enUSCatalog
	}
	return enUSCatalog
}
