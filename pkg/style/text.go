package style

import (
	"bytes"
	"encoding/xml"
)

// MaxLabelRunes is the longest label shown on a node before truncation.
const MaxLabelRunes = 14

// Ellipsis is appended to truncated labels.
const Ellipsis = "…"

// TruncateLabel shortens s to [MaxLabelRunes] runes plus an ellipsis.
func TruncateLabel(s string) string {
	r := []rune(s)
	if len(r) <= MaxLabelRunes {
		return s
	}
	return string(r[:MaxLabelRunes]) + Ellipsis
}

// EscapeXML escapes s for use in SVG text and attribute values.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
