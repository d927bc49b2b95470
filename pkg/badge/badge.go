// Package badge renders small SVG status badges (`/badge/...`), the
// same label/value/color shape as original_source's badge.rs, which built
// on a Rust badge-maker crate. No equivalent SVG badge library appears
// anywhere in the retrieved corpus, so this renders the flat-style SVG
// directly rather than reaching for an unrelated third-party dependency —
// it is a small, self-contained text-layout problem, not a case for
// standing up a new dependency. See DESIGN.md.
package badge

import (
	"fmt"
	"strings"
)

// Settings controls a badge's appearance, mirroring original_source's
// BadgeSettings (label_color, color, style).
type Settings struct {
	LabelColor string
	Color      string
	Style      string // currently only "flat" is rendered
}

// DefaultSettings matches shields.io's conventional defaults.
func DefaultSettings() Settings {
	return Settings{LabelColor: "#555", Color: "#4c1", Style: "flat"}
}

const (
	charWidth    = 7 // approximate average glyph width at the badge's font size
	horizontalPad = 10
	height        = 20
)

// Render produces a flat-style SVG badge with the given label and value.
func Render(settings Settings, label, value string) string {
	labelColor := settings.LabelColor
	if labelColor == "" {
		labelColor = DefaultSettings().LabelColor
	}
	color := settings.Color
	if color == "" {
		color = DefaultSettings().Color
	}

	labelWidth := textWidth(label)
	valueWidth := textWidth(value)
	totalWidth := labelWidth + valueWidth

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" role="img" aria-label="%s: %s">`,
		totalWidth, height, escape(label), escape(value))
	fmt.Fprintf(&b, `<linearGradient id="s" x2="0" y2="100%%"><stop offset="0" stop-color="#bbb" stop-opacity=".1"/><stop offset="1" stop-opacity=".1"/></linearGradient>`)
	fmt.Fprintf(&b, `<clipPath id="r"><rect width="%d" height="%d" rx="3" fill="#fff"/></clipPath>`, totalWidth, height)
	b.WriteString(`<g clip-path="url(#r)">`)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, labelWidth, height, escape(labelColor))
	fmt.Fprintf(&b, `<rect x="%d" width="%d" height="%d" fill="%s"/>`, labelWidth, valueWidth, height, escape(color))
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="url(#s)"/>`, totalWidth, height)
	b.WriteString(`</g>`)
	b.WriteString(`<g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" font-size="11">`)
	fmt.Fprintf(&b, `<text x="%d" y="14">%s</text>`, labelWidth/2, escape(label))
	fmt.Fprintf(&b, `<text x="%d" y="14">%s</text>`, labelWidth+valueWidth/2, escape(value))
	b.WriteString(`</g></svg>`)
	return b.String()
}

func textWidth(s string) int {
	return len(s)*charWidth + horizontalPad*2
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
