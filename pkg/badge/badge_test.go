package badge

import (
	"strings"
	"testing"
)

func TestRender_ContainsLabelAndValue(t *testing.T) {
	svg := Render(DefaultSettings(), "repository", "1.0.0")
	if !strings.Contains(svg, "<svg") {
		t.Errorf("Render() did not produce an <svg> root element")
	}
	if !strings.Contains(svg, "repository") {
		t.Errorf("Render() output missing label")
	}
	if !strings.Contains(svg, "1.0.0") {
		t.Errorf("Render() output missing value")
	}
}

func TestRender_EscapesUnsafeCharacters(t *testing.T) {
	svg := Render(DefaultSettings(), "a<b", `v"&`)
	if strings.Contains(svg, "<b") {
		t.Errorf("Render() did not escape label")
	}
	if strings.Contains(svg, `"&`) {
		t.Errorf("Render() did not escape value")
	}
}
