package maven

import "testing"

func TestIsSnapshot(t *testing.T) {
	cases := map[string]bool{
		"1.0.0-SNAPSHOT": true,
		"1.0.0":          false,
		"2.0.0-beta":     false,
	}
	for version, want := range cases {
		if got := isSnapshot(version); got != want {
			t.Errorf("isSnapshot(%q) = %v, want %v", version, got, want)
		}
	}
}

func TestVersionFromPath(t *testing.T) {
	got := versionFromPath("com/example/widget/1.0.0/widget-1.0.0.jar")
	if got != "1.0.0" {
		t.Errorf("versionFromPath() = %q, want %q", got, "1.0.0")
	}
	if got := versionFromPath("widget.jar"); got != "" {
		t.Errorf("versionFromPath() on a shallow path = %q, want empty", got)
	}
}

func TestVersionDirectory(t *testing.T) {
	got := versionDirectory("com/example/widget/1.0.0/widget-1.0.0.jar")
	want := "com/example/widget/1.0.0"
	if got != want {
		t.Errorf("versionDirectory() = %q, want %q", got, want)
	}
}

func TestProjectKeyFromPath(t *testing.T) {
	got := projectKeyFromPath("com/example/widget/1.0.0/widget-1.0.0.jar")
	want := "com.example:widget"
	if got != want {
		t.Errorf("projectKeyFromPath() = %q, want %q", got, want)
	}
	if got := projectKeyFromPath("widget.jar"); got != "" {
		t.Errorf("projectKeyFromPath() on a shallow path = %q, want empty", got)
	}
}
