package npm

import "testing"

func TestValidatePackageName(t *testing.T) {
	valid := []string{"test", "test-pkg", "test_pkg", "@scope/test"}
	for _, name := range valid {
		if !ValidatePackageName(name) {
			t.Errorf("ValidatePackageName(%q) = false, want true", name)
		}
	}

	invalid := []string{"Test", "te/st", "@/x", "", "@scope/", "@/rest"}
	for _, name := range invalid {
		if ValidatePackageName(name) {
			t.Errorf("ValidatePackageName(%q) = true, want false", name)
		}
	}
}
