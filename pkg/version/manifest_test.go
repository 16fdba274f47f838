package version

import (
	"sort"
	"strings"
	"testing"
)

func TestLoadCurrentManifest(t *testing.T) {
	m, err := LoadCurrentManifest()
	if err != nil {
		t.Fatalf("LoadCurrentManifest() error: %v", err)
	}
	if m.Version != "1.0" {
		t.Errorf("Version = %q, want %q", m.Version, "1.0")
	}
	if m.Description == "" {
		t.Error("Description is empty")
	}
}

func TestLoadManifest_NotFound(t *testing.T) {
	_, err := LoadManifest("99.99")
	if err == nil {
		t.Fatal("LoadManifest(99.99) should return error")
	}
}

func TestAvailableManifests(t *testing.T) {
	versions, err := AvailableManifests()
	if err != nil {
		t.Fatalf("AvailableManifests() error: %v", err)
	}
	found := false
	for _, v := range versions {
		if v == "1.0" {
			found = true
		}
	}
	if !found {
		t.Errorf("AvailableManifests() = %v, want to contain %q", versions, "1.0")
	}
}

func TestManifest10_Properties(t *testing.T) {
	m := mustLoadManifest(t, "1.0")

	want := map[string]string{
		"led1BlinkRate": KindInteger,
		"ledOn":         KindBoolean,
		"statusText":    KindString,
		"targetTempF":   KindFloat,
	}
	if len(m.Properties) != len(want) {
		t.Errorf("manifest has %d properties, want %d", len(m.Properties), len(want))
	}
	for name, kind := range want {
		def, ok := m.Properties[name]
		if !ok {
			t.Errorf("property %q missing from manifest 1.0", name)
			continue
		}
		if def.Kind != kind {
			t.Errorf("property %q kind = %q, want %q", name, def.Kind, kind)
		}
	}
}

func TestManifest10_MandatoryProperties(t *testing.T) {
	m := mustLoadManifest(t, "1.0")

	mandatory := m.MandatoryProperties()
	want := []string{"led1BlinkRate", "ledOn"}
	if len(mandatory) != len(want) {
		t.Fatalf("MandatoryProperties() = %v, want %v", mandatory, want)
	}
	for i, name := range want {
		if mandatory[i] != name {
			t.Errorf("MandatoryProperties()[%d] = %q, want %q", i, mandatory[i], name)
		}
	}
	if !sort.StringsAreSorted(mandatory) {
		t.Errorf("MandatoryProperties() not sorted: %v", mandatory)
	}
}

func TestManifest10_Telemetry(t *testing.T) {
	m := mustLoadManifest(t, "1.0")

	want := []string{"Temperature", "Humidity", "Pressure", "Light", "MsgId"}
	if len(m.Telemetry) != len(want) {
		t.Fatalf("Telemetry = %v, want %v", m.Telemetry, want)
	}
	for i, name := range want {
		if m.Telemetry[i] != name {
			t.Errorf("Telemetry[%d] = %q, want %q", i, m.Telemetry[i], name)
		}
	}
}

func TestParseManifest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"MissingVersion", "properties:\n  x:\n    kind: integer\n"},
		{"NoProperties", "version: \"1.0\"\n"},
		{"UnknownKind", "version: \"1.0\"\nproperties:\n  x:\n    kind: complex\n"},
		{"BadYAML", "version: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseManifest([]byte(tt.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateBindings_AllMandatoryPresent(t *testing.T) {
	m := mustLoadManifest(t, "1.0")

	bound := []BoundProperty{
		{Name: "led1BlinkRate", Kind: "Integer"},
		{Name: "ledOn", Kind: "Boolean"},
	}
	result := ValidateBindings(m, bound)
	if !result.Valid {
		t.Errorf("expected valid, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got: %v", result.Warnings)
	}
}

func TestValidateBindings_MissingMandatory(t *testing.T) {
	m := mustLoadManifest(t, "1.0")

	bound := []BoundProperty{
		{Name: "ledOn", Kind: "Boolean"},
	}
	result := ValidateBindings(m, bound)
	if result.Valid {
		t.Error("expected invalid when led1BlinkRate is missing")
	}
	assertContains(t, result.Errors, "led1BlinkRate")
}

func TestValidateBindings_KindMismatch(t *testing.T) {
	m := mustLoadManifest(t, "1.0")

	bound := []BoundProperty{
		{Name: "led1BlinkRate", Kind: "String"},
		{Name: "ledOn", Kind: "Boolean"},
	}
	result := ValidateBindings(m, bound)
	if result.Valid {
		t.Error("expected invalid on kind mismatch")
	}
	assertContains(t, result.Errors, "led1BlinkRate")
}

func TestValidateBindings_UnknownPropertyWarns(t *testing.T) {
	m := mustLoadManifest(t, "1.0")

	bound := []BoundProperty{
		{Name: "led1BlinkRate", Kind: "Integer"},
		{Name: "ledOn", Kind: "Boolean"},
		{Name: "fanSpeed", Kind: "Integer"},
	}
	result := ValidateBindings(m, bound)
	if !result.Valid {
		t.Errorf("unknown property should warn, not error; errors: %v", result.Errors)
	}
	assertContains(t, result.Warnings, "fanSpeed")
}

func mustLoadManifest(t *testing.T, ver string) *Manifest {
	t.Helper()
	m, err := LoadManifest(ver)
	if err != nil {
		t.Fatalf("LoadManifest(%q) error: %v", ver, err)
	}
	return m
}

func assertContains(t *testing.T, items []string, substr string) {
	t.Helper()
	for _, s := range items {
		if strings.Contains(s, substr) {
			return
		}
	}
	t.Errorf("expected an item containing %q in %v", substr, items)
}
