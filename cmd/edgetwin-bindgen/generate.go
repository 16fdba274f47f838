package main

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/edgetwin/edgetwin-go/pkg/version"
)

// funcMap provides helper functions available to the templates.
var funcMap = template.FuncMap{
	"quote":      func(s string) string { return fmt.Sprintf("%q", s) },
	"firstLower": firstLower,
}

var templates = template.Must(template.New("").Funcs(funcMap).Parse(bindingsTmpl))

// propData holds pre-computed data for one manifest property.
type propData struct {
	// Name is the wire-level property name ("led1BlinkRate").
	Name string
	// GoName is the exported Go identifier suffix ("Led1BlinkRate").
	GoName string
	// Kind is the manifest kind ("integer").
	Kind string
	// Constructor is the twin constructor name ("NewInteger").
	Constructor string
	Mandatory   bool
	Description string
}

// bindingsData is the root template context.
type bindingsData struct {
	Package     string
	Version     string
	Description string
	Props       []propData
	Telemetry   []string
}

// constructorByKind maps manifest kinds to twin binding constructors.
var constructorByKind = map[string]string{
	version.KindInteger: "NewInteger",
	version.KindFloat:   "NewFloat",
	version.KindBoolean: "NewBoolean",
	version.KindString:  "NewString",
}

// GenerateBindings renders the binding package source for a manifest.
// Properties are emitted in name order so repeated runs produce
// identical output.
func GenerateBindings(m *version.Manifest, pkgName string) (string, error) {
	data := bindingsData{
		Package:     pkgName,
		Version:     m.Version,
		Description: m.Description,
		Telemetry:   m.Telemetry,
	}

	for _, name := range m.PropertyNames() {
		def := m.Properties[name]
		constructor, ok := constructorByKind[def.Kind]
		if !ok {
			return "", fmt.Errorf("property %q has unknown kind %q", name, def.Kind)
		}
		data.Props = append(data.Props, propData{
			Name:        name,
			GoName:      goTitleCase(name),
			Kind:        def.Kind,
			Constructor: constructor,
			Mandatory:   def.Mandatory,
			Description: def.Description,
		})
	}

	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, "bindings", data); err != nil {
		return "", fmt.Errorf("rendering bindings: %w", err)
	}
	return b.String(), nil
}

// goTitleCase converts a lowerCamel property name to an exported Go
// identifier ("led1BlinkRate" -> "Led1BlinkRate").
func goTitleCase(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// firstLower lowercases the first rune of a sentence for mid-comment use.
func firstLower(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}

const bindingsTmpl = `{{define "bindings"}}
{{- /* Header */ -}}
// Code generated by edgetwin-bindgen. DO NOT EDIT.
//
// Source: twin manifest {{.Version}}{{if .Description}} ({{firstLower .Description}}){{end}}

package {{.Package}}

import (
"github.com/edgetwin/edgetwin-go/pkg/twin"
"github.com/edgetwin/edgetwin-go/pkg/version"
)

// ManifestVersion is the manifest these bindings were generated from.
const ManifestVersion = {{quote .Version}}

// Twin property names.
const (
{{- range .Props}}
Prop{{.GoName}} = {{quote .Name}}
{{- end}}
)

// Handlers carries one change callback per twin property. A nil
// handler stores the desired value without side effects.
type Handlers struct {
{{- range .Props}}
{{- if .Description}}
// On{{.GoName}} handles {{.Name}}: {{firstLower .Description}}.{{if .Mandatory}} Mandatory.{{end}}
{{- else}}
// On{{.GoName}} handles {{.Name}}.{{if .Mandatory}} Mandatory.{{end}}
{{- end}}
On{{.GoName}} twin.Handler
{{- end}}
}

// New returns one binding per manifest property, in name order.
func New(h Handlers) []*twin.Binding {
return []*twin.Binding{
{{- range .Props}}
twin.{{.Constructor}}(Prop{{.GoName}}, h.On{{.GoName}}),
{{- end}}
}
}

// Bound returns the property set in the shape manifest validation
// expects.
func Bound() []version.BoundProperty {
return []version.BoundProperty{
{{- range .Props}}
{Name: Prop{{.GoName}}, Kind: {{quote .Kind}}},
{{- end}}
}
}
{{if .Telemetry}}
// TelemetryFields lists the telemetry envelope fields of this manifest.
var TelemetryFields = []string{
{{- range .Telemetry}}
{{quote .}},
{{- end}}
}
{{end}}
{{- end}}`
