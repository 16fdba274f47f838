// Command edgetwin-bindgen generates twin binding constructors from a
// twin property manifest.
//
// The generated package carries property name constants, a Handlers
// struct with one callback per property, a New constructor returning
// the full binding set, and the bound-property list used for manifest
// validation at agent startup.
//
// Usage:
//
//	edgetwin-bindgen -o <file.go> [-manifest <path> | -version <ver>] [-package <name>]
//
// Examples:
//
//	# Generate bindings for the current embedded manifest
//	edgetwin-bindgen -o pkg/bindings/bindings_gen.go
//
//	# Generate from an on-disk manifest into a custom package
//	edgetwin-bindgen -manifest manifests/2.0.yaml -package twinv2 -o twinv2/bindings_gen.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"

	"github.com/edgetwin/edgetwin-go/pkg/version"
)

func main() {
	manifestPath := flag.String("manifest", "", "Path to a twin manifest YAML (overrides -version)")
	manifestVer := flag.String("version", "", "Embedded manifest version to generate (default: current)")
	output := flag.String("o", "", "Output path for the generated Go file")
	pkgName := flag.String("package", "bindings", "Package name for the generated file")
	flag.Parse()

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: edgetwin-bindgen -o <file.go> [-manifest <path> | -version <ver>] [-package <name>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*manifestPath, *manifestVer, *output, *pkgName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(manifestPath, manifestVer, output, pkgName string) error {
	manifest, err := loadManifest(manifestPath, manifestVer)
	if err != nil {
		return err
	}

	code, err := GenerateBindings(manifest, pkgName)
	if err != nil {
		return fmt.Errorf("generating bindings: %w", err)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	if err := writeFormatted(output, code); err != nil {
		return err
	}
	fmt.Printf("  generated %s\n", output)
	return nil
}

// loadManifest reads an on-disk manifest when a path is given and falls
// back to the embedded manifests otherwise.
func loadManifest(path, ver string) (*version.Manifest, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		m, err := version.ParseManifest(data)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	if ver == "" {
		ver = version.Current
	}
	return version.LoadManifest(ver)
}

// writeFormatted formats Go source code with goimports and writes it to a file.
func writeFormatted(path string, code string) error {
	formatted, err := imports.Process(path, []byte(code), nil)
	if err != nil {
		// Write unformatted so you can debug the generator output
		_ = os.WriteFile(path+".broken", []byte(code), 0o644)
		return fmt.Errorf("goimports %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, formatted, 0o644)
}
