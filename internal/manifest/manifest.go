// Package manifest loads and validates the application's package.json.
package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
)

//go:embed package.schema.json
var schemaJSON []byte

const schemaURL = "package.schema.json"

// Config is the "config" section of package.json.
type Config struct {
	CompanyName    string `json:"company-name,omitempty"`
	LegalCopyright string `json:"legal-copyright,omitempty"`
	Icon           string `json:"icon,omitempty"`
	Identifier     string `json:"identifier,omitempty"`
}

// Package is the parsed package descriptor. It is treated as read-only by
// every component; derived names are computed by methods.
type Package struct {
	Name         string            `json:"name"`
	ProductName  string            `json:"productName"`
	Version      string            `json:"version"`
	Description  string            `json:"description,omitempty"`
	Main         string            `json:"main,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Config       Config            `json:"config"`
}

var schema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("manifest: parse embedded schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		panic(fmt.Sprintf("manifest: add schema: %v", err))
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("manifest: compile schema: %v", err))
	}
	return sch
}

// Load reads and validates the package descriptor at path.
func Load(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	pkg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pkg, nil
}

// Parse validates data against the package schema and decodes it.
func Parse(data []byte) (*Package, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse package descriptor: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("invalid package descriptor: %w", err)
	}

	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("decode package descriptor: %w", err)
	}
	if !semver.IsValid(canonical(pkg.Version)) {
		return nil, fmt.Errorf("invalid package version %q: not a semantic version", pkg.Version)
	}
	return &pkg, nil
}

func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// ExecutableName is the product name with spaces removed, used for
// executables and plist executable keys.
func (p *Package) ExecutableName() string {
	return strings.ReplaceAll(p.ProductName, " ", "")
}

// IconFileName returns the generated icon name for ext (".icns", ".ico").
func (p *Package) IconFileName(ext string) string {
	return p.Name + ext
}

// HasIcon reports whether an icon is configured.
func (p *Package) HasIcon() bool {
	return strings.TrimSpace(p.Config.Icon) != ""
}

// DependencyNames returns the dependency keys in sorted order.
func (p *Package) DependencyNames() []string {
	names := make([]string, 0, len(p.Dependencies))
	for name := range p.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HelperIdentifier derives a helper bundle identifier from the configured
// identifier. suffix is the helper's qualifier ("", "EH", "GPU") and is
// lowercased with spaces turned into dots. Returns "" when no identifier is
// configured.
func (p *Package) HelperIdentifier(suffix string) string {
	if p.Config.Identifier == "" {
		return ""
	}
	id := p.Config.Identifier + ".helper"
	suffix = strings.Trim(strings.NewReplacer("(", "", ")", "").Replace(suffix), " ")
	if suffix != "" {
		id += "." + strings.ReplaceAll(strings.ToLower(suffix), " ", ".")
	}
	return id
}
