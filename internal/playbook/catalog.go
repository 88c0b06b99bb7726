// Package playbook turns a persona vector into a vendor-specific outreach
// script using deterministic decision tables.
package playbook

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// GenericVendor is the fallback vendor for every lookup.
const GenericVendor = "generic"

const defaultKey = "default"

// Vendor is one catalog entry. Map keys are decision categories or persona
// topics, plus the reserved "default" key.
type Vendor struct {
	ID                string              `yaml:"id"`
	Name              string              `yaml:"name"`
	ValuePropositions map[string]string   `yaml:"value_propositions"`
	Cases             map[string]string   `yaml:"cases"`
	Products          map[string][]string `yaml:"products"`
	Packages          map[string][]string `yaml:"packages"`
}

// Catalog is the versioned vendor product taxonomy.
type Catalog struct {
	Version int      `yaml:"version"`
	Vendors []Vendor `yaml:"vendors"`

	byID map[string]*Vendor
}

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog from a YAML file. An empty path returns the
// embedded default.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "playbook: read catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog document with a top-level "catalog" key and
// checks that the generic vendor can answer every table.
func ParseCatalog(data []byte) (*Catalog, error) {
	var wrapper struct {
		Catalog Catalog `yaml:"catalog"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "playbook: parse catalog")
	}
	c := &wrapper.Catalog

	c.byID = make(map[string]*Vendor, len(c.Vendors))
	for i := range c.Vendors {
		id := NormalizeVendor(c.Vendors[i].ID)
		if id == "" {
			return nil, eris.Errorf("playbook: vendor %d has no id", i)
		}
		if _, dup := c.byID[id]; dup {
			return nil, eris.Errorf("playbook: duplicate vendor %q", id)
		}
		c.Vendors[i].ID = id
		c.byID[id] = &c.Vendors[i]
	}

	g, ok := c.byID[GenericVendor]
	if !ok {
		return nil, eris.New("playbook: catalog has no generic vendor")
	}
	var missing []string
	if strings.TrimSpace(g.ValuePropositions[defaultKey]) == "" {
		missing = append(missing, "value_propositions")
	}
	if strings.TrimSpace(g.Cases[defaultKey]) == "" {
		missing = append(missing, "cases")
	}
	if len(g.Products[defaultKey]) == 0 {
		missing = append(missing, "products")
	}
	if len(g.Packages[defaultKey]) == 0 {
		missing = append(missing, "packages")
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("playbook: generic vendor lacks a default for %s", strings.Join(missing, ", "))
	}

	return c, nil
}

// Vendor returns the entry for id, or the generic vendor when id is unknown.
// The boolean reports whether id itself was found.
func (c *Catalog) Vendor(id string) (*Vendor, bool) {
	if v, ok := c.byID[NormalizeVendor(id)]; ok {
		return v, true
	}
	return c.byID[GenericVendor], false
}

func (c *Catalog) generic() *Vendor {
	return c.byID[GenericVendor]
}

// text looks key up in the vendor's table, then in the generic vendor's.
func (c *Catalog) text(v *Vendor, table func(*Vendor) map[string]string, key string) string {
	if s := table(v)[key]; s != "" {
		return s
	}
	return table(c.generic())[key]
}

// list is text for list-valued tables.
func (c *Catalog) list(v *Vendor, table func(*Vendor) map[string][]string, key string) []string {
	if l := table(v)[key]; len(l) > 0 {
		return l
	}
	return table(c.generic())[key]
}

// NormalizeVendor returns the catalog key for a vendor name.
func NormalizeVendor(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
