// internal/browser/catalog.go
package browser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"proxylens/internal/core/domain"
)

// DefaultProfile se usa cuando no se pide perfil.
const DefaultProfile = "chrome-143"

// Catalog es un conjunto inmutable de perfiles indexado por nombre canónico.
type Catalog struct {
	byName map[string]*Profile
}

// NewCatalog construye un catálogo desde specs. Rechaza nombres duplicados.
func NewCatalog(specs ...ProfileSpec) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*Profile, len(specs))}
	for _, s := range specs {
		p, err := NewProfile(s)
		if err != nil {
			return nil, err
		}
		if _, dup := c.byName[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate profile %q", p.Name())
		}
		c.byName[p.Name()] = p
	}
	return c, nil
}

// DefaultCatalog retorna los perfiles incluidos: chrome-143, chrome-131,
// firefox-133 y safari-18.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(builtinSpecs()...)
	if err != nil {
		panic(fmt.Sprintf("browser: invalid built-in profile: %v", err))
	}
	return c
}

// With retorna un catálogo nuevo que además contiene specs. Nunca reemplaza
// entradas existentes.
func (c *Catalog) With(specs ...ProfileSpec) (*Catalog, error) {
	out := &Catalog{byName: make(map[string]*Profile, len(c.byName)+len(specs))}
	for name, p := range c.byName {
		out.byName[name] = p
	}
	for _, s := range specs {
		p, err := NewProfile(s)
		if err != nil {
			return nil, err
		}
		if _, dup := out.byName[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate profile %q", p.Name())
		}
		out.byName[p.Name()] = p
	}
	return out, nil
}

// Resolve busca un perfil por nombre. Acepta "chrome-143", "chrome143",
// "Chrome 143" y la familia sola, que resuelve a su versión más nueva.
func (c *Catalog) Resolve(name string) (*Profile, error) {
	key := canonicalName(name)
	if key == "" {
		key = DefaultProfile
	}
	if p, ok := c.byName[key]; ok {
		return p, nil
	}

	var best *Profile
	for _, p := range c.byName {
		if p.Family() != key {
			continue
		}
		if best == nil || newer(p.Version(), best.Version()) {
			best = p
		}
	}
	if best != nil {
		return best, nil
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", domain.ErrUnknownProfile, name, strings.Join(c.Names(), ", "))
}

// Names retorna los nombres ordenados.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len retorna el número de perfiles.
func (c *Catalog) Len() int {
	return len(c.byName)
}

// canonicalName pasa a minúsculas y pone el guion entre familia y versión:
// "Chrome 143" y "chrome143" quedan como "chrome-143".
func canonicalName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	if strings.Contains(s, "-") {
		return s
	}
	i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if i > 0 {
		return s[:i] + "-" + s[i:]
	}
	return s
}

func newer(a, b string) bool {
	ai, aerr := strconv.Atoi(majorVersion(a))
	bi, berr := strconv.Atoi(majorVersion(b))
	if aerr != nil || berr != nil {
		return a > b
	}
	return ai > bi
}

func majorVersion(v string) string {
	if i := strings.IndexByte(v, '.'); i >= 0 {
		return v[:i]
	}
	return v
}
