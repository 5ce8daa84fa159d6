package llm

import (
	"sort"
	"strings"
	"sync"

	"github.com/richinex/cair/cairerr"
)

// Constructor builds a provider. It must fail fast with
// cairerr.ErrCapabilityUnavailable when a credential or dependency is missing.
type Constructor func() (Provider, error)

// Catalog maps provider names (and aliases) to constructors.
// An unregistered name yields cairerr.ErrUnknownProvider instead of silently
// becoming a mock.
type Catalog struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	aliases      map[string]string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		constructors: make(map[string]Constructor),
		aliases:      make(map[string]string),
	}
}

// DefaultCatalog registers every built-in provider type, reading credentials
// from the environment.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, pt := range ProviderTypes() {
		c.Register(pt.String(), pt.FromEnv, pt.Aliases()...)
	}
	return c
}

// Register adds or replaces a constructor under name and its aliases.
func (c *Catalog) Register(name string, ctor Constructor, aliases ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name = normalize(name)
	c.constructors[name] = ctor
	for _, alias := range aliases {
		c.aliases[normalize(alias)] = name
	}
}

// Canonical resolves an alias to its registered name.
func (c *Catalog) Canonical(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canonical(name)
}

func (c *Catalog) canonical(name string) (string, bool) {
	name = normalize(name)
	if _, ok := c.constructors[name]; ok {
		return name, true
	}
	if target, ok := c.aliases[name]; ok {
		return target, true
	}
	return name, false
}

// New constructs the provider registered under name.
func (c *Catalog) New(name string) (Provider, error) {
	c.mu.RLock()
	canonical, ok := c.canonical(name)
	ctor := c.constructors[canonical]
	c.mu.RUnlock()

	if !ok {
		return nil, cairerr.UnknownProvider(name)
	}
	return ctor()
}

// Names returns the registered canonical names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.constructors))
	for name := range c.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
