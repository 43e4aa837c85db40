package registry

import (
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/fixturelab/conductor/types"
)

// Registry holds the suite descriptor: the ordered fixture registration
// table plus the selection flags produced by whatever selection UI exists
// outside the engine.
type Registry struct {
	config    Config
	fixtures  []types.FixtureDescriptor
	names     map[string]struct{}
	selection *selectionConfig
	mu        sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log log.Logger
	// SelectionFile is an optional YAML file carrying per-fixture and
	// per-test selected flags. Absent file or absent entry means selected.
	SelectionFile string
}

// selectionConfig mirrors the YAML selection file.
type selectionConfig struct {
	Fixtures []fixtureSelection `yaml:"fixtures"`
}

type fixtureSelection struct {
	Name     string          `yaml:"name"`
	Selected *bool           `yaml:"selected,omitempty"`
	Tests    []testSelection `yaml:"tests,omitempty"`
}

type testSelection struct {
	Name     string `yaml:"name"`
	Selected *bool  `yaml:"selected,omitempty"`
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{
		config: cfg,
		names:  make(map[string]struct{}),
	}

	if cfg.SelectionFile != "" {
		sel, err := loadSelection(cfg.SelectionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load selection file: %w", err)
		}
		r.selection = sel
	}

	cfg.Log.Debug("Registry created", "selectionFile", cfg.SelectionFile)
	return r, nil
}

func loadSelection(path string) (*selectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var sel selectionConfig
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &sel, nil
}

// Register adds a fixture descriptor to the table. Fixtures run in
// registration order; duplicate names are rejected.
func (r *Registry) Register(d types.FixtureDescriptor) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid fixture descriptor: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[d.Name]; exists {
		return fmt.Errorf("fixture %s already registered", d.Name)
	}
	r.names[d.Name] = struct{}{}
	r.fixtures = append(r.fixtures, d)

	r.config.Log.Debug("Registered fixture", "fixture", d.Name, "tests", len(d.Tests))
	return nil
}

// Fixtures returns the registered descriptors in registration order.
func (r *Registry) Fixtures() []types.FixtureDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.FixtureDescriptor, len(r.fixtures))
	copy(out, r.fixtures)
	return out
}

// TestCount returns the total number of declared tests. Used purely for
// reporting.
func (r *Registry) TestCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, d := range r.fixtures {
		count += len(d.Tests)
	}
	return count
}

// Entries builds fresh run-scoped entries for every registered fixture,
// with selection flags resolved. Nothing persists across runs; each call
// starts every state machine at NotRun.
func (r *Registry) Entries() []*types.FixtureEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*types.FixtureEntry, 0, len(r.fixtures))
	for _, d := range r.fixtures {
		fsel := r.fixtureSelection(d.Name)
		fx := &types.FixtureEntry{
			Descriptor: d,
			Selected:   fixtureSelected(fsel),
		}
		for _, step := range d.Tests {
			fx.Tests = append(fx.Tests, &types.TestEntry{
				Step:     step,
				Selected: testSelected(fsel, step.Name),
			})
		}
		entries = append(entries, fx)
	}
	return entries
}

func (r *Registry) fixtureSelection(name string) *fixtureSelection {
	if r.selection == nil {
		return nil
	}
	for i := range r.selection.Fixtures {
		if r.selection.Fixtures[i].Name == name {
			return &r.selection.Fixtures[i]
		}
	}
	return nil
}

func fixtureSelected(fsel *fixtureSelection) bool {
	if fsel == nil || fsel.Selected == nil {
		return true
	}
	return *fsel.Selected
}

func testSelected(fsel *fixtureSelection, test string) bool {
	if fsel == nil {
		return true
	}
	for _, tsel := range fsel.Tests {
		if tsel.Name == test {
			if tsel.Selected == nil {
				return true
			}
			return *tsel.Selected
		}
	}
	return true
}
