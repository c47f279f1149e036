package permissions

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/charlesng35/talentgate/internal/models"
)

// Definition declares a permission the system understands.
type Definition struct {
	Resource    string
	Action      string
	Category    string
	Description string
}

// Key renders the definition as "resource:action".
func (d Definition) Key() string {
	return models.PermissionKey(d.Resource, d.Action)
}

var (
	errEmptyResource = errors.New("permission: resource is required")
	errEmptyAction   = errors.New("permission: action is required")
	errInvalidName   = errors.New("permission: resource and action must be lowercase identifiers")
	errDuplicateKey  = errors.New("permission: already registered")
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Registry holds the fixed universe of permission definitions. It is populated once at start-up
// and synchronised into the store by Sync.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition, rejecting malformed or duplicate entries.
func (r *Registry) Register(def Definition) error {
	def.Resource = strings.TrimSpace(def.Resource)
	def.Action = strings.TrimSpace(def.Action)
	def.Category = strings.TrimSpace(def.Category)
	def.Description = strings.TrimSpace(def.Description)

	switch {
	case def.Resource == "":
		return errEmptyResource
	case def.Action == "":
		return errEmptyAction
	case !namePattern.MatchString(def.Resource) || !namePattern.MatchString(def.Action):
		return fmt.Errorf("%w: %s", errInvalidName, def.Key())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Key()]; exists {
		return fmt.Errorf("%w: %s", errDuplicateKey, def.Key())
	}
	r.defs[def.Key()] = def
	return nil
}

// RegisterAll registers every definition and reports all failures together.
func (r *Registry) RegisterAll(defs []Definition) error {
	var err error
	for _, def := range defs {
		err = multierr.Append(err, r.Register(def))
	}
	return err
}

// Get looks up a definition by resource and action.
func (r *Registry) Get(resource, action string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[models.PermissionKey(resource, action)]
	return def, ok
}

// All returns every definition ordered by category, resource and action.
func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sortDefinitions(out)
	return out
}

// ByCategory returns the definitions tagged with category.
func (r *Registry) ByCategory(category string) []Definition {
	category = strings.TrimSpace(category)

	var out []Definition
	for _, def := range r.All() {
		if def.Category == category {
			out = append(out, def)
		}
	}
	return out
}

// Len reports the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

func sortDefinitions(defs []Definition) {
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Category != defs[j].Category {
			return defs[i].Category < defs[j].Category
		}
		if defs[i].Resource != defs[j].Resource {
			return defs[i].Resource < defs[j].Resource
		}
		return defs[i].Action < defs[j].Action
	})
}
