// Package config provides the layered default-configuration lookup consulted
// by importers during an import run. A Context stacks named layers (global
// defaults below, per-directory overrides above); resolution walks layers
// top-down and returns the first value found. A Context is immutable once
// built and safe for concurrent reads across import tasks.
package config

import (
	"fmt"
	"maps"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/radium-io/atelier-assets/errors"
)

// Layer is one named level of default values, keyed by dotted setting name
// (e.g. "text.normalize_eol").
type Layer struct {
	name   string
	values map[string]any
}

// NewLayer creates a layer from an in-memory value map. The map is copied.
func NewLayer(name string, values map[string]any) Layer {
	copied := make(map[string]any, len(values))
	maps.Copy(copied, values)
	return Layer{name: name, values: copied}
}

// LoadLayer reads a YAML file of setting defaults into a layer named after
// the file path.
func LoadLayer(path string) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layer{}, errors.WrapTransient(err, "Layer", "LoadLayer", "defaults file read")
	}
	return ParseLayer(path, data)
}

// ParseLayer decodes YAML bytes into a layer.
func ParseLayer(name string, data []byte) (Layer, error) {
	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return Layer{}, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			"Layer", "ParseLayer", "defaults file parse")
	}
	return Layer{name: name, values: values}, nil
}

// Name returns the layer's name, used in logs when a lookup resolves.
func (l Layer) Name() string {
	return l.name
}

// Context is the layered resolver importers consult for advisory defaults.
// The zero value resolves nothing and is usable.
type Context struct {
	layers []Layer // index 0 is the bottom (global) layer
}

// NewContext stacks the given layers, first argument at the bottom.
func NewContext(layers ...Layer) *Context {
	return &Context{layers: layers}
}

// WithLayer returns a new Context with an extra override layer on top. The
// receiver is not modified, so a global context can be shared while
// per-directory overlays are stacked per import run.
func (c *Context) WithLayer(layer Layer) *Context {
	stacked := make([]Layer, 0, len(c.layers)+1)
	stacked = append(stacked, c.layers...)
	stacked = append(stacked, layer)
	return &Context{layers: stacked}
}

// Resolve looks a key up through the layers, topmost first. Returns false
// when no layer defines the key.
func (c *Context) Resolve(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	for i := len(c.layers) - 1; i >= 0; i-- {
		if value, ok := c.layers[i].values[key]; ok {
			return value, true
		}
	}
	return nil, false
}

// ResolveString resolves a string default with a fallback.
func (c *Context) ResolveString(key, defaultValue string) string {
	value, ok := c.Resolve(key)
	if !ok {
		return defaultValue
	}
	if s, ok := value.(string); ok {
		return s
	}
	return defaultValue
}

// ResolveBool resolves a boolean default with a fallback.
func (c *Context) ResolveBool(key string, defaultValue bool) bool {
	value, ok := c.Resolve(key)
	if !ok {
		return defaultValue
	}
	if b, ok := value.(bool); ok {
		return b
	}
	return defaultValue
}

// ResolveInt resolves an integer default with a fallback. YAML and JSON
// decoders produce different numeric types, so the common ones are coerced.
func (c *Context) ResolveInt(key string, defaultValue int) int {
	value, ok := c.Resolve(key)
	if !ok {
		return defaultValue
	}
	switch v := value.(type) {
	case int:
		return v
	case int64:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return defaultValue
		}
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return defaultValue
		}
		result := int(v)
		if float64(result) != v {
			return defaultValue
		}
		return result
	}
	return defaultValue
}

// ResolveFloat64 resolves a float default with a fallback.
func (c *Context) ResolveFloat64(key string, defaultValue float64) float64 {
	value, ok := c.Resolve(key)
	if !ok {
		return defaultValue
	}
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return defaultValue
		}
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return defaultValue
}
