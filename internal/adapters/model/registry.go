// Package model invokes language-model backends through a shared
// runtime endpoint. Two wire formats exist for the supported model
// families; a closed dispatch table keyed by model id selects the
// codec so call sites never branch on format.
package model

import (
	"fmt"
)

// Format identifies a request/response wire shape.
type Format string

const (
	FormatNova   Format = "nova"
	FormatOpenAI Format = "openai"
)

// Spec describes one entry in the model dispatch table.
type Spec struct {
	ID     string
	Format Format
	Name   string
}

// Table is the closed model registry. Unknown model ids are rejected
// when the table is built, not when a call is made.
type Table struct {
	specs  map[string]Spec
	codecs map[Format]codec
}

// NewTable builds the registry from the configured specs.
func NewTable(specs []Spec) (*Table, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("model table requires at least one entry")
	}
	codecs := map[Format]codec{
		FormatNova:   novaCodec{},
		FormatOpenAI: openaiCodec{},
	}
	byID := make(map[string]Spec, len(specs))
	for _, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("model spec has empty id")
		}
		if _, ok := codecs[spec.Format]; !ok {
			return nil, fmt.Errorf("model %s has unknown format %q", spec.ID, spec.Format)
		}
		if _, dup := byID[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %s", spec.ID)
		}
		byID[spec.ID] = spec
	}
	return &Table{specs: byID, codecs: codecs}, nil
}

// Lookup returns the spec for a model id.
func (t *Table) Lookup(modelID string) (Spec, bool) {
	spec, ok := t.specs[modelID]
	return spec, ok
}

// DisplayName returns the human-readable name for a model id, falling
// back to the id itself.
func (t *Table) DisplayName(modelID string) string {
	if spec, ok := t.specs[modelID]; ok && spec.Name != "" {
		return spec.Name
	}
	return modelID
}

// IDs returns all registered model ids.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.specs))
	for id := range t.specs {
		ids = append(ids, id)
	}
	return ids
}

func (t *Table) codecFor(spec Spec) codec {
	return t.codecs[spec.Format]
}
