package core

import "fmt"

// FieldSchema declares the expected shape of one field or event payload
// slot. The engine only needs to reject obviously-wrong payloads, not
// re-implement a general type system, so a FieldSchema is a single expected
// ValueKind plus an optional nested schema for VTuple fields; unknown
// fields are rejected.
type FieldSchema struct {
	Name     string
	Kind     ValueKind
	Elements []FieldSchema // valid when Kind == VTuple
}

// BlueprintSchema is the package-declared shape every instance of a
// blueprint must satisfy: its object fields, and the payload shape of each
// event it may emit, a statically declared schema loaded from the
// package's schema module.
type BlueprintSchema struct {
	Blueprint string
	Fields    []FieldSchema
	Events    map[string][]FieldSchema
}

// Validate checks fields against the schema's field declarations: same
// count, and each value's Kind matches the declared Kind (recursively for
// tuples). Extra or missing fields are rejected outright.
func (s *BlueprintSchema) Validate(fields []Value) error {
	return validateFields(s.Fields, fields)
}

// ValidateEvent checks an emitted event's payload against the schema entry
// registered for that event name.
func (s *BlueprintSchema) ValidateEvent(name string, fields []Value) error {
	decl, ok := s.Events[name]
	if !ok {
		return systemErr(KindSchemaValidationError, "blueprint %q declares no event %q", s.Blueprint, name)
	}
	return validateFields(decl, fields)
}

func validateFields(decl []FieldSchema, got []Value) error {
	if len(decl) != len(got) {
		return systemErr(KindSchemaValidationError, "expected %d field(s), got %d", len(decl), len(got))
	}
	for i, d := range decl {
		if got[i].Kind != d.Kind {
			return systemErr(KindSchemaValidationError, "field %q: expected kind %d, got %d", d.Name, d.Kind, got[i].Kind)
		}
		if d.Kind == VTuple {
			if err := validateFields(d.Elements, got[i].Tuple); err != nil {
				return fmt.Errorf("field %q: %w", d.Name, err)
			}
		}
	}
	return nil
}

// SchemaRegistry maps a package's blueprints to their declared schemas,
// populated by System.RegisterBlueprint and consulted by the system layer
// when it creates an object (NewObject) or emits a schema-checked event
// (EmitEvent).
type SchemaRegistry struct {
	byPackage map[NodeId]map[string]*BlueprintSchema
}

func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{byPackage: make(map[NodeId]map[string]*BlueprintSchema)}
}

func (r *SchemaRegistry) Register(pkg NodeId, schema *BlueprintSchema) {
	if r.byPackage[pkg] == nil {
		r.byPackage[pkg] = make(map[string]*BlueprintSchema)
	}
	r.byPackage[pkg][schema.Blueprint] = schema
}

func (r *SchemaRegistry) Lookup(pkg NodeId, blueprint string) (*BlueprintSchema, bool) {
	m, ok := r.byPackage[pkg]
	if !ok {
		return nil, false
	}
	s, ok := m[blueprint]
	return s, ok
}
