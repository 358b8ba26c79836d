package tool

// Parameter type literals used in operation specs.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// Spec describes one operation in the fixed catalog.
type Spec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

// Param describes one operation parameter. Params are ordered; the order is
// preserved in the rendered schema.
type Param struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Min         *int     `json:"minimum,omitempty"`
	Max         *int     `json:"maximum,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// Between returns a copy of p bounded to [lo, hi].
func (p Param) Between(lo, hi int) Param {
	p.Min, p.Max = &lo, &hi
	return p
}

// Param returns the named parameter.
func (s Spec) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Required returns required parameter names in declaration order.
func (s Spec) Required() []string {
	out := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// InputSchema renders the spec as a JSON Schema object.
func (s Spec) InputSchema() map[string]any {
	properties := make(map[string]any, len(s.Params))
	for _, p := range s.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Min != nil {
			prop["minimum"] = *p.Min
		}
		if p.Max != nil {
			prop["maximum"] = *p.Max
		}
		if len(p.Enum) > 0 {
			enum := make([]string, len(p.Enum))
			copy(enum, p.Enum)
			prop["enum"] = enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if required := s.Required(); len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// WithName returns a copy of the spec registered under another name.
func (s Spec) WithName(name string) Spec {
	out := s
	out.Name = name
	out.Params = make([]Param, len(s.Params))
	copy(out.Params, s.Params)
	return out
}
