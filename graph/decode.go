package graph

import (
	"encoding/json"
	"fmt"

	"github.com/kenjpais/diagram-generator/errors"
)

// SchemaError reports a required field that is absent or has the wrong JSON type.
// It matches errors.ErrSchema.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Is lets errors.Is(err, errors.ErrSchema) match any SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == errors.ErrSchema
}

// Decode parses graph JSON and checks required-field presence and types.
//
// Required: title, components, relationships; id/label on groups;
// id/label/type on components; source/target/label on relationships.
// Group and relationship types default to "default"; groups default to empty.
func Decode(data []byte) (*Model, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errors.WithStack(&SchemaError{Path: "$", Reason: "invalid JSON object: " + err.Error()})
	}
	if root == nil {
		return nil, errors.WithStack(&SchemaError{Path: "$", Reason: "expected object, got null"})
	}

	d := decoder{}
	m := &Model{
		Title:       d.requiredString(root, "title", "title"),
		Description: d.optionalString(root, "description", "description", ""),
	}

	for i, obj := range d.objects(root, "groups", false) {
		p := fmt.Sprintf("groups[%d]", i)
		m.Groups = append(m.Groups, Group{
			ID:    d.requiredString(obj, "id", p+".id"),
			Label: d.requiredString(obj, "label", p+".label"),
			Type:  d.optionalString(obj, "type", p+".type", DefaultType),
		})
	}

	for i, obj := range d.objects(root, "components", true) {
		p := fmt.Sprintf("components[%d]", i)
		c := Component{
			ID:    d.requiredString(obj, "id", p+".id"),
			Label: d.requiredString(obj, "label", p+".label"),
			Type:  d.requiredString(obj, "type", p+".type"),
		}
		if parent := d.optionalString(obj, "parent_group", p+".parent_group", ""); parent != "" {
			c.ParentGroup = StringPtr(parent)
		}
		m.Components = append(m.Components, c)
	}

	for i, obj := range d.objects(root, "relationships", true) {
		p := fmt.Sprintf("relationships[%d]", i)
		m.Relationships = append(m.Relationships, Relationship{
			Source: d.requiredString(obj, "source", p+".source"),
			Target: d.requiredString(obj, "target", p+".target"),
			Label:  d.requiredString(obj, "label", p+".label"),
			Type:   d.optionalString(obj, "type", p+".type", DefaultType),
		})
	}

	if d.err != nil {
		return nil, errors.WithStack(d.err)
	}
	if m.Groups == nil {
		m.Groups = []Group{}
	}
	if m.Components == nil {
		m.Components = []Component{}
	}
	if m.Relationships == nil {
		m.Relationships = []Relationship{}
	}
	return m, nil
}

// decoder keeps the first schema violation; later checks become no-ops.
type decoder struct {
	err *SchemaError
}

func (d *decoder) fail(path, reason string) {
	if d.err == nil {
		d.err = &SchemaError{Path: path, Reason: reason}
	}
}

func (d *decoder) requiredString(obj map[string]interface{}, key, path string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		d.fail(path, "required field missing")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(path, fmt.Sprintf("expected string, got %s", jsonType(v)))
	}
	return s
}

func (d *decoder) optionalString(obj map[string]interface{}, key, path, def string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		d.fail(path, fmt.Sprintf("expected string, got %s", jsonType(v)))
		return def
	}
	return s
}

func (d *decoder) objects(root map[string]interface{}, key string, required bool) []map[string]interface{} {
	v, ok := root[key]
	if !ok || v == nil {
		if required {
			d.fail(key, "required field missing")
		}
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		d.fail(key, fmt.Sprintf("expected array, got %s", jsonType(v)))
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			d.fail(fmt.Sprintf("%s[%d]", key, i), fmt.Sprintf("expected object, got %s", jsonType(item)))
			return nil
		}
		out = append(out, obj)
	}
	return out
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
