package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenjpais/diagram-generator/errors"
)

const validGraph = `{
  "title": "Web App",
  "groups": [{"id": "vpc_1", "label": "VPC", "type": "vpc"}, {"id": "dc", "label": "DC"}],
  "components": [
    {"id": "api", "label": "API", "type": "api", "parent_group": "vpc_1"},
    {"id": "db", "label": "DB", "type": "database", "parent_group": null},
    {"id": "cache", "label": "Cache", "type": "queue", "parent_group": ""}
  ],
  "relationships": [
    {"source": "api", "target": "db", "label": "queries", "type": "data_flow"},
    {"source": "api", "target": "cache", "label": "reads"}
  ]
}`

func TestDecodeValid(t *testing.T) {
	m, err := Decode([]byte(validGraph))
	require.NoError(t, err)

	assert.Equal(t, "Web App", m.Title)
	require.Len(t, m.Groups, 2)
	assert.Equal(t, "vpc", m.Groups[0].Type)
	assert.Equal(t, DefaultType, m.Groups[1].Type)

	require.Len(t, m.Components, 3)
	assert.Equal(t, "vpc_1", m.Components[0].Parent())
	assert.Nil(t, m.Components[1].ParentGroup)
	assert.Nil(t, m.Components[2].ParentGroup, "empty parent_group is an orphan")

	require.Len(t, m.Relationships, 2)
	assert.Equal(t, DefaultType, m.Relationships[1].Type)
}

func TestDecodeDefaultsGroupsToEmpty(t *testing.T) {
	m, err := Decode([]byte(`{"title":"t","components":[],"relationships":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, m.Groups)
	assert.Empty(t, m.Groups)
}

func TestDecodeSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		path string
	}{
		{"not an object", `[1,2]`, "$"},
		{"null document", `null`, "$"},
		{"missing title", `{"components":[],"relationships":[]}`, "title"},
		{"title wrong type", `{"title":5,"components":[],"relationships":[]}`, "title"},
		{"missing components", `{"title":"t","relationships":[]}`, "components"},
		{"missing relationships", `{"title":"t","components":[]}`, "relationships"},
		{"components not array", `{"title":"t","components":{},"relationships":[]}`, "components"},
		{"component not object", `{"title":"t","components":["x"],"relationships":[]}`, "components[0]"},
		{"component missing type", `{"title":"t","components":[{"id":"a","label":"A"}],"relationships":[]}`, "components[0].type"},
		{"parent_group wrong type", `{"title":"t","components":[{"id":"a","label":"A","type":"x","parent_group":3}],"relationships":[]}`, "components[0].parent_group"},
		{"group missing label", `{"title":"t","groups":[{"id":"g"}],"components":[],"relationships":[]}`, "groups[0].label"},
		{"relationship missing label", `{"title":"t","components":[],"relationships":[{"source":"a","target":"b"}]}`, "relationships[0].label"},
		{"relationship target null", `{"title":"t","components":[],"relationships":[{"source":"a","target":null,"label":"l"}]}`, "relationships[0].target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.json))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, errors.ErrSchema))

			var se *SchemaError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.path, se.Path)
		})
	}
}

func TestDecodeReportsFirstViolation(t *testing.T) {
	_, err := Decode([]byte(`{"components":[{"id":1}],"relationships":[]}`))
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "title", se.Path)
	assert.Equal(t, "required field missing", se.Reason)
}

func TestLint(t *testing.T) {
	m := &Model{
		Title:  "t",
		Groups: []Group{{ID: "g", Label: "G"}},
		Components: []Component{
			{ID: "a", Label: "A", Type: "service", ParentGroup: StringPtr("g")},
			{ID: "a", Label: "A2", Type: "service"},
			{ID: "b", Label: "B", Type: "service", ParentGroup: StringPtr("missing")},
		},
		Relationships: []Relationship{{Source: "a", Target: "ghost", Label: "x"}},
	}

	notes := m.Lint()
	assert.Len(t, notes, 3)
	assert.Contains(t, notes[0], `duplicate component id "a"`)
	assert.Contains(t, notes[1], `unknown group "missing"`)
	assert.Contains(t, notes[2], `target "ghost"`)
}

func TestModelJSONRoundTripsThroughDecode(t *testing.T) {
	m, err := Decode([]byte(validGraph))
	require.NoError(t, err)

	again, err := Decode([]byte(m.JSON()))
	require.NoError(t, err)
	assert.Equal(t, m, again)
}
