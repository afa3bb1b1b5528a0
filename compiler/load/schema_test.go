package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShapeID(t *testing.T) {
	tests := []struct {
		id        ShapeID
		namespace string
		name      string
		member    string
		valid     bool
	}{
		{"example.weather#Fetch", "example.weather", "Fetch", "", true},
		{"example.weather#FetchInput$type", "example.weather", "FetchInput", "type", true},
		{"Fetch", "Fetch", "Fetch", "", false},
		{"ns#", "ns", "", "", false},
		{"#Fetch", "", "Fetch", "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			assert.Equal(t, tt.namespace, tt.id.Namespace())
			assert.Equal(t, tt.name, tt.id.Name())
			assert.Equal(t, tt.member, tt.id.Member())
			assert.Equal(t, tt.valid, tt.id.Valid())
		})
	}
	assert.Equal(t, ShapeID("ns#A$b"), ShapeID("ns#A$x").WithMember("b"))
	assert.Equal(t, ShapeID("ns#A"), ShapeID("ns#A$x").Root())
}

func TestTraits(t *testing.T) {
	s := &Shape{
		ID:   "ns#In",
		Kind: KindStructure,
		Traits: Traits{
			TraitDocumentation:  "docs",
			TraitSyntheticInput: map[string]any{"operation": "ns#Op"},
			TraitError:          "client",
		},
	}
	doc, ok := s.TraitString(TraitDocumentation, "")
	assert.True(t, ok)
	assert.Equal(t, "docs", doc)

	op, ok := s.SyntheticOperation()
	assert.True(t, ok)
	assert.Equal(t, ShapeID("ns#Op"), op)

	_, ok = s.TraitString(TraitDocumentation, "field")
	assert.False(t, ok)
	assert.True(t, s.IsError())
	assert.Equal(t, []string{TraitDocumentation, TraitError, TraitSyntheticInput}, s.Traits.Keys())
}

func TestTraitsAnyKeyedMap(t *testing.T) {
	s := &Shape{Traits: Traits{TraitSyntheticOutput: map[any]any{"operation": "ns#Op"}}}
	op, ok := s.SyntheticOperation()
	assert.True(t, ok)
	assert.Equal(t, ShapeID("ns#Op"), op)
}

func TestKind(t *testing.T) {
	assert.True(t, KindString.Simple())
	assert.True(t, KindTimestamp.Simple())
	assert.False(t, KindStructure.Simple())
	assert.True(t, KindUnion.Aggregate())
	assert.False(t, KindOperation.Aggregate())
	assert.True(t, KindMap.Collection())
	assert.False(t, KindMember.Collection())
}
