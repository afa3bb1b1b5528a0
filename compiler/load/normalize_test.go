package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	g := weather(t)
	n, err := Normalize(g)
	require.NoError(t, err)

	fetch, err := n.Expect("example.weather#Fetch")
	require.NoError(t, err)
	assert.Equal(t, ShapeID("example.weather.synthetic#FetchInput"), fetch.Input)
	assert.Equal(t, ShapeID("example.weather.synthetic#FetchOutput"), fetch.Output)

	in, err := n.Expect(fetch.Input)
	require.NoError(t, err)
	op, ok := in.SyntheticOperation()
	require.True(t, ok)
	assert.Equal(t, fetch.ID, op)
	orig, _ := in.TraitString(TraitSyntheticInput, "originalId")
	assert.Equal(t, "example.weather#FetchInput", orig)
	assert.Equal(t, []string{"type", "cityId", "condition"}, memberNames(in))
	member, ok := n.Shape("example.weather.synthetic#FetchInput$type")
	require.True(t, ok)
	assert.Equal(t, in.ID, member.Container)

	t.Run("missing input becomes empty structure", func(t *testing.T) {
		list, err := n.Expect("example.weather#ListCities")
		require.NoError(t, err)
		in, err := n.Expect(list.Input)
		require.NoError(t, err)
		assert.Empty(t, in.Members)
		assert.True(t, in.HasTrait(TraitSyntheticInput))
	})

	t.Run("source graph is untouched", func(t *testing.T) {
		fetch, err := g.Expect("example.weather#Fetch")
		require.NoError(t, err)
		assert.Equal(t, ShapeID("example.weather#FetchInput"), fetch.Input)
		in, err := g.Expect("example.weather#FetchInput")
		require.NoError(t, err)
		assert.False(t, in.HasTrait(TraitSyntheticInput))
	})

	t.Run("idempotent", func(t *testing.T) {
		again, err := Normalize(n)
		require.NoError(t, err)
		assert.Equal(t, len(n.Shapes()), len(again.Shapes()))
		fetch2, err := again.Expect("example.weather#Fetch")
		require.NoError(t, err)
		assert.Equal(t, fetch.Input, fetch2.Input)
	})
}
