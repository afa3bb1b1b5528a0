package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/smithygen/compiler/load"
)

type codec struct{ name, contentType string }

func (c codec) Name() string        { return c.name }
func (c codec) ContentType() string { return c.contentType }

type parser struct{ name string }

func (p parser) Name() string                          { return p.name }
func (p parser) ParseFunction(*Context, Symbol) string { return "crate::" + p.name + "::parse" }

func TestServiceProtocol(t *testing.T) {
	tests := []struct {
		name   string
		traits load.Traits
		want   ProtocolID
		ok     bool
	}{
		{name: "none", traits: load.Traits{}},
		{name: "single", traits: load.Traits{string(ProtocolRestXML): map[string]any{}}, want: ProtocolRestXML, ok: true},
		{
			name: "priority",
			traits: load.Traits{
				string(ProtocolRestJSON1): map[string]any{},
				string(ProtocolAWSJSON11): map[string]any{},
				string(ProtocolRPCv2CBOR): map[string]any{},
			},
			want: ProtocolRPCv2CBOR,
			ok:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ServiceProtocol(&load.Shape{ID: "example.p#Svc", Kind: load.KindService, Traits: tt.traits})
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	ctx := newTestContext(t, FlavorClient)
	p, ok := ServiceProtocol(ctx.Service())
	require.True(t, ok)
	assert.Equal(t, ProtocolRestJSON1, p)
}

func TestProtocolRegistry(t *testing.T) {
	r := NewProtocolRegistry()
	_, err := r.Resolve(ProtocolRestJSON1, CapabilityPayloadCodec)
	require.ErrorIs(t, err, ErrUnsupportedProtocol)

	require.NoError(t, r.RegisterDefault(ProtocolRestJSON1, CapabilityPayloadCodec, codec{"json", "application/json"}))
	require.NoError(t, r.RegisterDefault(ProtocolRestJSON1, CapabilityPayloadCodec, codec{"json2", "application/json"}))
	s, err := r.Resolve(ProtocolRestJSON1, CapabilityPayloadCodec)
	require.NoError(t, err)
	assert.Equal(t, "json2", s.Name(), "a later default replaces the earlier one")
	assert.False(t, r.Overridden(ProtocolRestJSON1, CapabilityPayloadCodec))

	require.NoError(t, r.Register(ProtocolRestJSON1, CapabilityPayloadCodec, codec{"custom", "application/vnd+json"}))
	s, err = r.Resolve(ProtocolRestJSON1, CapabilityPayloadCodec)
	require.NoError(t, err)
	assert.Equal(t, "custom", s.Name(), "overrides win over defaults")
	assert.True(t, r.Overridden(ProtocolRestJSON1, CapabilityPayloadCodec))

	err = r.Register(ProtocolRestJSON1, CapabilityPayloadCodec, codec{"other", "text/plain"})
	require.ErrorIs(t, err, ErrDuplicateProtocolOverride)
	assert.True(t, IsDuplicateProtocolOverride(err))
	var dup *DuplicateProtocolOverrideError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "custom", dup.Existing)
	assert.Equal(t, "other", dup.Duplicate)
	assert.Equal(t, ProtocolRestJSON1, dup.Protocol)
	assert.Equal(t, CapabilityPayloadCodec, dup.Capability)

	require.NoError(t, r.Register(ProtocolRestJSON1, CapabilityErrorMetadataParser, parser{"json_errors"}),
		"overrides are keyed by protocol and capability")
	require.NoError(t, r.Register(ProtocolRestXML, CapabilityPayloadCodec, codec{"xml", "application/xml"}))

	require.ErrorIs(t, r.Register(ProtocolRestXML, CapabilityPayloadCodec, nil), ErrMissingConfig)
	require.ErrorIs(t, r.RegisterDefault(ProtocolRestXML, CapabilityPayloadCodec, nil), ErrMissingConfig)

	assert.Equal(t, []ProtocolID{ProtocolRestJSON1, ProtocolRestXML}, r.Protocols())
}

func TestProtocolRegistryScope(t *testing.T) {
	r := NewProtocolRegistry().For(weatherID, FlavorServer)
	require.NoError(t, r.Register(ProtocolRestJSON1, CapabilityPayloadCodec, codec{"a", "x"}))
	err := r.Register(ProtocolRestJSON1, CapabilityPayloadCodec, codec{"b", "y"})
	var dup *DuplicateProtocolOverrideError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, weatherID, dup.Service)
	assert.Equal(t, FlavorServer, dup.Flavor)

	ctx := newTestContext(t, FlavorServer)
	require.NoError(t, ctx.Protocols().Register(ProtocolRestJSON1, CapabilityPayloadCodec, codec{"a", "x"}))
	err = ctx.Protocols().Register(ProtocolRestJSON1, CapabilityPayloadCodec, codec{"b", "y"})
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, weatherID, dup.Service, "context registries are bound to the run")
	assert.Equal(t, FlavorServer, dup.Flavor)
}

func TestResolveAs(t *testing.T) {
	r := NewProtocolRegistry()
	require.NoError(t, r.RegisterDefault(ProtocolAWSJSON10, CapabilityPayloadCodec, codec{"json", "application/x-amz-json-1.0"}))
	require.NoError(t, r.RegisterDefault(ProtocolAWSJSON10, CapabilityErrorMetadataParser, codec{"misplaced", ""}))

	c, err := ResolveAs[PayloadCodec](r, ProtocolAWSJSON10, CapabilityPayloadCodec)
	require.NoError(t, err)
	assert.Equal(t, "application/x-amz-json-1.0", c.ContentType())

	_, err = ResolveAs[ErrorMetadataParser](r, ProtocolAWSJSON10, CapabilityErrorMetadataParser)
	require.ErrorIs(t, err, ErrUnsupportedProtocol)
	assert.Contains(t, err.Error(), "strategy misplaced has type gen.codec")

	_, err = ResolveAs[PayloadCodec](r, ProtocolEC2Query, CapabilityPayloadCodec)
	var unsupported *UnsupportedProtocolError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, ProtocolEC2Query, unsupported.Protocol)
}
