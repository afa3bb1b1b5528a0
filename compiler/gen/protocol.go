package gen

import (
	"fmt"
	"sort"
	"sync"

	"github.com/syssam/smithygen/compiler/load"
)

// ProtocolID is the shape id of a protocol trait.
type ProtocolID string

// Known protocols.
const (
	ProtocolRestJSON1 ProtocolID = "aws.protocols#restJson1"
	ProtocolAWSJSON10 ProtocolID = "aws.protocols#awsJson1_0"
	ProtocolAWSJSON11 ProtocolID = "aws.protocols#awsJson1_1"
	ProtocolRestXML   ProtocolID = "aws.protocols#restXml"
	ProtocolAWSQuery  ProtocolID = "aws.protocols#awsQuery"
	ProtocolEC2Query  ProtocolID = "aws.protocols#ec2Query"
	ProtocolRPCv2CBOR ProtocolID = "smithy.protocols#rpcv2Cbor"
)

// ProtocolPriority is the order in which protocol traits of a service are
// considered when it declares more than one.
var ProtocolPriority = []ProtocolID{
	ProtocolRPCv2CBOR,
	ProtocolAWSJSON10,
	ProtocolAWSJSON11,
	ProtocolRestJSON1,
	ProtocolRestXML,
	ProtocolAWSQuery,
	ProtocolEC2Query,
}

// ServiceProtocol returns the protocol the service is generated for.
func ServiceProtocol(service *load.Shape) (ProtocolID, bool) {
	for _, p := range ProtocolPriority {
		if service.HasTrait(string(p)) {
			return p, true
		}
	}
	return "", false
}

// Capability names a protocol-specific piece of generated code.
type Capability string

// Protocol capabilities.
const (
	CapabilityErrorMetadataParser Capability = "error-metadata-parser"
	CapabilityPayloadCodec        Capability = "payload-codec"
)

// Strategy is a protocol capability implementation.
type Strategy interface {
	Name() string
}

// ErrorMetadataParser generates the parsing of error metadata from a
// response.
type ErrorMetadataParser interface {
	Strategy
	// ParseFunction returns the path of the function that extracts error
	// metadata for the given error symbol.
	ParseFunction(ctx *Context, errSym Symbol) string
}

// PayloadCodec describes how operation payloads are encoded.
type PayloadCodec interface {
	Strategy
	ContentType() string
}

// ProtocolOverride is an override registered through configuration.
type ProtocolOverride struct {
	Protocol   ProtocolID
	Capability Capability
	Strategy   Strategy
}

type protocolKey struct {
	protocol   ProtocolID
	capability Capability
}

// ProtocolRegistry maps (protocol, capability) to strategies. Overrides take
// precedence over defaults, and at most one override is allowed per key.
type ProtocolRegistry struct {
	mu        sync.RWMutex
	service   load.ShapeID
	flavor    Flavor
	defaults  map[protocolKey]Strategy
	overrides map[protocolKey]Strategy
}

// NewProtocolRegistry returns an empty registry.
func NewProtocolRegistry() *ProtocolRegistry {
	return &ProtocolRegistry{
		defaults:  make(map[protocolKey]Strategy),
		overrides: make(map[protocolKey]Strategy),
	}
}

// For binds the registry to the service and flavor of a run. Override
// conflicts report them.
func (r *ProtocolRegistry) For(service load.ShapeID, flavor Flavor) *ProtocolRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.service, r.flavor = service, flavor
	return r
}

// RegisterDefault sets the default strategy for a protocol capability.
// A later default for the same key replaces the earlier one.
func (r *ProtocolRegistry) RegisterDefault(p ProtocolID, c Capability, s Strategy) error {
	if s == nil {
		return NewConfigError("Protocol", p, "strategy cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults[protocolKey{p, c}] = s
	return nil
}

// Register adds an override. A second override for the same protocol and
// capability is rejected.
func (r *ProtocolRegistry) Register(p ProtocolID, c Capability, s Strategy) error {
	if s == nil {
		return NewConfigError("Protocol", p, "strategy cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := protocolKey{p, c}
	if cur, ok := r.overrides[key]; ok {
		return &DuplicateProtocolOverrideError{
			Service:    r.service,
			Flavor:     r.flavor,
			Protocol:   p,
			Capability: c,
			Existing:   cur.Name(),
			Duplicate:  s.Name(),
		}
	}
	r.overrides[key] = s
	return nil
}

// Resolve returns the override for the key, else the default.
func (r *ProtocolRegistry) Resolve(p ProtocolID, c Capability) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := protocolKey{p, c}
	if s, ok := r.overrides[key]; ok {
		return s, nil
	}
	if s, ok := r.defaults[key]; ok {
		return s, nil
	}
	return nil, &UnsupportedProtocolError{Protocol: p, Capability: c}
}

// Overridden reports whether an override exists for the key.
func (r *ProtocolRegistry) Overridden(p ProtocolID, c Capability) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.overrides[protocolKey{p, c}]
	return ok
}

// Protocols returns every protocol with a registered strategy, sorted.
func (r *ProtocolRegistry) Protocols() []ProtocolID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := make(map[ProtocolID]struct{})
	for k := range r.defaults {
		set[k.protocol] = struct{}{}
	}
	for k := range r.overrides {
		set[k.protocol] = struct{}{}
	}
	out := make([]ProtocolID, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ResolveAs resolves a strategy and asserts its capability interface.
func ResolveAs[T Strategy](r *ProtocolRegistry, p ProtocolID, c Capability) (T, error) {
	var zero T
	s, err := r.Resolve(p, c)
	if err != nil {
		return zero, err
	}
	t, ok := s.(T)
	if !ok {
		return zero, &UnsupportedProtocolError{
			Protocol:   p,
			Capability: c,
			Message:    fmt.Sprintf("strategy %s has type %T", s.Name(), s),
		}
	}
	return t, nil
}
