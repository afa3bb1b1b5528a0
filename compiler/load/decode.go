package load

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a model document.
type Format string

// Supported model formats. JSON documents are decoded with the YAML decoder.
const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// FormatOf returns the format implied by the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".msgpack", ".mpk":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("load: unsupported model file %q", path)
	}
}

// Load reads and decodes the model file at path.
func Load(path string) (*Graph, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return g, nil
}

// Decode decodes a Smithy JSON AST document in the given format.
func Decode(r io.Reader, format Format) (*Graph, error) {
	var doc document
	switch format {
	case FormatJSON, FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", format, err)
		}
	case FormatMsgpack:
		if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", format, err)
		}
	default:
		return nil, fmt.Errorf("load: unsupported format %q", format)
	}
	return doc.graph()
}

// DecodeBytes is a convenience wrapper around Decode.
func DecodeBytes(b []byte, format Format) (*Graph, error) {
	return Decode(bytes.NewReader(b), format)
}

type (
	// document is the Smithy JSON AST.
	document struct {
		Smithy string               `yaml:"smithy" msgpack:"smithy"`
		Shapes map[string]*astShape `yaml:"shapes" msgpack:"shapes"`
	}

	astShape struct {
		Type       string            `yaml:"type" msgpack:"type"`
		Traits     map[string]any    `yaml:"traits,omitempty" msgpack:"traits,omitempty"`
		Members    astMembers        `yaml:"members,omitempty" msgpack:"members,omitempty"`
		Member     *astMember        `yaml:"member,omitempty" msgpack:"member,omitempty"`
		Key        *astMember        `yaml:"key,omitempty" msgpack:"key,omitempty"`
		Value      *astMember        `yaml:"value,omitempty" msgpack:"value,omitempty"`
		Input      *astRef           `yaml:"input,omitempty" msgpack:"input,omitempty"`
		Output     *astRef           `yaml:"output,omitempty" msgpack:"output,omitempty"`
		Errors     []astRef          `yaml:"errors,omitempty" msgpack:"errors,omitempty"`
		Version    string            `yaml:"version,omitempty" msgpack:"version,omitempty"`
		Operations []astRef          `yaml:"operations,omitempty" msgpack:"operations,omitempty"`
		Resources  []astRef          `yaml:"resources,omitempty" msgpack:"resources,omitempty"`
		Rename     map[string]string `yaml:"rename,omitempty" msgpack:"rename,omitempty"`
		// Resource lifecycle operations.
		Create               *astRef  `yaml:"create,omitempty" msgpack:"create,omitempty"`
		Put                  *astRef  `yaml:"put,omitempty" msgpack:"put,omitempty"`
		Read                 *astRef  `yaml:"read,omitempty" msgpack:"read,omitempty"`
		Update               *astRef  `yaml:"update,omitempty" msgpack:"update,omitempty"`
		Delete               *astRef  `yaml:"delete,omitempty" msgpack:"delete,omitempty"`
		List                 *astRef  `yaml:"list,omitempty" msgpack:"list,omitempty"`
		CollectionOperations []astRef `yaml:"collectionOperations,omitempty" msgpack:"collectionOperations,omitempty"`
	}

	astRef struct {
		Target string `yaml:"target" msgpack:"target"`
	}

	astMember struct {
		Target string         `yaml:"target" msgpack:"target"`
		Traits map[string]any `yaml:"traits,omitempty" msgpack:"traits,omitempty"`
	}

	namedMember struct {
		name string
		astMember
	}

	// astMembers keeps members in declaration order.
	astMembers []namedMember
)

// UnmarshalYAML implements yaml.Unmarshaler.
func (ms *astMembers) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: members must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var m astMember
		if err := node.Content[i+1].Decode(&m); err != nil {
			return err
		}
		*ms = append(*ms, namedMember{name: node.Content[i].Value, astMember: m})
	}
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (ms *astMembers) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		name, err := dec.DecodeString()
		if err != nil {
			return err
		}
		var m astMember
		if err := dec.Decode(&m); err != nil {
			return err
		}
		*ms = append(*ms, namedMember{name: name, astMember: m})
	}
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (ms astMembers) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(ms)); err != nil {
		return err
	}
	for _, m := range ms {
		if err := enc.EncodeString(m.name); err != nil {
			return err
		}
		if err := enc.Encode(&m.astMember); err != nil {
			return err
		}
	}
	return nil
}

func (d *document) graph() (*Graph, error) {
	if d.Smithy != "" && !strings.HasPrefix(d.Smithy, "2") && !strings.HasPrefix(d.Smithy, "1") {
		return nil, fmt.Errorf("load: unsupported smithy version %q", d.Smithy)
	}
	shapes := make([]*Shape, 0, len(d.Shapes))
	for id, as := range d.Shapes {
		s, err := as.shape(ShapeID(id))
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, s)
	}
	return NewGraph(shapes...)
}

func (as *astShape) shape(id ShapeID) (*Shape, error) {
	if as == nil {
		return nil, fmt.Errorf("load: shape %s has no definition", id)
	}
	s := &Shape{
		ID:      id,
		Kind:    Kind(as.Type),
		Traits:  Traits(as.Traits),
		Version: as.Version,
	}
	if s.Traits == nil {
		s.Traits = Traits{}
	}
	member := func(name string, m astMember) *Shape {
		traits := Traits(m.Traits)
		if traits == nil {
			traits = Traits{}
		}
		return &Shape{
			ID:        id.WithMember(name),
			Kind:      KindMember,
			Traits:    traits,
			Target:    ShapeID(m.Target),
			Container: id,
		}
	}
	for _, m := range as.Members {
		s.Members = append(s.Members, member(m.name, m.astMember))
	}
	for _, named := range []struct {
		name string
		m    *astMember
	}{{"member", as.Member}, {"key", as.Key}, {"value", as.Value}} {
		if named.m != nil {
			s.Members = append(s.Members, member(named.name, *named.m))
		}
	}
	if as.Input != nil {
		s.Input = ShapeID(as.Input.Target)
	}
	if as.Output != nil {
		s.Output = ShapeID(as.Output.Target)
	}
	s.Errors = targets(as.Errors)
	s.Resources = targets(as.Resources)
	for _, ref := range []*astRef{as.Create, as.Put, as.Read, as.Update, as.Delete, as.List} {
		if ref != nil {
			s.Operations = append(s.Operations, ShapeID(ref.Target))
		}
	}
	s.Operations = append(s.Operations, targets(as.Operations)...)
	s.Operations = append(s.Operations, targets(as.CollectionOperations)...)
	if len(as.Rename) > 0 {
		s.Rename = make(map[ShapeID]string, len(as.Rename))
		for from, to := range as.Rename {
			s.Rename[ShapeID(from)] = to
		}
	}
	return s, nil
}

func targets(refs []astRef) []ShapeID {
	if len(refs) == 0 {
		return nil
	}
	ids := make([]ShapeID, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, ShapeID(r.Target))
	}
	return ids
}
