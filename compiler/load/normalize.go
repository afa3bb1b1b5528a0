package load

import "sort"

// SyntheticNamespace returns the namespace used for synthetic shapes derived
// from shapes in ns.
func SyntheticNamespace(ns string) string {
	return ns + ".synthetic"
}

// Normalize returns a new graph in which every operation has dedicated
// input and output structures tagged with the synthetic input/output traits.
// Operations without input or output get an empty synthetic structure. The
// given graph is left untouched, and normalizing a normalized graph is a
// no-op.
func Normalize(g *Graph) (*Graph, error) {
	shapes := make(map[ShapeID]*Shape, len(g.declared))
	for _, s := range g.Shapes() {
		shapes[s.ID] = s
	}
	for _, op := range g.ShapesOf(KindOperation) {
		in, err := synthesize(g, op, op.Input, "Input", TraitSyntheticInput)
		if err != nil {
			return nil, err
		}
		out, err := synthesize(g, op, op.Output, "Output", TraitSyntheticOutput)
		if err != nil {
			return nil, err
		}
		if in.ID == op.Input && out.ID == op.Output {
			continue
		}
		nop := op.clone(op.ID)
		nop.Input, nop.Output = in.ID, out.ID
		shapes[op.ID] = nop
		shapes[in.ID] = in
		shapes[out.ID] = out
	}
	ids := make([]ShapeID, 0, len(shapes))
	for id := range shapes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	list := make([]*Shape, 0, len(ids))
	for _, id := range ids {
		list = append(list, shapes[id])
	}
	return NewGraph(list...)
}

// synthesize returns the synthetic structure for one side of an operation.
func synthesize(g *Graph, op *Shape, current ShapeID, suffix, trait string) (*Shape, error) {
	if current != "" && current != UnitID {
		s, err := g.Expect(current)
		if err != nil {
			return nil, err
		}
		if owner, ok := s.TraitString(trait, "operation"); ok && ShapeID(owner) == op.ID {
			return s, nil
		}
	}
	id := ShapeID(SyntheticNamespace(op.ID.Namespace()) + "#" + op.ID.Name() + suffix)
	value := map[string]any{"operation": string(op.ID)}
	var syn *Shape
	if current == "" || current == UnitID {
		syn = &Shape{ID: id, Kind: KindStructure, Traits: Traits{}}
	} else {
		orig, _ := g.Shape(current)
		syn = orig.clone(id)
		value["originalId"] = string(current)
	}
	syn.Traits[trait] = value
	return syn, nil
}
