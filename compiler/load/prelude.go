package load

// UnitID is the prelude shape used for operations without input or output.
const UnitID ShapeID = "smithy.api#Unit"

// PreludeNamespace is the namespace of the built-in shapes.
const PreludeNamespace = "smithy.api"

// prelude holds the built-in shapes every graph can reference.
var prelude = func() map[ShapeID]*Shape {
	kinds := map[string]Kind{
		"String":           KindString,
		"Blob":             KindBlob,
		"Boolean":          KindBoolean,
		"PrimitiveBoolean": KindBoolean,
		"Byte":             KindByte,
		"PrimitiveByte":    KindByte,
		"Short":            KindShort,
		"PrimitiveShort":   KindShort,
		"Integer":          KindInteger,
		"PrimitiveInteger": KindInteger,
		"Long":             KindLong,
		"PrimitiveLong":    KindLong,
		"Float":            KindFloat,
		"PrimitiveFloat":   KindFloat,
		"Double":           KindDouble,
		"PrimitiveDouble":  KindDouble,
		"BigInteger":       KindBigInteger,
		"BigDecimal":       KindBigDecimal,
		"Timestamp":        KindTimestamp,
		"Document":         KindDocument,
		"Unit":             KindStructure,
	}
	m := make(map[ShapeID]*Shape, len(kinds))
	for name, kind := range kinds {
		id := ShapeID(PreludeNamespace + "#" + name)
		m[id] = &Shape{ID: id, Kind: kind, Traits: Traits{}}
	}
	return m
}()

// IsPrelude reports whether the id belongs to the prelude namespace.
func IsPrelude(id ShapeID) bool {
	return id.Namespace() == PreludeNamespace
}
