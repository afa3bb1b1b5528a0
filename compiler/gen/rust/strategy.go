package rust

import (
	"github.com/syssam/smithygen/compiler/gen"
)

// Module documentation shared by the flavors.
const (
	docOperation    = "Types for the `{operation}` operation."
	docOperations   = "All operations that this crate can perform."
	docTypes        = "Data structures used by operation inputs/outputs."
	docErrors       = "Error types that the service can respond with."
	docBuilders     = "Builders"
	docServerModel  = "Data structures used by operation inputs/outputs. You can use the types in this module to construct responses."
	docServerErrors = "All error types that operations can return. Documentation on these types is copied from the model."
	docSDKTypes     = "Data structures used by operation inputs/outputs. Types in this module are shared between operations and re-exported where needed."
)

// destinations returns the module layout of a flavor.
//
//	client, sdk: operation::<op>, types, types::error
//	server:      operation::<op>, model, error
func destinations(flavor gen.Flavor) (gen.Destinations, error) {
	switch flavor {
	case gen.FlavorClient:
		return gen.Destinations{
			Operations:   "operation",
			Types:        "types",
			Errors:       "types::error",
			Builders:     "builders",
			OperationDoc: docOperation,
			Docs: map[string]string{
				"operation":    docOperations,
				"types":        docTypes,
				"types::error": docErrors,
				"builders":     docBuilders,
			},
		}, nil
	case gen.FlavorSDK:
		return gen.Destinations{
			Operations:   "operation",
			Types:        "types",
			Errors:       "types::error",
			Builders:     "builders",
			OperationDoc: docOperation,
			Docs: map[string]string{
				"operation":    docOperations,
				"types":        docSDKTypes,
				"types::error": docErrors,
				"builders":     docBuilders,
			},
		}, nil
	case gen.FlavorServer:
		return gen.Destinations{
			Operations:   "operation",
			Types:        "model",
			Errors:       "error",
			Builders:     "builders",
			OperationDoc: docOperation,
			Docs: map[string]string{
				"operation": docOperations,
				"model":     docServerModel,
				"error":     docServerErrors,
				"builders":  docBuilders,
			},
		}, nil
	}
	return gen.Destinations{}, gen.NewConfigError("Flavor", flavor, "rust has no module strategy for this flavor")
}

// Strategy returns the module placement strategy of the flavor.
func (d *Dialect) Strategy(flavor gen.Flavor) (gen.ModuleStrategy, error) {
	dest, err := destinations(flavor)
	if err != nil {
		return nil, err
	}
	return gen.NewRoutingStrategy(dest), nil
}
