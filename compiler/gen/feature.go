package gen

var (
	// FeatureVerifyDeterminism resolves every shape a second time with a
	// fresh run state and fails the run when the symbols differ.
	FeatureVerifyDeterminism = Feature{
		Name:        "verify-determinism",
		Stage:       Beta,
		Default:     false,
		Description: "Resolves every shape twice and fails with a non-deterministic resolution error on mismatch",
	}

	// FeatureSnapshot writes the resolved symbol table as a Go source file
	// for downstream tooling.
	FeatureSnapshot = Feature{
		Name:        "snapshot",
		Stage:       Experimental,
		Default:     false,
		Description: "Writes a Go snapshot of the resolved symbol table",
	}

	// FeatureParallelResolution resolves shapes on a bounded worker pool.
	FeatureParallelResolution = Feature{
		Name:        "parallel-resolution",
		Stage:       Stable,
		Default:     true,
		Description: "Resolves symbols concurrently, bounded by the configured worker count",
	}

	// AllFeatures holds a list of all feature-flags.
	AllFeatures = []Feature{
		FeatureVerifyDeterminism,
		FeatureSnapshot,
		FeatureParallelResolution,
	}
)

// FeatureStage describes the stage of the codegen feature.
type FeatureStage int

const (
	_ FeatureStage = iota

	// Experimental features are in development and may change without notice.
	Experimental

	// Alpha features are complete but their configuration may still change.
	Alpha

	// Beta features are documented and no breaking changes are expected.
	Beta

	// Stable features have been in use for a while.
	Stable
)

// String implements fmt.Stringer.
func (s FeatureStage) String() string {
	switch s {
	case Experimental:
		return "experimental"
	case Alpha:
		return "alpha"
	case Beta:
		return "beta"
	case Stable:
		return "stable"
	}
	return "unknown"
}

// A Feature of the codegen.
type Feature struct {
	// Name of the feature.
	Name string

	// Stage of the feature.
	Stage FeatureStage

	// Default values indicates if this feature is enabled by default.
	Default bool

	// A Description of this feature.
	Description string
}

// FeatureByName looks up a feature in AllFeatures.
func FeatureByName(name string) (Feature, bool) {
	for _, f := range AllFeatures {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

func hasFeature(features []Feature, name string) bool {
	for _, f := range features {
		if f.Name == name {
			return true
		}
	}
	return false
}
