package canon

// Version constants for persisted datasets.
const (
	// SchemaVersion is the on-disk record layout version.
	SchemaVersion = "1"

	// GeneratorVersion is the ssmgen generator version.
	GeneratorVersion = "0.1.0"
)
