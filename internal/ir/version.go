package ir

// Version constants for the catalog schema and engine.
const (
	// IRVersion is the catalog schema version.
	IRVersion = "1"

	// EngineVersion is the typekit engine version.
	EngineVersion = "0.1.0"
)
