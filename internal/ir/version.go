package ir

// Version constants for the line schema and engine.
const (
	// SchemaVersion is the line model schema version.
	SchemaVersion = "1"

	// EngineVersion is the contractcfg engine version.
	EngineVersion = "0.1.0"
)
