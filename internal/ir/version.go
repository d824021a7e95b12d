package ir

// Version constants for the IR schema.
const (
	// IRVersion is the IR schema version. It is part of every stored plan.
	IRVersion = "1"

	// BuilderVersion is the dfexpr builder version.
	BuilderVersion = "0.1.0"
)
