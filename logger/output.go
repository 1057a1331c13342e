package logger

// OutputCategory defines a category of CLI output that can be enabled/disabled.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information the CLI prints to the console.
type OutputCategory int

const (
	// Level 0 (default) - always shown
	OutputResults OutputCategory = iota // artifact paths, compiled DOT
	OutputErrors                        // errors with hints

	// Level 1 (-v)
	OutputProgress // stage transitions, spinner text
	OutputStartup  // provider and strategy summary

	// Level 2 (-vv)
	OutputAttempts // per-attempt validator errors
	OutputTiming   // stage durations
	OutputConfig   // effective config values

	// Level 3 (-vvv)
	OutputSQL        // history and usage statements
	OutputSubprocess // dot command lines

	// Level 4 (-vvvv)
	OutputPrompts   // rendered prompts sent to the LLM
	OutputResponses // raw LLM responses before extraction
)

var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputProgress:   VerbosityInfo,
	OutputStartup:    VerbosityInfo,
	OutputAttempts:   VerbosityDebug,
	OutputTiming:     VerbosityDebug,
	OutputConfig:     VerbosityDebug,
	OutputSQL:        VerbosityTrace,
	OutputSubprocess: VerbosityTrace,
	OutputPrompts:    VerbosityAll,
	OutputResponses:  VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

var categoryNames = map[OutputCategory]string{
	OutputResults:    "results",
	OutputErrors:     "errors",
	OutputProgress:   "progress",
	OutputStartup:    "startup",
	OutputAttempts:   "attempts",
	OutputTiming:     "timing",
	OutputConfig:     "config",
	OutputSQL:        "sql",
	OutputSubprocess: "subprocess",
	OutputPrompts:    "prompts",
	OutputResponses:  "responses",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// EnabledCategories lists the category names shown at verbosity, in level order
func EnabledCategories(verbosity int) []string {
	var names []string
	for c := OutputResults; c <= OutputResponses; c++ {
		if ShouldOutput(verbosity, c) {
			names = append(names, CategoryName(c))
		}
	}
	return names
}
