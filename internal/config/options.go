package config

// StringOption represents a string option and whether it was set explicitly.
type StringOption struct {
	Value string
	Set   bool
}

// BoolOption represents a bool option and whether it was set explicitly.
// An unset option is distinct from an explicit false and falls through to
// lower-precedence sources during resolution.
type BoolOption struct {
	Value bool
	Set   bool
}

// String constructs a set StringOption.
func String(v string) StringOption {
	return StringOption{Value: v, Set: true}
}

// Bool constructs a set BoolOption.
func Bool(v bool) BoolOption {
	return BoolOption{Value: v, Set: true}
}

// Options captures explicit invocation options. They carry the highest
// precedence during resolution; unset fields fall through to environment
// variables, the overlay file, the devcontainer env file, then defaults.
type Options struct {
	Name       StringOption
	Kind       StringOption
	Languages  StringOption // comma-separated
	Kubernetes BoolOption
	Method     StringOption
	Registry   StringOption
	Image      StringOption
	Branches   StringOption // comma-separated
	Matrix     BoolOption
	Parameters BoolOption
	Output     StringOption
}
