package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/deploymenttheory/go-cicd-forge/internal/common/errors"
	"github.com/deploymenttheory/go-cicd-forge/internal/common/jsonutil"
)

// Environment variable prefixes, one per target generator.
const (
	PrefixGitHub  = "FORGE_GHA_"
	PrefixJenkins = "FORGE_JENKINS_"
)

// envBinding maps one environment variable suffix onto a Configuration
// field. The table is the single source of truth for which variables the
// resolver consults; nothing is discovered by naming convention.
type envBinding struct {
	Suffix   string
	Prefixes []string
	Apply    func(*resolution, string, string) error
}

var bothPrefixes = []string{PrefixGitHub, PrefixJenkins}

func envBindings() []envBinding {
	return []envBinding{
		{"NAME", bothPrefixes, func(r *resolution, v, src string) error {
			r.name.fill(v)
			return nil
		}},
		{"TYPE", bothPrefixes, func(r *resolution, v, src string) error {
			r.kind.fill(v)
			return nil
		}},
		{"LANGUAGES", bothPrefixes, func(r *resolution, v, src string) error {
			r.languages.fill(v)
			return nil
		}},
		{"KUBERNETES", bothPrefixes, func(r *resolution, v, src string) error {
			b, err := parseBool(v)
			if err != nil {
				return &ConfigError{Field: "kubernetes", Source: src, Err: err}
			}
			r.kubernetes.fill(b)
			return nil
		}},
		{"K8S_METHOD", bothPrefixes, func(r *resolution, v, src string) error {
			r.method.fill(v)
			return nil
		}},
		{"REGISTRY", bothPrefixes, func(r *resolution, v, src string) error {
			r.registry.fill(v)
			return nil
		}},
		{"IMAGE", bothPrefixes, func(r *resolution, v, src string) error {
			r.image.fill(v)
			return nil
		}},
		{"BRANCHES", bothPrefixes, func(r *resolution, v, src string) error {
			r.branches.fill(v)
			return nil
		}},
		{"OUTPUT", bothPrefixes, func(r *resolution, v, src string) error {
			r.output.fill(v)
			return nil
		}},
		// Matrix fan-out only exists for GitHub Actions, runtime parameters
		// only for Jenkins, so each listens on a single prefix.
		{"MATRIX", []string{PrefixGitHub}, func(r *resolution, v, src string) error {
			b, err := parseBool(v)
			if err != nil {
				return &ConfigError{Field: "matrix", Source: src, Err: err}
			}
			r.matrix.fill(b)
			return nil
		}},
		{"PARAMETERS", []string{PrefixJenkins}, func(r *resolution, v, src string) error {
			b, err := parseBool(v)
			if err != nil {
				return &ConfigError{Field: "parameters", Source: src, Err: err}
			}
			r.parameters.fill(b)
			return nil
		}},
	}
}

// ValidateEnvBindings rejects duplicate suffixes in the binding table. A
// failure here is a programming error caught at startup, not at lookup time.
func ValidateEnvBindings() error {
	seen := make(map[string]bool)
	for _, b := range envBindings() {
		if seen[b.Suffix] {
			return fmt.Errorf("%w: duplicate environment binding %s", errors.ErrConfigInvalid, b.Suffix)
		}
		seen[b.Suffix] = true
	}
	return nil
}

// stringSlot and boolSlot track the highest-precedence value seen so far.
// fill is a no-op once the slot holds a value, so callers apply sources from
// highest precedence to lowest.
type stringSlot struct {
	value string
	set   bool
}

func (s *stringSlot) fill(v string) {
	if !s.set {
		s.value = v
		s.set = true
	}
}

func (s *stringSlot) or(fallback string) string {
	if s.set {
		return s.value
	}
	return fallback
}

type boolSlot struct {
	value bool
	set   bool
}

func (b *boolSlot) fill(v bool) {
	if !b.set {
		b.value = v
		b.set = true
	}
}

func (b *boolSlot) or(fallback bool) bool {
	if b.set {
		return b.value
	}
	return fallback
}

// resolution accumulates per-field winners across sources.
type resolution struct {
	name       stringSlot
	kind       stringSlot
	languages  stringSlot
	kubernetes boolSlot
	method     stringSlot
	registry   stringSlot
	image      stringSlot
	branches   stringSlot
	matrix     boolSlot
	parameters boolSlot
	output     stringSlot
}

// Resolve merges explicit options, process environment variables, the
// custom-values overlay file, and the devcontainer environment file into a
// Configuration, applying field-by-field precedence in that order before
// falling back to built-in defaults.
//
// Resolve performs no I/O beyond reading the two referenced files and holds
// no shared mutable state; concurrent calls with different arguments are
// safe.
func Resolve(opts Options, envFilePath, overlayPath string) (Configuration, error) {
	if err := ValidateEnvBindings(); err != nil {
		return Configuration{}, err
	}

	var r resolution

	// 1. Explicit invocation options.
	applyOptions(&r, opts)

	// 2. Process environment variables.
	if err := applyEnv(&r); err != nil {
		return Configuration{}, err
	}

	// 3. Custom-values overlay file.
	overlay, err := loadOverlay(overlayPath)
	if err != nil {
		return Configuration{}, err
	}
	if image := jsonutil.GetString(overlay, "container_image", ""); image != "" {
		r.image.fill(image)
	}

	// 4. Devcontainer environment file (default language set).
	envFile, err := loadEnvFile(envFilePath)
	if err != nil {
		return Configuration{}, err
	}
	if langs := languagesFromEnvFile(envFile); len(langs) > 0 {
		r.languages.fill(strings.Join(langs, ","))
	}

	// 5. Built-in defaults and validation.
	cfg := Configuration{
		Name:              r.name.or(DefaultName),
		Registry:          r.registry.or(DefaultRegistry),
		Image:             r.image.or(DefaultImage),
		KubernetesEnabled: r.kubernetes.or(false),
		MatrixEnabled:     r.matrix.or(false),
		ParametersEnabled: r.parameters.or(false),
		OutputLocation:    r.output.or(DefaultOutput),
		CodeAnalysis:      codeAnalysisFromEnvFile(envFile),
		Overlay:           overlay,
	}

	kind := Kind(r.kind.or(string(DefaultKind)))
	if !validKind(kind) {
		return Configuration{}, &ConfigError{
			Field:  "kind",
			Source: "resolved value",
			Err:    fmt.Errorf("%w: %q is not one of %v", errors.ErrConfigInvalid, kind, Kinds),
		}
	}
	cfg.Kind = kind

	method := DeploymentMethod(r.method.or(string(MethodKubectl)))
	if !validMethod(method) {
		return Configuration{}, &ConfigError{
			Field:  "deployment_method",
			Source: "resolved value",
			Err:    fmt.Errorf("%w: %q is not one of %v", errors.ErrConfigInvalid, method, DeploymentMethods),
		}
	}
	cfg.DeploymentMethod = method

	languages, err := splitLanguages(r.languages.or(strings.Join(DefaultLanguages(), ",")))
	if err != nil {
		return Configuration{}, err
	}
	if len(languages) == 0 {
		languages = DefaultLanguages()
	}
	cfg.Languages = languages

	cfg.Branches = splitList(r.branches.or(strings.Join(DefaultBranches(), ",")))
	if len(cfg.Branches) == 0 {
		cfg.Branches = DefaultBranches()
	}

	return cfg, nil
}

func applyOptions(r *resolution, opts Options) {
	if opts.Name.Set {
		r.name.fill(opts.Name.Value)
	}
	if opts.Kind.Set {
		r.kind.fill(opts.Kind.Value)
	}
	if opts.Languages.Set {
		r.languages.fill(opts.Languages.Value)
	}
	if opts.Kubernetes.Set {
		r.kubernetes.fill(opts.Kubernetes.Value)
	}
	if opts.Method.Set {
		r.method.fill(opts.Method.Value)
	}
	if opts.Registry.Set {
		r.registry.fill(opts.Registry.Value)
	}
	if opts.Image.Set {
		r.image.fill(opts.Image.Value)
	}
	if opts.Branches.Set {
		r.branches.fill(opts.Branches.Value)
	}
	if opts.Matrix.Set {
		r.matrix.fill(opts.Matrix.Value)
	}
	if opts.Parameters.Set {
		r.parameters.fill(opts.Parameters.Value)
	}
	if opts.Output.Set {
		r.output.fill(opts.Output.Value)
	}
}

func applyEnv(r *resolution) error {
	for _, binding := range envBindings() {
		for _, prefix := range binding.Prefixes {
			name := prefix + binding.Suffix
			value, ok := os.LookupEnv(name)
			if !ok || value == "" {
				continue
			}
			if err := binding.Apply(r, value, name); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

// parseBool accepts the historical truthy spellings case-insensitively.
// Absence is handled by the caller; an empty value never reaches here.
func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", errors.ErrConfigInvalid, value)
}

// splitList splits a comma-separated value, trimming blanks and dropping
// empty entries while preserving first-seen order.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func splitLanguages(value string) ([]string, error) {
	languages := splitList(value)
	for _, lang := range languages {
		if !validLanguage(lang) {
			return nil, &ConfigError{
				Field:  "languages",
				Source: "resolved value",
				Err:    fmt.Errorf("%w: %q is not one of %v", errors.ErrConfigInvalid, lang, SupportedLanguages),
			}
		}
	}
	return languages, nil
}

func loadOverlay(path string) (map[string]interface{}, error) {
	if path == "" {
		return map[string]interface{}{}, nil
	}
	overlay, err := jsonutil.ReadJSONFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "overlay", Source: path, Err: err}
	}
	return overlay, nil
}

func loadEnvFile(path string) (map[string]interface{}, error) {
	if path == "" {
		return map[string]interface{}{}, nil
	}
	envFile, err := jsonutil.ReadJSONFileWithComments(path)
	if err != nil {
		return nil, &ConfigError{Field: "env_file", Source: path, Err: err}
	}
	return envFile, nil
}

// languagesFromEnvFile extracts enabled languages from the devcontainer
// language-enablement map, in canonical order.
func languagesFromEnvFile(envFile map[string]interface{}) []string {
	raw, ok := envFile["languages"].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(SupportedLanguages))
	for _, lang := range SupportedLanguages {
		if enabled, ok := raw[lang].(bool); ok && enabled {
			out = append(out, lang)
		}
	}
	return out
}

func codeAnalysisFromEnvFile(envFile map[string]interface{}) map[string]bool {
	defaults := DefaultCodeAnalysis()
	raw, ok := envFile["code_analysis"].(map[string]interface{})
	if !ok {
		return defaults
	}
	for tool, value := range raw {
		if enabled, ok := value.(bool); ok {
			defaults[tool] = enabled
		}
	}
	return defaults
}
