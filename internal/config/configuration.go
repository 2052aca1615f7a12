package config

import (
	"fmt"
)

// Kind selects the scope of stages a generated pipeline contains.
type Kind string

const (
	KindBuild         Kind = "build"
	KindTest          Kind = "test"
	KindDeploy        Kind = "deploy"
	KindComplete      Kind = "complete"
	KindReusable      Kind = "reusable"
	KindParameterized Kind = "parameterized"
)

// Kinds lists every valid pipeline kind.
var Kinds = []Kind{KindBuild, KindTest, KindDeploy, KindComplete, KindReusable, KindParameterized}

// DeploymentMethod selects how the deploy stage reaches the cluster.
type DeploymentMethod string

const (
	MethodKubectl   DeploymentMethod = "kubectl"
	MethodKustomize DeploymentMethod = "kustomize"
	MethodArgoCD    DeploymentMethod = "argocd"
	MethodFlux      DeploymentMethod = "flux"
)

// DeploymentMethods lists every valid deployment method.
var DeploymentMethods = []DeploymentMethod{MethodKubectl, MethodKustomize, MethodArgoCD, MethodFlux}

// SupportedLanguages is the closed language set, in canonical emission order.
var SupportedLanguages = []string{"python", "java", "javascript", "go"}

// Environments are the deployment environment choices.
var Environments = []string{"dev", "test", "staging", "prod"}

// Built-in defaults. Every resolution starts from these values; they are
// never mutated at runtime.
const (
	DefaultName     = "Forge"
	DefaultKind     = KindComplete
	DefaultRegistry = "ghcr.io"
	DefaultImage    = "ghcr.io/deploymenttheory/forge-runner:latest"
	DefaultOutput   = "."
)

// DefaultLanguages is the fallback language set when no source supplies one.
func DefaultLanguages() []string {
	return []string{"python", "javascript"}
}

// DefaultBranches is the fallback trigger branch list.
func DefaultBranches() []string {
	return []string{"main"}
}

// DefaultCodeAnalysis mirrors the devcontainer defaults for lint tooling.
func DefaultCodeAnalysis() map[string]bool {
	return map[string]bool{
		"sonarqube":  true,
		"checkstyle": true,
		"pmd":        false,
		"eslint":     true,
		"pylint":     true,
	}
}

// Configuration is the fully resolved, immutable input to pipeline building.
type Configuration struct {
	Name              string
	Kind              Kind
	Languages         []string // deduplicated, first-seen order
	KubernetesEnabled bool
	DeploymentMethod  DeploymentMethod
	Registry          string
	Image             string
	Branches          []string
	MatrixEnabled     bool
	ParametersEnabled bool
	OutputLocation    string

	// CodeAnalysis toggles conditional lint steps per tool name.
	CodeAnalysis map[string]bool

	// Overlay is the custom-values tree. Recognized sections (build, test,
	// deploy, matrix, credentials, notifications) feed the pipeline model;
	// everything else is preserved for pass-through.
	Overlay map[string]interface{}
}

// ConfigError reports a resolution failure attributable to a specific field
// and input source.
type ConfigError struct {
	Field  string
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v (source %s)", e.Err, e.Source)
	}
	return fmt.Sprintf("config: field %q from %s: %v", e.Field, e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// validKind reports whether k is a member of the closed kind enum.
func validKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// validMethod reports whether m is a member of the closed method enum.
func validMethod(m DeploymentMethod) bool {
	for _, known := range DeploymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// validLanguage reports whether lang is in the supported set.
func validLanguage(lang string) bool {
	for _, known := range SupportedLanguages {
		if lang == known {
			return true
		}
	}
	return false
}
