// Package pipeline builds the target-agnostic pipeline model that every
// emitter consumes. Building is a pure function of the resolved
// configuration: no I/O, no clock, no process state.
package pipeline

import (
	"github.com/deploymenttheory/go-cicd-forge/internal/config"
)

// StepKind classifies a step for emitters that render kinds differently.
type StepKind string

const (
	StepBuild   StepKind = "build"
	StepTest    StepKind = "test"
	StepLint    StepKind = "lint"
	StepArchive StepKind = "archive"
	StepDeploy  StepKind = "deploy"
)

// Step is one unit of work inside a stage. Language-scoped steps carry the
// language guard plus the project marker file whose presence gates the step
// at runtime; emitters translate the guard into their own conditional form.
type Step struct {
	Name     string
	Kind     StepKind
	Language string // empty means unconditional

	// Marker is a file (or directory when MarkerIsDir) whose existence
	// gates the commands at runtime. Empty when the commands carry their
	// own guards.
	Marker      string
	MarkerIsDir bool

	Commands []string
}

// Stage is an ordered group of steps.
type Stage struct {
	Name  string
	Steps []Step
}

// DeploymentBlock holds the cluster rollout commands for the deploy stage.
// The command list is opaque to the builder; the selected method strategy
// owns its ordering and content.
type DeploymentBlock struct {
	Method   config.DeploymentMethod
	Registry string
	Image    string
	Commands []string

	// Manifest shaping, sourced from the overlay deploy section.
	Namespace    string
	ImageTag     string
	Replicas     int32
	Environments []string
}

// MatrixAxes is the OS x architecture fan-out descriptor. Stored on the
// spec even though only GitHub Actions consumes it; other emitters ignore
// it.
type MatrixAxes struct {
	OS   []string
	Arch []string
}

// ParameterType distinguishes runtime parameter declarations.
type ParameterType string

const (
	ParamBool   ParameterType = "boolean"
	ParamChoice ParameterType = "choice"
	ParamString ParameterType = "string"
)

// Parameter describes one runtime-configurable pipeline parameter.
// Jenkins-only concern, stored at the spec level like the matrix axes.
type Parameter struct {
	Name        string
	Type        ParameterType
	Default     string
	Choices     []string
	Description string
}

// Credentials carries the credential identifiers referenced by generated
// pipelines. These are names, never secret values.
type Credentials struct {
	Registry     string
	Kubeconfig   string
	ArgoCDServer string
	ArgoCD       string
}

// Notifications carries the completion messages for the pipeline post block.
type Notifications struct {
	OnSuccess string
	OnFailure string
}

// Spec is the ordered, fully materialized pipeline model.
type Spec struct {
	Name      string
	AppName   string // slug of Name, used for workload references
	Kind      config.Kind
	Image     string
	Registry  string
	Branches  []string
	Languages []string

	Stages     []Stage
	Deployment *DeploymentBlock
	Matrix     *MatrixAxes
	Parameters []Parameter

	ArtifactPath   string
	TestReportPath string
	Credentials    Credentials
	Notifications  Notifications

	// Passthrough holds unrecognized overlay sections, preserved for
	// emission as artifact metadata comments.
	Passthrough map[string]interface{}
}

// Stage returns the named stage, or nil when the spec does not contain it.
func (s *Spec) Stage(name string) *Stage {
	for i := range s.Stages {
		if s.Stages[i].Name == name {
			return &s.Stages[i]
		}
	}
	return nil
}

// HasLanguage reports whether the spec carries steps for lang.
func (s *Spec) HasLanguage(lang string) bool {
	for _, l := range s.Languages {
		if l == lang {
			return true
		}
	}
	return false
}
