// Package generate coordinates a full generation run: resolve the
// configuration once, build the pipeline model once, then fan out to the
// requested emitters. Emitter failures are isolated per target so one
// unsupported combination still yields the other artifacts.
package generate

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/deploymenttheory/go-cicd-forge/internal/artifact"
	forgeerrors "github.com/deploymenttheory/go-cicd-forge/internal/common/errors"
	"github.com/deploymenttheory/go-cicd-forge/internal/config"
	"github.com/deploymenttheory/go-cicd-forge/internal/emit/github"
	"github.com/deploymenttheory/go-cicd-forge/internal/emit/jenkins"
	"github.com/deploymenttheory/go-cicd-forge/internal/emit/manifests"
	"github.com/deploymenttheory/go-cicd-forge/internal/logger"
	"github.com/deploymenttheory/go-cicd-forge/internal/pipeline"
)

type Target string

const (
	TargetGitHub    Target = "github"
	TargetJenkins   Target = "jenkins"
	TargetManifests Target = "manifests"
)

// targetOrder fixes report ordering independently of goroutine scheduling.
var targetOrder = map[Target]int{TargetGitHub: 0, TargetJenkins: 1, TargetManifests: 2}

const (
	readmeName = "CICD-README.md"
	bundleName = "cicd-artifacts.tar.xz"
)

// Request describes one generation run.
type Request struct {
	Options  config.Options
	EnvFile  string
	Overlay  string
	Targets  []Target
	Bundle   bool
	Manifest bool
}

// Result is the outcome for a single target.
type Result struct {
	Target Target
	Paths  []string
	Err    error
}

// Report aggregates every target outcome of a run.
type Report struct {
	Config  config.Configuration
	Results []Result
}

// Err joins all target failures. A nil return means the run fully
// succeeded; a non-nil return with some populated Paths means partial
// success.
func (r *Report) Err() error {
	errs := make([]error, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Target, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Paths lists every artifact written across all targets, sorted.
func (r *Report) Paths() []string {
	var paths []string
	for _, res := range r.Results {
		paths = append(paths, res.Paths...)
	}
	sort.Strings(paths)
	return paths
}

// Run executes a generation request. Configuration failures abort the run;
// emitter and write failures are collected into the report instead.
func Run(req Request) (*Report, error) {
	cfg, err := config.Resolve(req.Options, req.EnvFile, req.Overlay)
	if err != nil {
		return nil, err
	}

	spec := pipeline.Build(cfg)
	writer := artifact.NewWriter(cfg.OutputLocation)

	targets := req.Targets
	if len(targets) == 0 {
		targets = []Target{TargetGitHub, TargetJenkins}
	}
	if req.Manifest && spec.Deployment != nil && !containsTarget(targets, TargetManifests) {
		targets = append(targets, TargetManifests)
	}

	results := make([]Result, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target Target) {
			defer wg.Done()
			results[i] = runTarget(target, spec, writer)
		}(i, target)
	}
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return targetOrder[results[i].Target] < targetOrder[results[j].Target]
	})

	report := &Report{Config: cfg, Results: results}

	for _, res := range report.Results {
		if res.Err != nil {
			logger.LogError("target failed", res.Err, map[string]interface{}{"target": res.Target})
			continue
		}
		logger.LogInfo("target generated", map[string]interface{}{
			"target": res.Target,
			"files":  len(res.Paths),
		})
	}

	if report.Err() == nil {
		finishRun(report, writer, req.Bundle)
	}

	return report, nil
}

func containsTarget(targets []Target, want Target) bool {
	for _, t := range targets {
		if t == want {
			return true
		}
	}
	return false
}

func runTarget(target Target, spec *pipeline.Spec, writer *artifact.Writer) Result {
	switch target {
	case TargetGitHub:
		return emitWorkflow(spec, writer)
	case TargetJenkins:
		return emitJenkinsfile(spec, writer)
	case TargetManifests:
		return emitManifests(spec, writer)
	default:
		return Result{Target: target, Err: fmt.Errorf("%w: unknown target %q", forgeerrors.ErrUnsupportedTarget, target)}
	}
}

func emitWorkflow(spec *pipeline.Spec, writer *artifact.Writer) Result {
	res := Result{Target: TargetGitHub}

	content, err := github.Emit(spec)
	if err != nil {
		res.Err = err
		return res
	}

	rel := ".github/workflows/" + github.Filename(spec)
	if _, err := writer.Write(rel, []byte(content)); err != nil {
		res.Err = err
		return res
	}
	res.Paths = []string{rel}
	return res
}

func emitJenkinsfile(spec *pipeline.Spec, writer *artifact.Writer) Result {
	res := Result{Target: TargetJenkins}

	content, err := jenkins.Emit(spec)
	if err != nil {
		res.Err = err
		return res
	}

	if _, err := writer.Write(jenkins.Filename, []byte(content)); err != nil {
		res.Err = err
		return res
	}
	res.Paths = []string{jenkins.Filename}
	return res
}

func emitManifests(spec *pipeline.Spec, writer *artifact.Writer) Result {
	res := Result{Target: TargetManifests}

	if spec.Deployment == nil {
		res.Err = fmt.Errorf("%w: pipeline has no deployment to generate manifests for", forgeerrors.ErrUnsupportedTarget)
		return res
	}

	artifacts, err := manifests.Emit(manifests.Input{
		AppName:      spec.AppName,
		Namespace:    spec.Deployment.Namespace,
		Environments: spec.Deployment.Environments,
		Registry:     spec.Registry,
		ImageTag:     spec.Deployment.ImageTag,
		Replicas:     spec.Deployment.Replicas,
		Method:       spec.Deployment.Method,
	})
	if err != nil {
		res.Err = err
		return res
	}

	for _, a := range artifacts {
		if _, err := writer.Write(a.Path, a.Content); err != nil {
			res.Err = err
			return res
		}
		res.Paths = append(res.Paths, a.Path)
	}
	return res
}

// finishRun writes the run summary and, when requested, the artifact
// bundle. Both are best-effort: a summary failure is appended as its own
// result rather than discarding the generated files.
func finishRun(report *Report, writer *artifact.Writer, bundle bool) {
	paths := report.Paths()

	readme := summary(report.Config, paths)
	if _, err := writer.Write(readmeName, []byte(readme)); err != nil {
		report.Results = append(report.Results, Result{Target: "summary", Err: err})
		return
	}
	paths = append(paths, readmeName)

	if bundle {
		if err := writer.Bundle(paths, filepath.Join(writer.Root, bundleName)); err != nil {
			report.Results = append(report.Results, Result{Target: "bundle", Err: err})
			return
		}
	}
}

// summary renders CICD-README.md. Content depends only on the resolved
// configuration and the artifact list, never on the clock, so re-runs stay
// byte-identical.
func summary(cfg config.Configuration, paths []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s CI/CD Artifacts\n\n", cfg.Name)
	fmt.Fprintf(&b, "Generated pipeline configuration for **%s** (`%s`).\n\n", cfg.Name, cfg.Kind)

	b.WriteString("## Configuration\n\n")
	fmt.Fprintf(&b, "- Languages: %s\n", strings.Join(cfg.Languages, ", "))
	fmt.Fprintf(&b, "- Container registry: %s\n", cfg.Registry)
	fmt.Fprintf(&b, "- CI image: %s\n", cfg.Image)
	fmt.Fprintf(&b, "- Branches: %s\n", strings.Join(cfg.Branches, ", "))
	if cfg.KubernetesEnabled {
		fmt.Fprintf(&b, "- Kubernetes deployment: %s\n", cfg.DeploymentMethod)
	} else {
		b.WriteString("- Kubernetes deployment: disabled\n")
	}

	b.WriteString("\n## Files\n\n")
	for _, p := range paths {
		fmt.Fprintf(&b, "- `%s`\n", p)
	}

	return b.String()
}
