package pipeline

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-cicd-forge/internal/common/jsonutil"
	"github.com/deploymenttheory/go-cicd-forge/internal/config"
)

// Stage names are shared vocabulary between the builder and emitters.
const (
	StageBuild  = "build"
	StageTest   = "test"
	StageDeploy = "deploy"
)

// actionRow is one entry of the fixed per-language action table.
type actionRow struct {
	name        string
	kind        StepKind
	marker      string
	markerIsDir bool
	commands    []string

	// tool names the code-analysis toggle gating this row; empty rows are
	// always emitted for their language.
	tool string
}

var buildActions = map[string][]actionRow{
	"python": {
		{name: "Install Python dependencies", kind: StepBuild, marker: "requirements.txt",
			commands: []string{"pip install -r requirements.txt"}},
		{name: "Build Python package", kind: StepBuild,
			commands: []string{"if [ -f setup.py ]; then pip install -e .; elif [ -f pyproject.toml ]; then pip install -e .; fi"}},
	},
	"java": {
		{name: "Build with Maven", kind: StepBuild, marker: "pom.xml",
			commands: []string{"mvn -B package --file pom.xml"}},
		{name: "Build with Gradle", kind: StepBuild, marker: "build.gradle",
			commands: []string{"./gradlew build"}},
	},
	"javascript": {
		{name: "Install Node.js dependencies", kind: StepBuild, marker: "package.json",
			commands: []string{"npm ci"}},
		{name: "Build JavaScript/TypeScript", kind: StepBuild, marker: "package.json",
			commands: []string{"npm run build --if-present"}},
	},
	"go": {
		{name: "Build Go application", kind: StepBuild, marker: "go.mod",
			commands: []string{"go build -v ./..."}},
	},
}

var testActions = map[string][]actionRow{
	"python": {
		{name: "Install Python test dependencies", kind: StepTest, marker: "requirements.txt",
			commands: []string{"pip install -r requirements.txt pytest pytest-cov"}},
		{name: "Run Python tests", kind: StepTest, marker: "tests", markerIsDir: true,
			commands: []string{"python -m pytest --cov=./ --cov-report=xml"}},
		{name: "Run Pylint", kind: StepLint, tool: "pylint",
			commands: []string{"if command -v pylint >/dev/null 2>&1; then pylint --disable=C0111 **/*.py || true; fi"}},
	},
	"java": {
		{name: "Run Java tests with Maven", kind: StepTest, marker: "pom.xml",
			commands: []string{"mvn -B test --file pom.xml"}},
		{name: "Run Java tests with Gradle", kind: StepTest, marker: "build.gradle",
			commands: []string{"./gradlew test"}},
		{name: "Run Checkstyle", kind: StepLint, marker: "pom.xml", tool: "checkstyle",
			commands: []string{"mvn checkstyle:checkstyle || true"}},
	},
	"javascript": {
		{name: "Install Node.js dependencies", kind: StepTest, marker: "package.json",
			commands: []string{"npm ci"}},
		{name: "Run JavaScript tests", kind: StepTest, marker: "package.json",
			commands: []string{"npm test"}},
		{name: "Run ESLint", kind: StepLint, tool: "eslint",
			commands: []string{"if [ -f package.json ] && grep -q eslint package.json; then npm run lint || true; fi"}},
	},
	"go": {
		{name: "Run Go tests", kind: StepTest, marker: "go.mod",
			commands: []string{"go test -v ./..."}},
	},
}

// Build converts a resolved Configuration into a pipeline spec. It never
// fails on a validated Configuration: the closed enums guarantee exhaustive
// dispatch, so there is no error return.
func Build(cfg config.Configuration) *Spec {
	spec := &Spec{
		Name:      cfg.Name,
		AppName:   Slug(cfg.Name),
		Kind:      cfg.Kind,
		Image:     cfg.Image,
		Registry:  cfg.Registry,
		Branches:  append([]string{}, cfg.Branches...),
		Languages: canonicalLanguages(cfg.Languages),

		ArtifactPath:   jsonutil.GetString(cfg.Overlay, "build.artifact_path", "dist/"),
		TestReportPath: jsonutil.GetString(cfg.Overlay, "test.report_path", "test-reports/"),
		Credentials:    credentialsFromOverlay(cfg.Overlay),
		Notifications:  notificationsFromOverlay(cfg.Overlay),
		Passthrough:    passthroughSections(cfg.Overlay),
	}

	for _, name := range stageNames(cfg.Kind) {
		spec.Stages = append(spec.Stages, buildStage(name, cfg, spec))
	}

	if hasStage(spec, StageDeploy) && cfg.KubernetesEnabled {
		environments, _ := jsonutil.GetStringSlice(cfg.Overlay, "deploy.environments")
		spec.Deployment = &DeploymentBlock{
			Method:   cfg.DeploymentMethod,
			Registry: cfg.Registry,
			Image:    cfg.Image,
			Commands: deploymentCommands(cfg.DeploymentMethod, spec.AppName),

			Namespace:    jsonutil.GetString(cfg.Overlay, "deploy.namespace", ""),
			ImageTag:     jsonutil.GetString(cfg.Overlay, "deploy.image_tag", "latest"),
			Replicas:     int32(jsonutil.GetInt(cfg.Overlay, "deploy.replicas", 2)),
			Environments: environments,
		}
	}

	if cfg.MatrixEnabled {
		spec.Matrix = matrixAxes(cfg.Overlay)
	}

	if cfg.ParametersEnabled {
		spec.Parameters = runtimeParameters(cfg, spec.Languages)
	}

	return spec
}

// stageNames maps the pipeline kind onto its stage set. complete implies
// all three stages; build, test and deploy imply exactly one.
func stageNames(kind config.Kind) []string {
	switch kind {
	case config.KindBuild:
		return []string{StageBuild}
	case config.KindTest:
		return []string{StageTest}
	case config.KindDeploy:
		return []string{StageDeploy}
	case config.KindComplete, config.KindReusable, config.KindParameterized:
		return []string{StageBuild, StageTest, StageDeploy}
	}
	panic(fmt.Sprintf("pipeline: unhandled kind %q", kind))
}

func buildStage(name string, cfg config.Configuration, spec *Spec) Stage {
	stage := Stage{Name: name}

	switch name {
	case StageBuild:
		stage.Steps = languageSteps(buildActions, spec.Languages, cfg.CodeAnalysis)
		stage.Steps = append(stage.Steps, Step{Name: "Upload build artifacts", Kind: StepArchive})
	case StageTest:
		stage.Steps = languageSteps(testActions, spec.Languages, cfg.CodeAnalysis)
		stage.Steps = append(stage.Steps, Step{Name: "Publish test results", Kind: StepArchive})
	case StageDeploy:
		stage.Steps = []Step{{Name: "Build and push container image", Kind: StepDeploy}}
	}

	return stage
}

// languageSteps materializes table rows for the enabled languages, in the
// canonical language order so repeated builds emit identical step
// sequences.
func languageSteps(table map[string][]actionRow, languages []string, analysis map[string]bool) []Step {
	var steps []Step
	for _, lang := range languages {
		for _, row := range table[lang] {
			if row.tool != "" && !analysis[row.tool] {
				continue
			}
			steps = append(steps, Step{
				Name:        row.name,
				Kind:        row.kind,
				Language:    lang,
				Marker:      row.marker,
				MarkerIsDir: row.markerIsDir,
				Commands:    append([]string{}, row.commands...),
			})
		}
	}
	return steps
}

// canonicalLanguages reorders the resolved language set into the fixed
// canonical order.
func canonicalLanguages(languages []string) []string {
	enabled := make(map[string]bool, len(languages))
	for _, lang := range languages {
		enabled[lang] = true
	}
	out := make([]string, 0, len(languages))
	for _, lang := range config.SupportedLanguages {
		if enabled[lang] {
			out = append(out, lang)
		}
	}
	return out
}

func hasStage(spec *Spec, name string) bool {
	return spec.Stage(name) != nil
}

func matrixAxes(overlay map[string]interface{}) *MatrixAxes {
	axes := &MatrixAxes{
		OS:   []string{"ubuntu-latest"},
		Arch: []string{"amd64", "arm64"},
	}
	if os, ok := jsonutil.GetStringSlice(overlay, "matrix.os"); ok && len(os) > 0 {
		axes.OS = os
	}
	if arch, ok := jsonutil.GetStringSlice(overlay, "matrix.arch"); ok && len(arch) > 0 {
		axes.Arch = arch
	}
	return axes
}

// runtimeParameters declares one boolean per supported language plus the
// deployment choices. Declarations cover the full language set so a manual
// run can switch on a language the configuration left disabled.
func runtimeParameters(cfg config.Configuration, enabled []string) []Parameter {
	isEnabled := make(map[string]bool, len(enabled))
	for _, lang := range enabled {
		isEnabled[lang] = true
	}

	var params []Parameter
	for _, lang := range config.SupportedLanguages {
		params = append(params, Parameter{
			Name:        strings.ToUpper(lang) + "_ENABLED",
			Type:        ParamBool,
			Default:     fmt.Sprintf("%t", isEnabled[lang]),
			Description: fmt.Sprintf("Enable %s steps", lang),
		})
	}

	if cfg.KubernetesEnabled {
		params = append(params,
			Parameter{Name: "KUBERNETES_DEPLOY", Type: ParamBool, Default: "true",
				Description: "Deploy to Kubernetes"},
			Parameter{Name: "K8S_METHOD", Type: ParamChoice, Default: string(cfg.DeploymentMethod),
				Choices:     methodChoices(cfg.DeploymentMethod),
				Description: "Kubernetes deployment method"},
			Parameter{Name: "ENVIRONMENT", Type: ParamChoice, Default: config.Environments[0],
				Choices:     config.Environments,
				Description: "Deployment environment"},
		)
	}

	params = append(params,
		Parameter{Name: "REGISTRY_URL", Type: ParamString, Default: cfg.Registry,
			Description: "Container registry URL"},
		Parameter{Name: "IMAGE_NAME", Type: ParamString, Default: Slug(cfg.Name),
			Description: "Name of the container image"},
		Parameter{Name: "IMAGE_TAG", Type: ParamString, Default: "latest",
			Description: "Container image tag"},
	)

	return params
}

// methodChoices lists the deployment methods with the configured default
// first, since choice parameters treat the first entry as the default.
func methodChoices(def config.DeploymentMethod) []string {
	choices := []string{string(def)}
	for _, m := range config.DeploymentMethods {
		if m != def {
			choices = append(choices, string(m))
		}
	}
	return choices
}

func credentialsFromOverlay(overlay map[string]interface{}) Credentials {
	return Credentials{
		Registry:     jsonutil.GetString(overlay, "credentials.registry", "registry-credentials"),
		Kubeconfig:   jsonutil.GetString(overlay, "credentials.kubeconfig", "kubeconfig"),
		ArgoCDServer: jsonutil.GetString(overlay, "credentials.argocd_server", "argocd-server"),
		ArgoCD:       jsonutil.GetString(overlay, "credentials.argocd", "argocd-credentials"),
	}
}

func notificationsFromOverlay(overlay map[string]interface{}) Notifications {
	return Notifications{
		OnSuccess: jsonutil.GetString(overlay, "notifications.on_success", "Pipeline completed successfully!"),
		OnFailure: jsonutil.GetString(overlay, "notifications.on_failure", "Pipeline failed!"),
	}
}

// recognized overlay sections feed the model; everything else passes
// through into artifact metadata.
var recognizedSections = map[string]bool{
	"build":           true,
	"test":            true,
	"deploy":          true,
	"matrix":          true,
	"credentials":     true,
	"notifications":   true,
	"container_image": true,
}

func passthroughSections(overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for key, value := range overlay {
		if !recognizedSections[key] {
			out[key] = value
		}
	}
	return out
}

// Slug lowercases a display name and replaces spaces for use in file names
// and workload references.
func Slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}
