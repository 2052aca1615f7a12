// Package github renders a pipeline spec as a GitHub Actions workflow
// document. The document is built as a typed YAML tree and serialized with
// yaml.v3 so emission order is fixed by struct layout, never by map
// iteration.
package github

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-cicd-forge/internal/common/errors"
	"github.com/deploymenttheory/go-cicd-forge/internal/config"
	"github.com/deploymenttheory/go-cicd-forge/internal/pipeline"
)

type document struct {
	Name string   `yaml:"name"`
	On   triggers `yaml:"on"`
	Jobs jobs     `yaml:"jobs"`
}

type triggers struct {
	Push             *branchTrigger   `yaml:"push,omitempty"`
	PullRequest      *branchTrigger   `yaml:"pull_request,omitempty"`
	WorkflowDispatch *dispatchTrigger `yaml:"workflow_dispatch,omitempty"`
	WorkflowCall     *callTrigger     `yaml:"workflow_call,omitempty"`
}

type branchTrigger struct {
	Branches []string `yaml:"branches"`
}

type dispatchTrigger struct {
	Inputs map[string]dispatchInput `yaml:"inputs,omitempty"`
}

type dispatchInput struct {
	Description string   `yaml:"description"`
	Required    bool     `yaml:"required"`
	Default     string   `yaml:"default,omitempty"`
	Type        string   `yaml:"type"`
	Options     []string `yaml:"options,omitempty"`
}

type callTrigger struct {
	Inputs  map[string]callInput  `yaml:"inputs,omitempty"`
	Secrets map[string]callSecret `yaml:"secrets,omitempty"`
}

type callInput struct {
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	Default     string `yaml:"default,omitempty"`
	Type        string `yaml:"type"`
}

type callSecret struct {
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// jobs is a struct rather than a map so the build, test and deploy jobs
// always serialize in execution order.
type jobs struct {
	Build  *job `yaml:"build,omitempty"`
	Test   *job `yaml:"test,omitempty"`
	Deploy *job `yaml:"deploy,omitempty"`
}

type job struct {
	Needs     []string   `yaml:"needs,omitempty"`
	If        string     `yaml:"if,omitempty"`
	RunsOn    string     `yaml:"runs-on"`
	Container *container `yaml:"container,omitempty"`
	Strategy  *strategy  `yaml:"strategy,omitempty"`
	Steps     []step     `yaml:"steps"`
}

type container struct {
	Image   string `yaml:"image"`
	Options string `yaml:"options"`
}

type strategy struct {
	Matrix   matrixBlock `yaml:"matrix"`
	FailFast bool        `yaml:"fail-fast"`
}

type matrixBlock struct {
	OS   []string `yaml:"os"`
	Arch []string `yaml:"arch"`
}

type step struct {
	Name string            `yaml:"name"`
	ID   string            `yaml:"id,omitempty"`
	If   string            `yaml:"if,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	With interface{}       `yaml:"with,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
}

type uploadWith struct {
	Name          string `yaml:"name"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention-days"`
}

type codecovWith struct {
	Files         string `yaml:"files"`
	FailCIIfError bool   `yaml:"fail_ci_if_error"`
}

// Filename returns the workflow file name for a spec.
func Filename(spec *pipeline.Spec) string {
	return fmt.Sprintf("%s-%s.yml", spec.AppName, spec.Kind)
}

// Emit renders the workflow document. Identical specs produce identical
// bytes.
func Emit(spec *pipeline.Spec) (string, error) {
	if spec.Kind == config.KindParameterized {
		return "", fmt.Errorf("%w: parameterized pipelines are a Jenkins concern", errors.ErrUnsupportedTarget)
	}
	if spec.Matrix != nil && spec.Stage(pipeline.StageBuild) == nil && spec.Stage(pipeline.StageTest) == nil {
		return "", fmt.Errorf("%w: matrix fan-out requires a build or test stage", errors.ErrUnsupportedTarget)
	}

	doc := document{
		Name: workflowName(spec),
		On:   buildTriggers(spec),
	}

	previous := ""
	for _, stage := range spec.Stages {
		j := buildJob(spec, stage, previous)
		switch stage.Name {
		case pipeline.StageBuild:
			doc.Jobs.Build = j
		case pipeline.StageTest:
			doc.Jobs.Test = j
		case pipeline.StageDeploy:
			doc.Jobs.Deploy = j
		}
		previous = stage.Name
	}

	var body strings.Builder
	enc := yaml.NewEncoder(&body)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrEmitFailed, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrEmitFailed, err)
	}

	return metadataHeader("#", spec.Passthrough) + body.String(), nil
}

func workflowName(spec *pipeline.Spec) string {
	switch spec.Kind {
	case config.KindBuild:
		return spec.Name + " Build"
	case config.KindTest:
		return spec.Name + " Test"
	case config.KindDeploy:
		return spec.Name + " Deploy"
	case config.KindReusable:
		return spec.Name + " Reusable Workflow"
	default:
		return spec.Name + " CI/CD"
	}
}

func buildTriggers(spec *pipeline.Spec) triggers {
	if spec.Kind == config.KindReusable {
		return triggers{WorkflowCall: buildCallTrigger(spec)}
	}

	t := triggers{
		Push:             &branchTrigger{Branches: spec.Branches},
		WorkflowDispatch: &dispatchTrigger{},
	}
	if spec.Kind != config.KindDeploy {
		t.PullRequest = &branchTrigger{Branches: spec.Branches}
	}
	if spec.Stage(pipeline.StageDeploy) != nil {
		t.WorkflowDispatch.Inputs = map[string]dispatchInput{
			"environment": {
				Description: "Environment to deploy to",
				Required:    true,
				Default:     config.Environments[0],
				Type:        "choice",
				Options:     config.Environments,
			},
		}
	}
	return t
}

func buildCallTrigger(spec *pipeline.Spec) *callTrigger {
	languages := make(map[string]bool, len(config.SupportedLanguages))
	for _, lang := range config.SupportedLanguages {
		languages[lang] = spec.HasLanguage(lang)
	}
	languagesJSON, _ := json.Marshal(languages)

	method := string(config.MethodKubectl)
	deployDefault := "false"
	if spec.Deployment != nil {
		method = string(spec.Deployment.Method)
		deployDefault = "true"
	}

	return &callTrigger{
		Inputs: map[string]callInput{
			"environment": {
				Description: "Environment to deploy to",
				Default:     config.Environments[0],
				Type:        "string",
			},
			"languages": {
				Description: "JSON string of languages to enable",
				Default:     string(languagesJSON),
				Type:        "string",
			},
			"kubernetes_deploy": {
				Description: "Whether to deploy to Kubernetes",
				Default:     deployDefault,
				Type:        "boolean",
			},
			"k8s_method": {
				Description: "Kubernetes deployment method",
				Default:     method,
				Type:        "string",
			},
		},
		Secrets: map[string]callSecret{
			"registry_token": {Description: "Token for container registry"},
			"kubeconfig":     {Description: "Kubernetes configuration"},
		},
	}
}

func buildJob(spec *pipeline.Spec, stage pipeline.Stage, previous string) *job {
	j := &job{
		RunsOn:    "ubuntu-latest",
		Container: &container{Image: spec.Image, Options: "--user root"},
	}
	if previous != "" {
		j.Needs = []string{previous}
	}
	if stage.Name == pipeline.StageDeploy {
		j.If = mainBranchGuard(spec)
	}
	if spec.Matrix != nil {
		j.Strategy = &strategy{
			Matrix:   matrixBlock{OS: spec.Matrix.OS, Arch: spec.Matrix.Arch},
			FailFast: false,
		}
		j.RunsOn = "${{ matrix.os }}"
	}

	j.Steps = []step{
		{Name: "Checkout code", Uses: "actions/checkout@v3"},
		{
			Name: fmt.Sprintf("Set up %s environment", stage.Name),
			Run:  fmt.Sprintf("echo 'Setting up %s environment for %s'", stage.Name, spec.Name),
		},
	}

	for _, s := range stage.Steps {
		j.Steps = append(j.Steps, renderSteps(spec, stage.Name, s)...)
	}

	if stage.Name == pipeline.StageDeploy {
		j.Steps = append(j.Steps, deploymentSteps(spec)...)
	}

	return j
}

func renderSteps(spec *pipeline.Spec, stageName string, s pipeline.Step) []step {
	switch s.Kind {
	case pipeline.StepArchive:
		return archiveSteps(spec, stageName)
	case pipeline.StepDeploy:
		return []step{dockerPushStep(spec)}
	default:
		return []step{{Name: s.Name, Run: guardedRun(s)}}
	}
}

// guardedRun defers language gating to runtime shell file checks so a
// single workflow serves heterogeneous checkouts.
func guardedRun(s pipeline.Step) string {
	if s.Marker == "" {
		return strings.Join(s.Commands, "\n")
	}
	flag := "-f"
	if s.MarkerIsDir {
		flag = "-d"
	}
	return fmt.Sprintf("if [ %s %s ]; then %s; fi", flag, s.Marker, strings.Join(s.Commands, "; "))
}

func archiveSteps(spec *pipeline.Spec, stageName string) []step {
	suffix := ""
	if spec.Matrix != nil {
		suffix = "-${{ matrix.os }}-${{ matrix.arch }}"
	}

	if stageName == pipeline.StageBuild {
		return []step{{
			Name: "Upload build artifacts",
			Uses: "actions/upload-artifact@v3",
			With: uploadWith{Name: "build-artifacts" + suffix, Path: spec.ArtifactPath, RetentionDays: 1},
		}}
	}

	return []step{
		{
			Name: "Upload test results",
			Uses: "actions/upload-artifact@v3",
			With: uploadWith{Name: "test-results" + suffix, Path: spec.TestReportPath, RetentionDays: 1},
		},
		{
			Name: "Upload coverage reports",
			Uses: "codecov/codecov-action@v3",
			With: codecovWith{Files: "./coverage.xml,./coverage/lcov.info", FailCIIfError: false},
		},
	}
}

func dockerPushStep(spec *pipeline.Spec) step {
	token := "${{ secrets.REGISTRY_TOKEN }}"
	if spec.Kind == config.KindReusable {
		token = "${{ secrets.registry_token }}"
	}
	imageRef := spec.Registry + "/${{ github.repository_owner }}/${{ github.event.repository.name }}:latest"
	return step{
		Name: "Build and push container image",
		If:   mainBranchGuard(spec),
		Run: strings.Join([]string{
			fmt.Sprintf("echo \"%s\" | docker login %s -u ${{ github.actor }} --password-stdin", token, spec.Registry),
			fmt.Sprintf("docker build -t %s .", imageRef),
			fmt.Sprintf("docker push %s", imageRef),
		}, "\n"),
	}
}

func deploymentSteps(spec *pipeline.Spec) []step {
	if spec.Kind == config.KindReusable {
		return reusableDeploymentSteps(spec)
	}
	if spec.Deployment == nil {
		return nil
	}

	block := spec.Deployment
	s := step{If: mainBranchGuard(spec)}

	switch block.Method {
	case config.MethodKubectl:
		s.Name = "Deploy to Kubernetes"
		s.Run = strings.Join(append(kubeconfigSetup(), block.Commands...), "\n")
	case config.MethodKustomize:
		s.Name = "Deploy to Kubernetes with Kustomize"
		s.Run = strings.Join(append(kubeconfigSetup(), block.Commands...), "\n")
		s.Env = map[string]string{"ENVIRONMENT": "${{ github.event.inputs.environment || 'dev' }}"}
	case config.MethodArgoCD:
		s.Name = "Deploy with ArgoCD"
		s.Run = strings.Join(block.Commands, "\n")
		s.Env = map[string]string{
			"ARGOCD_SERVER":   "${{ secrets.ARGOCD_SERVER }}",
			"ARGOCD_USERNAME": "${{ secrets.ARGOCD_USERNAME }}",
			"ARGOCD_PASSWORD": "${{ secrets.ARGOCD_PASSWORD }}",
		}
	case config.MethodFlux:
		s.Name = "Deploy with Flux"
		s.Run = strings.Join(block.Commands, "\n")
	}

	return []step{s}
}

// reusableDeploymentSteps renders the runtime method dispatch used by
// workflow_call consumers, which pick the method per invocation instead of
// at generation time.
func reusableDeploymentSteps(spec *pipeline.Spec) []step {
	parse := step{
		Name: "Parse input configurations",
		ID:   "config",
		Run: strings.Join([]string{
			"echo \"languages=${{ inputs.languages }}\" >> $GITHUB_OUTPUT",
			"echo \"k8s_deploy=${{ inputs.kubernetes_deploy }}\" >> $GITHUB_OUTPUT",
			"echo \"k8s_method=${{ inputs.k8s_method }}\" >> $GITHUB_OUTPUT",
			"echo \"env=${{ inputs.environment }}\" >> $GITHUB_OUTPUT",
		}, "\n"),
	}

	app := spec.AppName
	dispatch := step{
		Name: "Deploy to Kubernetes",
		If:   mainBranchGuard(spec) + " && steps.config.outputs.k8s_deploy == 'true'",
		Run: strings.Join([]string{
			"mkdir -p $HOME/.kube",
			"echo \"${{ secrets.kubeconfig }}\" > $HOME/.kube/config",
			"chmod 600 $HOME/.kube/config",
			"if [[ \"${{ steps.config.outputs.k8s_method }}\" == \"kubectl\" ]]; then",
			"  kubectl apply -f ./k8s/deployment.yaml",
			"  kubectl apply -f ./k8s/service.yaml",
			fmt.Sprintf("  kubectl rollout status deployment/%s", app),
			"elif [[ \"${{ steps.config.outputs.k8s_method }}\" == \"kustomize\" ]]; then",
			"  kubectl apply -k ./k8s/overlays/${{ steps.config.outputs.env }}",
			fmt.Sprintf("  kubectl rollout status deployment/%s", app),
			"elif [[ \"${{ steps.config.outputs.k8s_method }}\" == \"argocd\" ]]; then",
			"  argocd login $ARGOCD_SERVER --username $ARGOCD_USERNAME --password $ARGOCD_PASSWORD --insecure",
			fmt.Sprintf("  argocd app sync %s", app),
			fmt.Sprintf("  argocd app wait %s --health", app),
			"elif [[ \"${{ steps.config.outputs.k8s_method }}\" == \"flux\" ]]; then",
			"  flux reconcile source git flux-system",
			"  flux reconcile kustomization flux-system",
			"fi",
		}, "\n"),
	}

	return []step{parse, dispatch}
}

func kubeconfigSetup() []string {
	return []string{
		"mkdir -p $HOME/.kube",
		"echo \"${{ secrets.KUBECONFIG }}\" > $HOME/.kube/config",
		"chmod 600 $HOME/.kube/config",
	}
}

func mainBranchGuard(spec *pipeline.Spec) string {
	branch := "main"
	if len(spec.Branches) > 0 {
		branch = spec.Branches[0]
	}
	return fmt.Sprintf("github.ref == 'refs/heads/%s'", branch)
}

// metadataHeader renders unrecognized overlay sections as comment lines in
// sorted order, so custom values survive into the artifact without
// affecting its behavior.
func metadataHeader(comment string, passthrough map[string]interface{}) string {
	if len(passthrough) == 0 {
		return ""
	}
	keys := make([]string, 0, len(passthrough))
	for key := range passthrough {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		encoded, err := json.Marshal(passthrough[key])
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%s %s: %s\n", comment, key, encoded)
	}
	b.WriteString("\n")
	return b.String()
}
