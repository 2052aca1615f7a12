package pipeline

import (
	"testing"

	"github.com/deploymenttheory/go-cicd-forge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() config.Configuration {
	return config.Configuration{
		Name:             "Sample",
		Kind:             config.KindComplete,
		Languages:        []string{"python", "go"},
		DeploymentMethod: config.MethodKubectl,
		Registry:         "docker.io",
		Image:            "docker.io/org/app:latest",
		Branches:         []string{"main"},
		CodeAnalysis:     config.DefaultCodeAnalysis(),
		Overlay:          map[string]interface{}{},
	}
}

func stageNamesOf(spec *Spec) []string {
	names := make([]string, 0, len(spec.Stages))
	for _, s := range spec.Stages {
		names = append(names, s.Name)
	}
	return names
}

func TestBuildStageSets(t *testing.T) {
	cases := []struct {
		kind config.Kind
		want []string
	}{
		{config.KindBuild, []string{StageBuild}},
		{config.KindTest, []string{StageTest}},
		{config.KindDeploy, []string{StageDeploy}},
		{config.KindComplete, []string{StageBuild, StageTest, StageDeploy}},
		{config.KindReusable, []string{StageBuild, StageTest, StageDeploy}},
		{config.KindParameterized, []string{StageBuild, StageTest, StageDeploy}},
	}

	for _, tc := range cases {
		cfg := baseConfig()
		cfg.Kind = tc.kind
		assert.Equal(t, tc.want, stageNamesOf(Build(cfg)), "kind %s", tc.kind)
	}
}

func TestBuildCompleteIsUnionOfSingles(t *testing.T) {
	cfg := baseConfig()
	complete := Build(cfg)

	var union []Stage
	for _, kind := range []config.Kind{config.KindBuild, config.KindTest, config.KindDeploy} {
		single := baseConfig()
		single.Kind = kind
		union = append(union, Build(single).Stages...)
	}

	assert.Equal(t, union, complete.Stages)
}

func TestBuildLanguageFiltering(t *testing.T) {
	cfg := baseConfig()
	spec := Build(cfg)

	languagesSeen := make(map[string]bool)
	for _, stage := range spec.Stages {
		for _, step := range stage.Steps {
			if step.Language != "" {
				languagesSeen[step.Language] = true
			}
		}
	}

	assert.True(t, languagesSeen["python"])
	assert.True(t, languagesSeen["go"])
	assert.False(t, languagesSeen["java"])
	assert.False(t, languagesSeen["javascript"])
}

func TestBuildCanonicalLanguageOrder(t *testing.T) {
	cfg := baseConfig()
	cfg.Languages = []string{"go", "java", "python"} // resolution order differs

	spec := Build(cfg)
	assert.Equal(t, []string{"python", "java", "go"}, spec.Languages)

	build := spec.Stage(StageBuild)
	require.NotNil(t, build)
	var order []string
	for _, step := range build.Steps {
		if step.Language != "" {
			order = append(order, step.Language)
		}
	}
	assert.Equal(t, []string{"python", "python", "java", "java", "go"}, order)
}

func TestBuildDeterministic(t *testing.T) {
	cfg := baseConfig()
	assert.Equal(t, Build(cfg), Build(cfg))
}

func TestBuildDeploymentBlock(t *testing.T) {
	cfg := baseConfig()
	cfg.KubernetesEnabled = true
	spec := Build(cfg)

	require.NotNil(t, spec.Deployment)
	assert.Equal(t, config.MethodKubectl, spec.Deployment.Method)
	assert.Equal(t, []string{
		"kubectl apply -f ./k8s/deployment.yaml",
		"kubectl apply -f ./k8s/service.yaml",
		"kubectl rollout status deployment/sample",
	}, spec.Deployment.Commands)

	cfg.KubernetesEnabled = false
	assert.Nil(t, Build(cfg).Deployment)
}

func TestBuildMethodChangesOnlyDeployment(t *testing.T) {
	specs := make(map[config.DeploymentMethod]*Spec)
	for _, method := range config.DeploymentMethods {
		cfg := baseConfig()
		cfg.KubernetesEnabled = true
		cfg.DeploymentMethod = method
		specs[method] = Build(cfg)
	}

	reference := specs[config.MethodKubectl]
	for method, spec := range specs {
		assert.Equal(t, reference.Stage(StageBuild), spec.Stage(StageBuild), "method %s", method)
		assert.Equal(t, reference.Stage(StageTest), spec.Stage(StageTest), "method %s", method)
		require.NotNil(t, spec.Deployment)
		assert.Equal(t, method, spec.Deployment.Method)
	}

	assert.NotEqual(t, specs[config.MethodArgoCD].Deployment.Commands,
		specs[config.MethodFlux].Deployment.Commands)
}

func TestBuildMatrixAxes(t *testing.T) {
	cfg := baseConfig()
	assert.Nil(t, Build(cfg).Matrix)

	cfg.MatrixEnabled = true
	spec := Build(cfg)
	require.NotNil(t, spec.Matrix)
	assert.Equal(t, []string{"ubuntu-latest"}, spec.Matrix.OS)
	assert.Equal(t, []string{"amd64", "arm64"}, spec.Matrix.Arch)

	cfg.Overlay = map[string]interface{}{
		"matrix": map[string]interface{}{
			"os":   []interface{}{"ubuntu-22.04", "macos-latest"},
			"arch": []interface{}{"arm64"},
		},
	}
	spec = Build(cfg)
	require.NotNil(t, spec.Matrix)
	assert.Equal(t, []string{"ubuntu-22.04", "macos-latest"}, spec.Matrix.OS)
	assert.Equal(t, []string{"arm64"}, spec.Matrix.Arch)
}

func TestBuildRuntimeParameters(t *testing.T) {
	cfg := baseConfig()
	assert.Empty(t, Build(cfg).Parameters)

	cfg.ParametersEnabled = true
	cfg.KubernetesEnabled = true
	cfg.DeploymentMethod = config.MethodKustomize
	spec := Build(cfg)

	byName := make(map[string]Parameter)
	for _, p := range spec.Parameters {
		byName[p.Name] = p
	}

	assert.Equal(t, "true", byName["PYTHON_ENABLED"].Default)
	assert.Equal(t, "false", byName["JAVA_ENABLED"].Default)
	assert.Equal(t, "true", byName["GO_ENABLED"].Default)

	method := byName["K8S_METHOD"]
	assert.Equal(t, ParamChoice, method.Type)
	assert.Equal(t, "kustomize", method.Choices[0])
	assert.Len(t, method.Choices, 4)

	assert.Equal(t, ParamChoice, byName["ENVIRONMENT"].Type)
	assert.Equal(t, "docker.io", byName["REGISTRY_URL"].Default)
	assert.Equal(t, "sample", byName["IMAGE_NAME"].Default)
}

func TestBuildLintStepsFollowCodeAnalysis(t *testing.T) {
	cfg := baseConfig()
	cfg.Kind = config.KindTest
	cfg.Languages = []string{"python"}

	spec := Build(cfg)
	names := make([]string, 0)
	for _, step := range spec.Stage(StageTest).Steps {
		names = append(names, step.Name)
	}
	assert.Contains(t, names, "Run Pylint")

	cfg.CodeAnalysis["pylint"] = false
	spec = Build(cfg)
	names = names[:0]
	for _, step := range spec.Stage(StageTest).Steps {
		names = append(names, step.Name)
	}
	assert.NotContains(t, names, "Run Pylint")
}

func TestBuildOverlaySections(t *testing.T) {
	cfg := baseConfig()
	cfg.Overlay = map[string]interface{}{
		"build":       map[string]interface{}{"artifact_path": "out/"},
		"test":        map[string]interface{}{"report_path": "reports/"},
		"credentials": map[string]interface{}{"registry": "acme-registry"},
		"extra":       map[string]interface{}{"team": "platform"},
	}

	spec := Build(cfg)
	assert.Equal(t, "out/", spec.ArtifactPath)
	assert.Equal(t, "reports/", spec.TestReportPath)
	assert.Equal(t, "acme-registry", spec.Credentials.Registry)
	assert.Equal(t, "kubeconfig", spec.Credentials.Kubeconfig)
	assert.Contains(t, spec.Passthrough, "extra")
	assert.NotContains(t, spec.Passthrough, "build")
}

func TestBuildDeployOverlayShapesManifests(t *testing.T) {
	cfg := baseConfig()
	cfg.KubernetesEnabled = true
	cfg.Overlay = map[string]interface{}{
		"deploy": map[string]interface{}{
			"namespace":    "sample-system",
			"image_tag":    "v2.0.0",
			"replicas":     float64(5),
			"environments": []interface{}{"staging", "prod"},
		},
	}

	spec := Build(cfg)
	require.NotNil(t, spec.Deployment)
	assert.Equal(t, "sample-system", spec.Deployment.Namespace)
	assert.Equal(t, "v2.0.0", spec.Deployment.ImageTag)
	assert.Equal(t, int32(5), spec.Deployment.Replicas)
	assert.Equal(t, []string{"staging", "prod"}, spec.Deployment.Environments)

	// without overlay values the block still carries workable defaults
	cfg = baseConfig()
	cfg.KubernetesEnabled = true
	spec = Build(cfg)
	require.NotNil(t, spec.Deployment)
	assert.Equal(t, "latest", spec.Deployment.ImageTag)
	assert.Equal(t, int32(2), spec.Deployment.Replicas)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "my-sample-app", Slug("My Sample App"))
}
