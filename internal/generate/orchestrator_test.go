package generate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-cicd-forge/internal/common/errors"
	"github.com/deploymenttheory/go-cicd-forge/internal/config"
)

func baseOptions(t *testing.T) config.Options {
	return config.Options{
		Name:       config.String("Sample"),
		Kind:       config.String("complete"),
		Languages:  config.String("python,go"),
		Kubernetes: config.Bool(true),
		Method:     config.String("kubectl"),
		Output:     config.String(t.TempDir()),
	}
}

func TestRunGeneratesBothTargets(t *testing.T) {
	opts := baseOptions(t)
	report, err := Run(Request{Options: opts})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	out := opts.Output.Value
	assert.FileExists(t, filepath.Join(out, ".github", "workflows", "sample-complete.yml"))
	assert.FileExists(t, filepath.Join(out, "Jenkinsfile"))
	assert.FileExists(t, filepath.Join(out, "CICD-README.md"))

	assert.Equal(t, []string{
		".github/workflows/sample-complete.yml",
		"Jenkinsfile",
	}, report.Paths())
}

func TestRunPartialSuccess(t *testing.T) {
	opts := baseOptions(t)
	opts.Kind = config.String("parameterized")
	opts.Parameters = config.Bool(true)

	report, err := Run(Request{Options: opts})
	require.NoError(t, err)
	require.Error(t, report.Err())
	assert.ErrorIs(t, report.Err(), errors.ErrUnsupportedTarget)

	out := opts.Output.Value
	assert.FileExists(t, filepath.Join(out, "Jenkinsfile"))
	assert.NoFileExists(t, filepath.Join(out, ".github", "workflows", "sample-parameterized.yml"))
	// a failed run gets no summary
	assert.NoFileExists(t, filepath.Join(out, "CICD-README.md"))
}

func TestRunSingleTarget(t *testing.T) {
	opts := baseOptions(t)
	report, err := Run(Request{Options: opts, Targets: []Target{TargetJenkins}})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	out := opts.Output.Value
	assert.FileExists(t, filepath.Join(out, "Jenkinsfile"))
	assert.NoDirExists(t, filepath.Join(out, ".github"))
}

func TestRunManifests(t *testing.T) {
	opts := baseOptions(t)
	report, err := Run(Request{Options: opts, Manifest: true})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	out := opts.Output.Value
	assert.FileExists(t, filepath.Join(out, "k8s", "deployment.yaml"))
	assert.FileExists(t, filepath.Join(out, "k8s", "service.yaml"))
}

func TestRunExplicitManifestsTargetWithoutDeployment(t *testing.T) {
	opts := baseOptions(t)
	opts.Kind = config.String("build")

	report, err := Run(Request{Options: opts, Targets: []Target{TargetManifests}})
	require.NoError(t, err)
	require.Error(t, report.Err())
	assert.ErrorIs(t, report.Err(), errors.ErrUnsupportedTarget)
	assert.NoDirExists(t, filepath.Join(opts.Output.Value, "k8s"))
}

func TestRunManifestsSkippedWithoutDeployStage(t *testing.T) {
	opts := baseOptions(t)
	opts.Kind = config.String("build")

	report, err := Run(Request{Options: opts, Manifest: true})
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.NoDirExists(t, filepath.Join(opts.Output.Value, "k8s"))
}

func TestRunBundle(t *testing.T) {
	opts := baseOptions(t)
	report, err := Run(Request{Options: opts, Bundle: true})
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.FileExists(t, filepath.Join(opts.Output.Value, "cicd-artifacts.tar.xz"))
}

func TestRunConfigErrorIsFatal(t *testing.T) {
	opts := baseOptions(t)
	opts.Kind = config.String("nonsense")

	report, err := Run(Request{Options: opts})
	require.Error(t, err)
	assert.Nil(t, report)

	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRunIsIdempotent(t *testing.T) {
	opts := baseOptions(t)
	workflow := filepath.Join(opts.Output.Value, ".github", "workflows", "sample-complete.yml")

	_, err := Run(Request{Options: opts})
	require.NoError(t, err)
	first, err := os.ReadFile(workflow)
	require.NoError(t, err)

	_, err = Run(Request{Options: opts})
	require.NoError(t, err)
	second, err := os.ReadFile(workflow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
