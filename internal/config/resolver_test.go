package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(Options{}, "", "")
	require.NoError(t, err)

	assert.Equal(t, DefaultName, cfg.Name)
	assert.Equal(t, KindComplete, cfg.Kind)
	assert.Equal(t, []string{"python", "javascript"}, cfg.Languages)
	assert.False(t, cfg.KubernetesEnabled)
	assert.Equal(t, MethodKubectl, cfg.DeploymentMethod)
	assert.Equal(t, DefaultRegistry, cfg.Registry)
	assert.Equal(t, []string{"main"}, cfg.Branches)
	assert.False(t, cfg.MatrixEnabled)
	assert.False(t, cfg.ParametersEnabled)
}

func TestResolvePrecedenceChain(t *testing.T) {
	overlay := writeTempFile(t, "values.json", `{"container_image": "overlay.example/app:1"}`)
	envFile := writeTempFile(t, "devcontainer.env.json", `{
  "languages": {"python": false, "java": true, "javascript": false, "go": true}
}`)

	// Lowest source wins only when everything above is silent.
	cfg, err := Resolve(Options{}, envFile, overlay)
	require.NoError(t, err)
	assert.Equal(t, "overlay.example/app:1", cfg.Image)
	assert.Equal(t, []string{"java", "go"}, cfg.Languages)

	// Environment beats overlay and env file.
	t.Setenv("FORGE_GHA_IMAGE", "env.example/app:2")
	t.Setenv("FORGE_GHA_LANGUAGES", "go")
	cfg, err = Resolve(Options{}, envFile, overlay)
	require.NoError(t, err)
	assert.Equal(t, "env.example/app:2", cfg.Image)
	assert.Equal(t, []string{"go"}, cfg.Languages)

	// Explicit options beat everything.
	opts := Options{Image: String("cli.example/app:3"), Languages: String("python")}
	cfg, err = Resolve(opts, envFile, overlay)
	require.NoError(t, err)
	assert.Equal(t, "cli.example/app:3", cfg.Image)
	assert.Equal(t, []string{"python"}, cfg.Languages)
}

func TestResolveExplicitFlagBeatsEnvVar(t *testing.T) {
	t.Setenv("FORGE_GHA_KUBERNETES", "true")

	cfg, err := Resolve(Options{Kubernetes: Bool(false)}, "", "")
	require.NoError(t, err)
	assert.False(t, cfg.KubernetesEnabled, "explicit option must override a conflicting env var")

	cfg, err = Resolve(Options{}, "", "")
	require.NoError(t, err)
	assert.True(t, cfg.KubernetesEnabled)
}

func TestResolveBooleanEnvSpellings(t *testing.T) {
	for _, spelling := range []string{"true", "TRUE", "1", "yes", "Yes"} {
		t.Setenv("FORGE_GHA_MATRIX", spelling)
		cfg, err := Resolve(Options{}, "", "")
		require.NoError(t, err, "spelling %q", spelling)
		assert.True(t, cfg.MatrixEnabled, "spelling %q", spelling)
	}

	t.Setenv("FORGE_GHA_MATRIX", "definitely")
	_, err := Resolve(Options{}, "", "")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "matrix", cfgErr.Field)
	assert.Equal(t, "FORGE_GHA_MATRIX", cfgErr.Source)
}

func TestResolveUnsetBoolIsNotFalse(t *testing.T) {
	// An absent env var must fall through, not force false.
	envFile := writeTempFile(t, "devcontainer.env.json", `{"languages": {"go": true}}`)
	cfg, err := Resolve(Options{}, envFile, "")
	require.NoError(t, err)
	assert.False(t, cfg.KubernetesEnabled)

	t.Setenv("FORGE_JENKINS_KUBERNETES", "true")
	cfg, err = Resolve(Options{}, envFile, "")
	require.NoError(t, err)
	assert.True(t, cfg.KubernetesEnabled)
}

func TestResolveTargetScopedVariables(t *testing.T) {
	// Matrix listens only on the GitHub prefix, parameters only on Jenkins.
	t.Setenv("FORGE_JENKINS_MATRIX", "true")
	t.Setenv("FORGE_GHA_PARAMETERS", "true")
	cfg, err := Resolve(Options{}, "", "")
	require.NoError(t, err)
	assert.False(t, cfg.MatrixEnabled)
	assert.False(t, cfg.ParametersEnabled)

	t.Setenv("FORGE_GHA_MATRIX", "true")
	t.Setenv("FORGE_JENKINS_PARAMETERS", "true")
	cfg, err = Resolve(Options{}, "", "")
	require.NoError(t, err)
	assert.True(t, cfg.MatrixEnabled)
	assert.True(t, cfg.ParametersEnabled)
}

func TestResolveLanguageListSplitAndDedup(t *testing.T) {
	cfg, err := Resolve(Options{Languages: String("go, python,go,python")}, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "python"}, cfg.Languages)
}

func TestResolveRejectsUnknownLanguage(t *testing.T) {
	_, err := Resolve(Options{Languages: String("python,rust")}, "", "")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "languages", cfgErr.Field)
}

func TestResolveRejectsUnknownEnums(t *testing.T) {
	_, err := Resolve(Options{Kind: String("release")}, "", "")
	require.Error(t, err)

	_, err = Resolve(Options{Method: String("helm")}, "", "")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "deployment_method", cfgErr.Field)
}

func TestResolveMissingReferencedFiles(t *testing.T) {
	_, err := Resolve(Options{}, filepath.Join(t.TempDir(), "missing.json"), "")
	require.Error(t, err)

	_, err = Resolve(Options{}, "", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestResolveEnvFileWithComments(t *testing.T) {
	envFile := writeTempFile(t, "devcontainer.env.json", `// devcontainer settings
{
  // enabled languages
  "languages": {"python": true, "go": true},
  "code_analysis": {"pylint": false}
}`)

	cfg, err := Resolve(Options{}, envFile, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "go"}, cfg.Languages)
	assert.False(t, cfg.CodeAnalysis["pylint"])
	assert.True(t, cfg.CodeAnalysis["eslint"])
}

func TestResolveOverlayPreserved(t *testing.T) {
	overlay := writeTempFile(t, "values.json", `{
  "build": {"artifact_path": "out/"},
  "custom_section": {"anything": 1}
}`)

	cfg, err := Resolve(Options{}, "", overlay)
	require.NoError(t, err)
	require.Contains(t, cfg.Overlay, "build")
	require.Contains(t, cfg.Overlay, "custom_section")
}

func TestValidateEnvBindings(t *testing.T) {
	require.NoError(t, ValidateEnvBindings())
}
