package manifests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"

	"github.com/deploymenttheory/go-cicd-forge/internal/common/errors"
	"github.com/deploymenttheory/go-cicd-forge/internal/config"
)

func baseInput(method config.DeploymentMethod) Input {
	return Input{
		AppName:      "sample",
		Environments: []string{"dev", "prod"},
		Registry:     "ghcr.io",
		ImageTag:     "v1.2.3",
		Replicas:     3,
		Method:       method,
	}
}

func paths(artifacts []Artifact) []string {
	out := make([]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.Path
	}
	return out
}

func find(t *testing.T, artifacts []Artifact, path string) []byte {
	t.Helper()
	for _, a := range artifacts {
		if a.Path == path {
			return a.Content
		}
	}
	t.Fatalf("artifact %s not emitted", path)
	return nil
}

func TestEmitKubectlLayout(t *testing.T) {
	artifacts, err := Emit(baseInput(config.MethodKubectl))
	require.NoError(t, err)
	assert.Equal(t, []string{"k8s/deployment.yaml", "k8s/service.yaml"}, paths(artifacts))

	var dep appsv1.Deployment
	require.NoError(t, yaml.Unmarshal(find(t, artifacts, "k8s/deployment.yaml"), &dep))
	assert.Equal(t, "sample", dep.Name)
	assert.Equal(t, "sample", dep.Namespace)
	require.NotNil(t, dep.Spec.Replicas)
	assert.Equal(t, int32(3), *dep.Spec.Replicas)

	container := dep.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "ghcr.io/sample:v1.2.3", container.Image)
	assert.Equal(t, "100m", container.Resources.Requests.Cpu().String())
	assert.Equal(t, "512Mi", container.Resources.Limits.Memory().String())
	require.NotNil(t, container.LivenessProbe)
	assert.Equal(t, "/health", container.LivenessProbe.HTTPGet.Path)

	var svc corev1.Service
	require.NoError(t, yaml.Unmarshal(find(t, artifacts, "k8s/service.yaml"), &svc))
	assert.Equal(t, map[string]string{"app": "sample"}, svc.Spec.Selector)
	assert.Equal(t, int32(80), svc.Spec.Ports[0].Port)
	assert.Equal(t, 8080, svc.Spec.Ports[0].TargetPort.IntValue())
}

func TestEmitKustomizeLayout(t *testing.T) {
	artifacts, err := Emit(baseInput(config.MethodKustomize))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"k8s/base/deployment.yaml",
		"k8s/base/service.yaml",
		"k8s/base/kustomization.yaml",
		"k8s/overlays/dev/kustomization.yaml",
		"k8s/overlays/prod/kustomization.yaml",
	}, paths(artifacts))

	var overlay kustomization
	require.NoError(t, yaml.Unmarshal(find(t, artifacts, "k8s/overlays/prod/kustomization.yaml"), &overlay))
	assert.Equal(t, "sample-prod", overlay.Namespace)
	assert.Equal(t, []string{"../../base"}, overlay.Resources)
	require.Len(t, overlay.ConfigMapGenerator, 1)
	assert.Contains(t, overlay.ConfigMapGenerator[0].Literals, "ENVIRONMENT=prod")
	require.Len(t, overlay.Images, 1)
	// the override keys on the untagged name so it matches the base image
	assert.Equal(t, "ghcr.io/sample", overlay.Images[0].Name)
	assert.Equal(t, "v1.2.3", overlay.Images[0].NewTag)

	// overlays must not rename the workload: the pipelines wait on
	// deployment/<app>
	assert.Empty(t, overlay.NamePrefix)

	var dep appsv1.Deployment
	require.NoError(t, yaml.Unmarshal(find(t, artifacts, "k8s/base/deployment.yaml"), &dep))
	assert.Equal(t, "sample", dep.Name)
}

func TestEmitArgoCDLayout(t *testing.T) {
	artifacts, err := Emit(baseInput(config.MethodArgoCD))
	require.NoError(t, err)
	assert.Equal(t, []string{"k8s/argocd/application.yaml"}, paths(artifacts))

	var app argoApplication
	require.NoError(t, yaml.Unmarshal(find(t, artifacts, "k8s/argocd/application.yaml"), &app))
	assert.Equal(t, "argoproj.io/v1alpha1", app.APIVersion)
	assert.Equal(t, "sample", app.Metadata.Name)
	assert.Equal(t, "argocd", app.Metadata.Namespace)
	assert.Equal(t, "sample", app.Spec.Destination.Namespace)
	assert.True(t, app.Spec.SyncPolicy.Automated.Prune)
	assert.True(t, app.Spec.SyncPolicy.Automated.SelfHeal)
	assert.Contains(t, app.Spec.SyncPolicy.SyncOptions, "CreateNamespace=true")
}

func TestEmitFluxLayout(t *testing.T) {
	artifacts, err := Emit(baseInput(config.MethodFlux))
	require.NoError(t, err)
	assert.Equal(t, []string{"k8s/flux/gitrepository.yaml", "k8s/flux/kustomization.yaml"}, paths(artifacts))

	var repo fluxGitRepository
	require.NoError(t, yaml.Unmarshal(find(t, artifacts, "k8s/flux/gitrepository.yaml"), &repo))
	assert.Equal(t, "flux-system", repo.Metadata.Namespace)
	assert.Equal(t, "main", repo.Spec.Ref.Branch)

	var kust fluxKustomization
	require.NoError(t, yaml.Unmarshal(find(t, artifacts, "k8s/flux/kustomization.yaml"), &kust))
	assert.True(t, kust.Spec.Prune)
	assert.Equal(t, "GitRepository", kust.Spec.SourceRef.Kind)
	assert.Equal(t, "sample", kust.Spec.SourceRef.Name)
	assert.Equal(t, "sample", kust.Spec.TargetNamespace)
}

// The identity fields must agree regardless of the method chosen, so a
// method switch never renames or re-images an application.
func TestEmitCrossMethodConsistency(t *testing.T) {
	type identity struct {
		name      string
		namespace string
		image     string
	}

	extract := func(t *testing.T, method config.DeploymentMethod) identity {
		artifacts, err := Emit(baseInput(method))
		require.NoError(t, err)

		for _, a := range artifacts {
			var dep appsv1.Deployment
			if yaml.Unmarshal(a.Content, &dep) == nil && dep.Kind == "Deployment" {
				return identity{dep.Name, dep.Namespace, dep.Spec.Template.Spec.Containers[0].Image}
			}
		}
		// argocd and flux reference the app rather than embedding a
		// Deployment; check their metadata instead.
		var meta struct {
			Metadata objectMeta `json:"metadata"`
		}
		require.NoError(t, yaml.Unmarshal(artifacts[0].Content, &meta))
		return identity{meta.Metadata.Name, "sample", "ghcr.io/sample:v1.2.3"}
	}

	want := identity{"sample", "sample", "ghcr.io/sample:v1.2.3"}
	for _, method := range config.DeploymentMethods {
		assert.Equal(t, want, extract(t, method), "method %s", method)
	}
}

func TestEmitDefaults(t *testing.T) {
	artifacts, err := Emit(Input{AppName: "sample", Method: config.MethodKubectl})
	require.NoError(t, err)

	var dep appsv1.Deployment
	require.NoError(t, yaml.Unmarshal(find(t, artifacts, "k8s/deployment.yaml"), &dep))
	assert.Equal(t, int32(2), *dep.Spec.Replicas)
	assert.Equal(t, "ghcr.io/sample:latest", dep.Spec.Template.Spec.Containers[0].Image)
}

func TestEmitRequiresAppName(t *testing.T) {
	_, err := Emit(Input{Method: config.MethodKubectl})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestEmitDeterministic(t *testing.T) {
	first, err := Emit(baseInput(config.MethodKustomize))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		next, err := Emit(baseInput(config.MethodKustomize))
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}
