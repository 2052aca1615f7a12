// Package manifests renders Kubernetes deployment manifests for each
// supported deployment method. Objects are built with the typed Kubernetes
// API structs and serialized through sigs.k8s.io/yaml, which sorts keys, so
// output is deterministic.
package manifests

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/yaml"

	forgeerrors "github.com/deploymenttheory/go-cicd-forge/internal/common/errors"
	"github.com/deploymenttheory/go-cicd-forge/internal/config"
)

const (
	containerPort = 8080
	servicePort   = 80
	probePath     = "/health"
	readyPath     = "/ready"
)

// Input carries everything the manifest layouts need. AppName, Registry and
// ImageTag must agree with the pipeline artifacts generated alongside.
type Input struct {
	AppName      string
	Namespace    string
	Environments []string
	Registry     string
	ImageTag     string
	Replicas     int32
	Method       config.DeploymentMethod
	RepoURL      string
}

// Artifact is one rendered manifest file, addressed relative to the output
// root.
type Artifact struct {
	Path    string
	Content []byte
}

// Emit renders the manifest set for the input's deployment method.
func Emit(in Input) ([]Artifact, error) {
	if in.AppName == "" {
		return nil, fmt.Errorf("%w: app name is required", forgeerrors.ErrInvalidArgument)
	}
	in = withDefaults(in)

	switch in.Method {
	case config.MethodKubectl:
		return kubectlLayout(in)
	case config.MethodKustomize:
		return kustomizeLayout(in)
	case config.MethodArgoCD:
		return argocdLayout(in)
	case config.MethodFlux:
		return fluxLayout(in)
	default:
		return nil, fmt.Errorf("%w: unknown deployment method %q", forgeerrors.ErrUnsupportedTarget, in.Method)
	}
}

func withDefaults(in Input) Input {
	if in.Namespace == "" {
		in.Namespace = in.AppName
	}
	if len(in.Environments) == 0 {
		in.Environments = config.Environments
	}
	if in.Registry == "" {
		in.Registry = config.DefaultRegistry
	}
	if in.ImageTag == "" {
		in.ImageTag = "latest"
	}
	if in.Replicas == 0 {
		in.Replicas = 2
	}
	if in.RepoURL == "" {
		in.RepoURL = fmt.Sprintf("https://github.com/ORGANIZATION/%s.git", in.AppName)
	}
	return in
}

// imageName is the registry-qualified image without a tag; kustomize image
// overrides match on this form.
func (in Input) imageName() string {
	return fmt.Sprintf("%s/%s", in.Registry, in.AppName)
}

func (in Input) imageRef() string {
	return in.imageName() + ":" + in.ImageTag
}

func kubectlLayout(in Input) ([]Artifact, error) {
	return render(
		artifactSpec{"k8s/deployment.yaml", deployment(in)},
		artifactSpec{"k8s/service.yaml", service(in)},
	)
}

func kustomizeLayout(in Input) ([]Artifact, error) {
	specs := []artifactSpec{
		{"k8s/base/deployment.yaml", deployment(in)},
		{"k8s/base/service.yaml", service(in)},
		{"k8s/base/kustomization.yaml", kustomization{
			APIVersion: "kustomize.config.k8s.io/v1beta1",
			Kind:       "Kustomization",
			Resources:  []string{"deployment.yaml", "service.yaml"},
		}},
	}
	// Overlays keep the workload name untouched: the generated pipelines
	// wait on deployment/<app>, so a name prefix would break the rollout
	// step. The image override matches on the untagged name, which is how
	// kustomize keys images[].
	for _, env := range in.Environments {
		specs = append(specs, artifactSpec{
			fmt.Sprintf("k8s/overlays/%s/kustomization.yaml", env),
			kustomization{
				APIVersion: "kustomize.config.k8s.io/v1beta1",
				Kind:       "Kustomization",
				Namespace:  fmt.Sprintf("%s-%s", in.AppName, env),
				Resources:  []string{"../../base"},
				ConfigMapGenerator: []configMapGenerator{{
					Name:     in.AppName + "-config",
					Literals: []string{"ENVIRONMENT=" + env},
				}},
				Images: []imageOverride{{
					Name:   in.imageName(),
					NewTag: in.ImageTag,
				}},
			},
		})
	}
	return render(specs...)
}

func argocdLayout(in Input) ([]Artifact, error) {
	return render(artifactSpec{"k8s/argocd/application.yaml", argoApplication{
		APIVersion: "argoproj.io/v1alpha1",
		Kind:       "Application",
		Metadata: objectMeta{
			Name:      in.AppName,
			Namespace: "argocd",
		},
		Spec: argoApplicationSpec{
			Project: "default",
			Source: argoSource{
				RepoURL:        in.RepoURL,
				TargetRevision: "HEAD",
				Path:           "k8s",
			},
			Destination: argoDestination{
				Server:    "https://kubernetes.default.svc",
				Namespace: in.Namespace,
			},
			SyncPolicy: argoSyncPolicy{
				Automated:   argoAutomated{Prune: true, SelfHeal: true},
				SyncOptions: []string{"CreateNamespace=true"},
			},
		},
	}})
}

func fluxLayout(in Input) ([]Artifact, error) {
	return render(
		artifactSpec{"k8s/flux/gitrepository.yaml", fluxGitRepository{
			APIVersion: "source.toolkit.fluxcd.io/v1beta2",
			Kind:       "GitRepository",
			Metadata: objectMeta{
				Name:      in.AppName,
				Namespace: "flux-system",
			},
			Spec: fluxGitRepositorySpec{
				Interval: "1m",
				URL:      in.RepoURL,
				Ref:      fluxGitRef{Branch: "main"},
			},
		}},
		artifactSpec{"k8s/flux/kustomization.yaml", fluxKustomization{
			APIVersion: "kustomize.toolkit.fluxcd.io/v1beta2",
			Kind:       "Kustomization",
			Metadata: objectMeta{
				Name:      in.AppName,
				Namespace: "flux-system",
			},
			Spec: fluxKustomizationSpec{
				Interval:        "5m",
				Path:            "./k8s",
				Prune:           true,
				TargetNamespace: in.Namespace,
				SourceRef: fluxSourceRef{
					Kind: "GitRepository",
					Name: in.AppName,
				},
			},
		}},
	)
}

// deployment and service are shared by the kubectl and kustomize layouts so
// the app name, namespace and image reference stay consistent across
// methods.
func deployment(in Input) *appsv1.Deployment {
	labels := map[string]string{"app": in.AppName}
	replicas := in.Replicas

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      in.AppName,
			Namespace: in.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  in.AppName,
						Image: in.imageRef(),
						Ports: []corev1.ContainerPort{{ContainerPort: containerPort}},
						Resources: corev1.ResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceCPU:    resource.MustParse("100m"),
								corev1.ResourceMemory: resource.MustParse("128Mi"),
							},
							Limits: corev1.ResourceList{
								corev1.ResourceCPU:    resource.MustParse("500m"),
								corev1.ResourceMemory: resource.MustParse("512Mi"),
							},
						},
						LivenessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{
								HTTPGet: &corev1.HTTPGetAction{
									Path: probePath,
									Port: intstr.FromInt(containerPort),
								},
							},
							InitialDelaySeconds: 15,
							PeriodSeconds:       20,
						},
						ReadinessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{
								HTTPGet: &corev1.HTTPGetAction{
									Path: readyPath,
									Port: intstr.FromInt(containerPort),
								},
							},
							InitialDelaySeconds: 5,
							PeriodSeconds:       10,
						},
					}},
				},
			},
		},
	}
}

func service(in Input) *corev1.Service {
	labels := map[string]string{"app": in.AppName}

	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      in.AppName,
			Namespace: in.Namespace,
			Labels:    labels,
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: labels,
			Ports: []corev1.ServicePort{{
				Port:       servicePort,
				TargetPort: intstr.FromInt(containerPort),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}
}

type artifactSpec struct {
	path string
	obj  interface{}
}

func render(specs ...artifactSpec) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(specs))
	for _, s := range specs {
		content, err := yaml.Marshal(s.obj)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", forgeerrors.ErrEmitFailed, s.path, err)
		}
		artifacts = append(artifacts, Artifact{Path: s.path, Content: content})
	}
	return artifacts, nil
}
