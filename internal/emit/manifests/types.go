package manifests

// The kustomize, ArgoCD and Flux documents are plain configuration files
// rather than cluster objects, so they get small local types instead of an
// SDK dependency per tool. JSON tags drive sigs.k8s.io/yaml.

type objectMeta struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

type kustomization struct {
	APIVersion         string               `json:"apiVersion"`
	Kind               string               `json:"kind"`
	Namespace          string               `json:"namespace,omitempty"`
	NamePrefix         string               `json:"namePrefix,omitempty"`
	Resources          []string             `json:"resources"`
	ConfigMapGenerator []configMapGenerator `json:"configMapGenerator,omitempty"`
	Images             []imageOverride      `json:"images,omitempty"`
}

type configMapGenerator struct {
	Name     string   `json:"name"`
	Literals []string `json:"literals"`
}

type imageOverride struct {
	Name   string `json:"name"`
	NewTag string `json:"newTag"`
}

type argoApplication struct {
	APIVersion string              `json:"apiVersion"`
	Kind       string              `json:"kind"`
	Metadata   objectMeta          `json:"metadata"`
	Spec       argoApplicationSpec `json:"spec"`
}

type argoApplicationSpec struct {
	Project     string          `json:"project"`
	Source      argoSource      `json:"source"`
	Destination argoDestination `json:"destination"`
	SyncPolicy  argoSyncPolicy  `json:"syncPolicy"`
}

type argoSource struct {
	RepoURL        string `json:"repoURL"`
	TargetRevision string `json:"targetRevision"`
	Path           string `json:"path"`
}

type argoDestination struct {
	Server    string `json:"server"`
	Namespace string `json:"namespace"`
}

type argoSyncPolicy struct {
	Automated   argoAutomated `json:"automated"`
	SyncOptions []string      `json:"syncOptions,omitempty"`
}

type argoAutomated struct {
	Prune    bool `json:"prune"`
	SelfHeal bool `json:"selfHeal"`
}

type fluxGitRepository struct {
	APIVersion string                `json:"apiVersion"`
	Kind       string                `json:"kind"`
	Metadata   objectMeta            `json:"metadata"`
	Spec       fluxGitRepositorySpec `json:"spec"`
}

type fluxGitRepositorySpec struct {
	Interval string     `json:"interval"`
	URL      string     `json:"url"`
	Ref      fluxGitRef `json:"ref"`
}

type fluxGitRef struct {
	Branch string `json:"branch"`
}

type fluxKustomization struct {
	APIVersion string                `json:"apiVersion"`
	Kind       string                `json:"kind"`
	Metadata   objectMeta            `json:"metadata"`
	Spec       fluxKustomizationSpec `json:"spec"`
}

type fluxKustomizationSpec struct {
	Interval        string        `json:"interval"`
	Path            string        `json:"path"`
	Prune           bool          `json:"prune"`
	SourceRef       fluxSourceRef `json:"sourceRef"`
	TargetNamespace string        `json:"targetNamespace,omitempty"`
}

type fluxSourceRef struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}
