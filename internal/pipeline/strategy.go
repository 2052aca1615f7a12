package pipeline

import (
	"fmt"

	"github.com/deploymenttheory/go-cicd-forge/internal/config"
)

// deploymentCommands returns the ordered rollout command list for a
// deployment method. The switch is exhaustive over the closed enum; the
// resolver has already rejected anything else, so the default branch is a
// defect, not a user error.
func deploymentCommands(method config.DeploymentMethod, appName string) []string {
	switch method {
	case config.MethodKubectl:
		return []string{
			"kubectl apply -f ./k8s/deployment.yaml",
			"kubectl apply -f ./k8s/service.yaml",
			fmt.Sprintf("kubectl rollout status deployment/%s", appName),
		}
	case config.MethodKustomize:
		return []string{
			"kubectl apply -k ./k8s/overlays/${ENVIRONMENT}",
			fmt.Sprintf("kubectl rollout status deployment/%s", appName),
		}
	case config.MethodArgoCD:
		return []string{
			"argocd login $ARGOCD_SERVER --username $ARGOCD_USERNAME --password $ARGOCD_PASSWORD --insecure",
			fmt.Sprintf("argocd app sync %s", appName),
			fmt.Sprintf("argocd app wait %s --health", appName),
		}
	case config.MethodFlux:
		return []string{
			"flux reconcile source git flux-system",
			"flux reconcile kustomization flux-system",
		}
	}
	panic(fmt.Sprintf("pipeline: unhandled deployment method %q", method))
}
