package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-cicd-forge/internal/artifact"
	"github.com/deploymenttheory/go-cicd-forge/internal/config"
	"github.com/deploymenttheory/go-cicd-forge/internal/emit/manifests"
	"github.com/deploymenttheory/go-cicd-forge/internal/logger"
)

var manifestsCmd = &cobra.Command{
	Use:   "manifests",
	Short: "Generate Kubernetes deployment manifests",
	Long: `Generate Kubernetes manifests for the chosen deployment method:
plain kubectl manifests, a kustomize base with per-environment overlays, an
ArgoCD application, or Flux sync objects.`,
	RunE: runManifests,
}

func init() {
	f := manifestsCmd.Flags()

	f.String("app-name", "", "Application name (required)")
	f.String("namespace", "", "Target namespace (defaults to the app name)")
	f.String("environments", "", "Comma-separated environments for kustomize overlays")
	f.String("method", string(config.MethodKubectl), "Deployment method: kubectl, kustomize, argocd or flux")
	f.String("registry", "", "Container registry URL")
	f.String("image-tag", "", "Container image tag")
	f.Int32("replicas", 0, "Replica count")
	f.String("repo-url", "", "Git repository URL for ArgoCD and Flux sources")
	f.StringP("output", "o", ".", "Output directory")

	manifestsCmd.MarkFlagRequired("app-name")
	rootCmd.AddCommand(manifestsCmd)
}

func runManifests(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()

	in := manifests.Input{}
	in.AppName, _ = f.GetString("app-name")
	in.Namespace, _ = f.GetString("namespace")
	in.Registry, _ = f.GetString("registry")
	in.ImageTag, _ = f.GetString("image-tag")
	in.Replicas, _ = f.GetInt32("replicas")
	in.RepoURL, _ = f.GetString("repo-url")

	method, _ := f.GetString("method")
	in.Method = config.DeploymentMethod(method)

	if envs, _ := f.GetString("environments"); envs != "" {
		for _, env := range strings.Split(envs, ",") {
			if env = strings.TrimSpace(env); env != "" {
				in.Environments = append(in.Environments, env)
			}
		}
	}

	artifacts, err := manifests.Emit(in)
	if err != nil {
		logger.LogError("Manifest generation failed", err, map[string]interface{}{
			"method": method,
		})
		return err
	}

	output, _ := f.GetString("output")
	writer := artifact.NewWriter(output)
	for _, a := range artifacts {
		if _, err := writer.Write(a.Path, a.Content); err != nil {
			logger.LogError("Manifest write failed", err, nil)
			return err
		}
		logger.LogInfo("Manifest written", map[string]interface{}{"path": a.Path})
	}

	return nil
}
