package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-cicd-forge/internal/config"
	"github.com/deploymenttheory/go-cicd-forge/internal/generate"
	"github.com/deploymenttheory/go-cicd-forge/internal/logger"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate CI/CD pipeline configurations",
	Long: `Generate GitHub Actions workflows and Jenkins pipelines from the
resolved configuration. With no target flag both are generated; a failed
target does not discard the artifacts of the other one.

Configuration precedence, highest first: explicit flags, FORGE_GHA_* and
FORGE_JENKINS_* environment variables, the custom values file, the
devcontainer environment file, built-in defaults.`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()

	f.String("name", "", "Pipeline name")
	f.String("type", "", "Pipeline type: build, test, deploy, complete, reusable or parameterized")
	f.String("languages", "", "Comma-separated languages: python, java, javascript, go")
	f.Bool("kubernetes", false, "Enable Kubernetes deployment")
	f.String("k8s-method", "", "Deployment method: kubectl, kustomize, argocd or flux")
	f.String("registry", "", "Container registry URL")
	f.String("image", "", "Container image for CI jobs")
	f.String("branches", "", "Comma-separated trigger branches")
	f.Bool("matrix", false, "Enable matrix builds (GitHub Actions only)")
	f.Bool("parameters", false, "Enable runtime parameters (Jenkins only)")
	f.StringP("output", "o", "", "Output directory")

	f.Bool("github", false, "Generate the GitHub Actions workflow only")
	f.Bool("jenkins", false, "Generate the Jenkinsfile only")
	f.Bool("manifests", false, "Also generate Kubernetes manifests")
	f.Bool("bundle", false, "Pack generated artifacts into a tar.xz bundle")
	f.String("env-file", "", "Devcontainer environment file (JSON with comments)")
	f.String("custom-values", "", "Custom values overlay file (JSON)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	req := generate.Request{
		Options: gatherOptions(cmd),
		Targets: gatherTargets(cmd),
	}
	req.EnvFile, _ = cmd.Flags().GetString("env-file")
	req.Overlay, _ = cmd.Flags().GetString("custom-values")
	req.Bundle, _ = cmd.Flags().GetBool("bundle")
	req.Manifest, _ = cmd.Flags().GetBool("manifests")

	report, err := generate.Run(req)
	if err != nil {
		logger.LogError("Configuration could not be resolved", err, nil)
		return err
	}

	for _, path := range report.Paths() {
		logger.LogInfo("Artifact written", map[string]interface{}{"path": path})
	}

	if err := report.Err(); err != nil {
		logger.LogError("Generation completed with failures", err, map[string]interface{}{
			"written": len(report.Paths()),
		})
		return err
	}

	logger.LogInfo("Generation complete", map[string]interface{}{
		"pipeline": report.Config.Name,
		"kind":     report.Config.Kind,
	})
	return nil
}

// gatherOptions converts flags into resolver options. Only flags the user
// actually passed are marked set; everything else falls through to the
// lower-precedence sources.
func gatherOptions(cmd *cobra.Command) config.Options {
	var opts config.Options
	f := cmd.Flags()

	if f.Changed("name") {
		v, _ := f.GetString("name")
		opts.Name = config.String(v)
	}
	if f.Changed("type") {
		v, _ := f.GetString("type")
		opts.Kind = config.String(v)
	}
	if f.Changed("languages") {
		v, _ := f.GetString("languages")
		opts.Languages = config.String(v)
	}
	if f.Changed("kubernetes") {
		v, _ := f.GetBool("kubernetes")
		opts.Kubernetes = config.Bool(v)
	}
	if f.Changed("k8s-method") {
		v, _ := f.GetString("k8s-method")
		opts.Method = config.String(v)
	}
	if f.Changed("registry") {
		v, _ := f.GetString("registry")
		opts.Registry = config.String(v)
	}
	if f.Changed("image") {
		v, _ := f.GetString("image")
		opts.Image = config.String(v)
	}
	if f.Changed("branches") {
		v, _ := f.GetString("branches")
		opts.Branches = config.String(v)
	}
	if f.Changed("matrix") {
		v, _ := f.GetBool("matrix")
		opts.Matrix = config.Bool(v)
	}
	if f.Changed("parameters") {
		v, _ := f.GetBool("parameters")
		opts.Parameters = config.Bool(v)
	}
	if f.Changed("output") {
		v, _ := f.GetString("output")
		opts.Output = config.String(v)
	}

	return opts
}

func gatherTargets(cmd *cobra.Command) []generate.Target {
	github, _ := cmd.Flags().GetBool("github")
	jenkins, _ := cmd.Flags().GetBool("jenkins")

	var targets []generate.Target
	if github {
		targets = append(targets, generate.TargetGitHub)
	}
	if jenkins {
		targets = append(targets, generate.TargetJenkins)
	}
	// no flag means both
	return targets
}
