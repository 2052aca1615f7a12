// Package jenkins renders a pipeline spec as a declarative Jenkins
// pipeline. Groovy has no stable serializer to lean on, so the document is
// assembled line by line through an indenting writer.
package jenkins

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/deploymenttheory/go-cicd-forge/internal/common/errors"
	"github.com/deploymenttheory/go-cicd-forge/internal/config"
	"github.com/deploymenttheory/go-cicd-forge/internal/pipeline"
)

// Filename is fixed: Jenkins discovers the pipeline by this name at the
// repository root.
const Filename = "Jenkinsfile"

type writer struct {
	b     strings.Builder
	depth int
}

func (w *writer) line(format string, args ...interface{}) {
	w.b.WriteString(strings.Repeat("    ", w.depth))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *writer) blank() {
	w.b.WriteByte('\n')
}

// block opens a braced section, runs body one level deeper and closes it.
func (w *writer) block(header string, body func()) {
	w.line("%s {", header)
	w.depth++
	body()
	w.depth--
	w.line("}")
}

// Emit renders the Jenkinsfile. Identical specs produce identical bytes.
func Emit(spec *pipeline.Spec) (string, error) {
	if spec.Kind == config.KindReusable {
		return "", fmt.Errorf("%w: reusable workflows are a GitHub Actions concern", errors.ErrUnsupportedTarget)
	}

	w := &writer{}
	writeMetadata(w, spec.Passthrough)

	w.block("pipeline", func() {
		writeAgent(w, spec)
		if len(spec.Parameters) > 0 {
			w.blank()
			writeParameters(w, spec)
		}
		w.blank()
		writeEnvironment(w, spec)
		w.blank()
		writeOptions(w)
		w.blank()
		writeStages(w, spec)
		w.blank()
		writePost(w, spec)
	})

	return w.b.String(), nil
}

func writeMetadata(w *writer, passthrough map[string]interface{}) {
	if len(passthrough) == 0 {
		return
	}
	keys := make([]string, 0, len(passthrough))
	for key := range passthrough {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		encoded, err := json.Marshal(passthrough[key])
		if err != nil {
			continue
		}
		w.line("// %s: %s", key, encoded)
	}
	w.blank()
}

func writeAgent(w *writer, spec *pipeline.Spec) {
	w.block("agent", func() {
		w.block("docker", func() {
			w.line("image '%s'", escape(spec.Image))
			w.line("args '-v /var/run/docker.sock:/var/run/docker.sock -u root'")
		})
	})
}

func writeParameters(w *writer, spec *pipeline.Spec) {
	w.block("parameters", func() {
		for _, p := range spec.Parameters {
			switch p.Type {
			case pipeline.ParamBool:
				w.line("booleanParam(name: '%s', defaultValue: %s, description: '%s')",
					p.Name, p.Default, escape(p.Description))
			case pipeline.ParamChoice:
				w.line("choice(name: '%s', choices: [%s], description: '%s')",
					p.Name, quoteList(p.Choices), escape(p.Description))
			case pipeline.ParamString:
				w.line("string(name: '%s', defaultValue: '%s', description: '%s')",
					p.Name, escape(p.Default), escape(p.Description))
			default:
				panic(fmt.Sprintf("jenkins: unhandled parameter type %q", p.Type))
			}
		}
	})
}

// writeEnvironment pins every runtime switch into env so the sh guards can
// read them uniformly whether or not a parameters block exists.
func writeEnvironment(w *writer, spec *pipeline.Spec) {
	params := len(spec.Parameters) > 0

	w.block("environment", func() {
		w.line(`WORKSPACE_DIR = "${WORKSPACE}"`)
		w.line("REGISTRY_URL = %s", paramOrLiteral(params, "REGISTRY_URL", spec.Registry))
		w.line("IMAGE_NAME = %s", paramOrLiteral(params, "IMAGE_NAME", spec.AppName))
		w.line("IMAGE_TAG = %s", paramOrLiteral(params, "IMAGE_TAG", "latest"))

		if spec.Deployment != nil {
			w.line("KUBERNETES_DEPLOY = %s", paramOrLiteral(params, "KUBERNETES_DEPLOY", "true"))
			w.line("K8S_METHOD = %s", paramOrLiteral(params, "K8S_METHOD", string(spec.Deployment.Method)))
			w.line("ENVIRONMENT = %s", paramOrLiteral(params, "ENVIRONMENT", config.Environments[0]))
		}

		for _, lang := range config.SupportedLanguages {
			name := strings.ToUpper(lang) + "_ENABLED"
			w.line("%s = %s", name, paramOrLiteral(params, name, fmt.Sprintf("%t", spec.HasLanguage(lang))))
		}
	})
}

// paramOrLiteral prefers the runtime parameter when one is declared and
// falls back to the resolved value otherwise.
func paramOrLiteral(params bool, name, literal string) string {
	if params {
		return fmt.Sprintf(`"${params.%s ?: '%s'}"`, name, escape(literal))
	}
	return fmt.Sprintf(`"%s"`, literal)
}

func writeOptions(w *writer) {
	w.block("options", func() {
		w.line("timestamps()")
		w.line("timeout(time: 60, unit: 'MINUTES')")
		w.line("buildDiscarder(logRotator(numToKeepStr: '10'))")
		w.line("disableConcurrentBuilds()")
		w.line("ansiColor('xterm')")
	})
}

func writeStages(w *writer, spec *pipeline.Spec) {
	w.block("stages", func() {
		for i, stage := range spec.Stages {
			if i > 0 {
				w.blank()
			}
			if stage.Name == pipeline.StageDeploy {
				writeProductionGate(w)
				w.blank()
				writeDeployStage(w, spec, stage)
				continue
			}
			writeStage(w, spec, stage)
		}
	})
}

func writeStage(w *writer, spec *pipeline.Spec, stage pipeline.Stage) {
	w.block(fmt.Sprintf("stage('%s')", stageTitle(stage.Name)), func() {
		w.block("steps", func() {
			w.line("echo 'Setting up %s environment for %s'", stage.Name, escape(spec.Name))
			for _, s := range stage.Steps {
				writeStep(w, spec, stage.Name, s)
			}
		})
	})
}

func writeStep(w *writer, spec *pipeline.Spec, stageName string, s pipeline.Step) {
	if s.Kind == pipeline.StepArchive {
		writeArchive(w, spec, stageName)
		return
	}

	w.line("sh '''")
	w.depth++
	guards := shellGuards(s)
	if guards == "" {
		for _, cmd := range s.Commands {
			w.line("%s", cmd)
		}
	} else {
		w.line("if %s; then", guards)
		w.depth++
		for _, cmd := range s.Commands {
			w.line("%s", cmd)
		}
		w.depth--
		w.line("fi")
	}
	w.depth--
	w.line("'''")
}

// shellGuards combines the language switch with the marker check so a
// disabled language is skipped even when its marker file is present.
func shellGuards(s pipeline.Step) string {
	var parts []string
	if s.Language != "" {
		parts = append(parts, fmt.Sprintf("[ \"${%s_ENABLED}\" = 'true' ]", strings.ToUpper(s.Language)))
	}
	if s.Marker != "" {
		flag := "-f"
		if s.MarkerIsDir {
			flag = "-d"
		}
		parts = append(parts, fmt.Sprintf("[ %s %s ]", flag, s.Marker))
	}
	return strings.Join(parts, " && ")
}

func writeArchive(w *writer, spec *pipeline.Spec, stageName string) {
	if stageName == pipeline.StageBuild {
		w.line("archiveArtifacts artifacts: '%s**', allowEmptyArchive: true", spec.ArtifactPath)
		return
	}
	w.line("junit allowEmptyResults: true, testResults: '%s**/*.xml'", spec.TestReportPath)
	w.line("archiveArtifacts artifacts: 'coverage.xml, coverage/**', allowEmptyArchive: true")
}

// writeProductionGate pauses the pipeline for manual approval before any
// production rollout.
func writeProductionGate(w *writer) {
	w.block("stage('Approve Production Deploy')", func() {
		w.block("when", func() {
			w.line("expression { env.ENVIRONMENT == 'prod' }")
		})
		w.block("steps", func() {
			w.line("input message: 'Deploy to production?', ok: 'Deploy'")
		})
	})
}

func writeDeployStage(w *writer, spec *pipeline.Spec, stage pipeline.Stage) {
	w.block("stage('Deploy')", func() {
		w.block("when", func() {
			w.line("branch '%s'", escape(mainBranch(spec)))
		})
		w.block("steps", func() {
			w.line("echo 'Setting up deploy environment for %s'", escape(spec.Name))
			writeImagePush(w, spec)
			if spec.Deployment != nil {
				writeKubernetesDeploy(w, spec)
			}
		})
	})
}

func writeImagePush(w *writer, spec *pipeline.Spec) {
	w.block("script", func() {
		w.block(fmt.Sprintf("docker.withRegistry(\"https://${REGISTRY_URL}\", '%s')", escape(spec.Credentials.Registry)), func() {
			w.line(`def image = docker.build("${REGISTRY_URL}/${IMAGE_NAME}:${IMAGE_TAG}")`)
			w.line("image.push()")
		})
	})
}

func writeKubernetesDeploy(w *writer, spec *pipeline.Spec) {
	creds := credentialBindings(spec)
	w.block(fmt.Sprintf("withCredentials([%s])", creds), func() {
		w.line("sh '''")
		w.depth++
		w.line(`if [ "${KUBERNETES_DEPLOY}" = 'true' ]; then`)
		w.depth++
		for _, cmd := range spec.Deployment.Commands {
			w.line("%s", cmd)
		}
		w.depth--
		w.line("fi")
		w.depth--
		w.line("'''")
	})
}

func credentialBindings(spec *pipeline.Spec) string {
	bindings := []string{
		fmt.Sprintf("file(credentialsId: '%s', variable: 'KUBECONFIG')", escape(spec.Credentials.Kubeconfig)),
	}
	if spec.Deployment.Method == config.MethodArgoCD {
		bindings = append(bindings,
			fmt.Sprintf("string(credentialsId: '%s', variable: 'ARGOCD_SERVER')", escape(spec.Credentials.ArgoCDServer)),
			fmt.Sprintf("usernamePassword(credentialsId: '%s', usernameVariable: 'ARGOCD_USERNAME', passwordVariable: 'ARGOCD_PASSWORD')", escape(spec.Credentials.ArgoCD)),
		)
	}
	return strings.Join(bindings, ", ")
}

func writePost(w *writer, spec *pipeline.Spec) {
	w.block("post", func() {
		w.block("always", func() {
			w.line("cleanWs()")
		})
		w.block("success", func() {
			w.line("echo '%s'", escape(spec.Notifications.OnSuccess))
		})
		w.block("failure", func() {
			w.line("echo '%s'", escape(spec.Notifications.OnFailure))
		})
	})
}

func stageTitle(name string) string {
	return strings.ToUpper(name[:1]) + name[1:]
}

func mainBranch(spec *pipeline.Spec) string {
	if len(spec.Branches) > 0 {
		return spec.Branches[0]
	}
	return "main"
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + escape(v) + "'"
	}
	return strings.Join(quoted, ", ")
}

// escape makes a value safe inside a single-quoted Groovy string. Config
// and overlay text flows into the Jenkinsfile verbatim otherwise, and one
// apostrophe would break the whole document.
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
