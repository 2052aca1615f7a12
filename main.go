package main

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-cicd-forge/cmd"
	"github.com/deploymenttheory/go-cicd-forge/internal/config"
	"github.com/deploymenttheory/go-cicd-forge/internal/logger"
)

func main() {
	// Get tool configuration file from environment if specified
	configFile := os.Getenv("FORGE_CONFIG")

	// 1. Initialize application configuration
	if err := config.Initialize(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logging based on application configuration
	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	// 3. The environment binding table is static; a clash is a programming
	// error, so fail loudly before any command runs.
	if err := config.ValidateEnvBindings(); err != nil {
		logger.LogError("Invalid environment variable bindings", err, nil)
		os.Exit(1)
	}

	err := cmd.Execute()

	// Ensure logs are flushed before exit
	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

// initLogging initializes the logger based on configuration settings
func initLogging() error {
	logConfig := logger.LoggerConfig{
		Debug:     config.Instance.Debug,
		LogFormat: config.Instance.LogFormat,
		LogFile:   config.Instance.LogFile,
	}

	return logger.InitLogger(logConfig)
}
