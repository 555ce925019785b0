package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "deployer"
	defaultConfigFile    = "config.yaml"
	defaultEnvFile       = ".env"
)

func DefaultConfigPath() string {
	if env := os.Getenv("DEPLOYER_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".deployer", defaultConfigFile)
}

// InstallRoot is the directory holding the deployer binary, unless
// DEPLOYER_HOME points elsewhere.
func InstallRoot() string {
	if env := os.Getenv("DEPLOYER_HOME"); env != "" {
		return env
	}
	exe, err := os.Executable()
	if err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".deployer")
}

// DefaultEnvFilePath is where the credential bootstrap writes its .env file.
func DefaultEnvFilePath() string {
	return filepath.Join(InstallRoot(), defaultEnvFile)
}
