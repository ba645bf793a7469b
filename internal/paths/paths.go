package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "enaimport"

type Paths struct {
	ConfigDir string
	DataDir   string
	CacheDir  string
	StateDir  string
}

// GetPaths returns all base paths respecting environment variables
func GetPaths() Paths {
	return Paths{
		ConfigDir: getDir("ENAIMPORT_CONFIG_HOME", "XDG_CONFIG_HOME", ".config"),
		DataDir:   getDir("ENAIMPORT_DATA_HOME", "XDG_DATA_HOME", ".local/share"),
		CacheDir:  getDir("ENAIMPORT_CACHE_HOME", "XDG_CACHE_HOME", ".cache"),
		StateDir:  getDir("ENAIMPORT_STATE_HOME", "XDG_STATE_HOME", ".local/state"),
	}
}

func getDir(appEnv, xdgEnv, defaultBase string) string {
	// 1. Check app-specific env
	if dir := os.Getenv(appEnv); dir != "" {
		return dir
	}

	// 2. Check XDG env
	if xdgBase := os.Getenv(xdgEnv); xdgBase != "" {
		return filepath.Join(xdgBase, appName)
	}

	// 3. Use default
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultBase, appName)
}

// GetRunStorePath returns the path to the pipeline run database
func GetRunStorePath() string {
	if path := os.Getenv("ENAIMPORT_RUNSTORE_PATH"); path != "" {
		return path
	}
	return filepath.Join(GetPaths().StateDir, "runs.db")
}

// GetArtifactsPath returns the directory for failed and suppressed accession lists
func GetArtifactsPath() string {
	if path := os.Getenv("ENAIMPORT_ARTIFACTS_PATH"); path != "" {
		return path
	}
	return filepath.Join(GetPaths().DataDir, "artifacts")
}

// GetMirrorPath returns the path to a local ERAPRO mirror
func GetMirrorPath() string {
	if path := os.Getenv("ENAIMPORT_MIRROR_PATH"); path != "" {
		return path
	}
	return filepath.Join(GetPaths().DataDir, "erapro.db")
}

// EnsureDirectories creates all necessary directories
func EnsureDirectories() error {
	paths := GetPaths()
	dirs := []string{
		paths.ConfigDir,
		paths.DataDir,
		paths.StateDir,
		GetArtifactsPath(),
		filepath.Dir(GetRunStorePath()),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
