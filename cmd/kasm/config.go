package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// projectConfig is the optional `kasm.yaml`/`kasm.yml` project file the
// driver merges under explicit flags: include directories and a default
// comment string (spec §6 lists only
// the flags; this is driver-side convenience, not part of the core
// Assembler's contract).
type projectConfig struct {
	IncludeDirs []string `yaml:"include_dirs"`
	Comment     string   `yaml:"comment"`
}

// loadProjectConfig looks for kasm.yaml (then kasm.yml) next to inPath and
// in the current working directory, returning a zero-value projectConfig
// if neither exists.
func loadProjectConfig(inPath string) (projectConfig, error) {
	var cfg projectConfig
	dirs := []string{filepath.Dir(inPath), "."}
	names := []string{"kasm.yaml", "kasm.yml"}
	for _, dir := range dirs {
		for _, name := range names {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
	}
	return cfg, nil
}

// mergeIncludes places flag-supplied include directories before the
// project config's, so repeated `-i` flags take precedence in search
// order without discarding the config's defaults.
func mergeIncludes(cfg *projectConfig, flagDirs includeDirs) {
	cfg.IncludeDirs = append(append([]string(nil), []string(flagDirs)...), cfg.IncludeDirs...)
}
