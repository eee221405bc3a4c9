package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/tyemirov/ctxtree/internal/utils"
)

const (
	errorWorkingDirectoryFormat    = "determine working directory: %w"
	errorResolveConfigPathFormat   = "resolve configuration path %s: %w"
	errorStatConfigurationFormat   = "stat configuration %s: %w"
	errorConfigurationIsDirFormat  = "configuration path %s is a directory"
	errorReadConfigurationFormat   = "read configuration from %s: %w"
	errorDecodeConfigurationFormat = "decode configuration from %s: %w"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds command-specific configuration defaults.
type ApplicationConfiguration struct {
	Tree TreeConfiguration `mapstructure:"tree"`
}

// TreeConfiguration defines the defaults of the tree command. Unset values
// stay nil or empty so that later sources and flags can tell them apart.
type TreeConfiguration struct {
	Format           string                  `mapstructure:"format"`
	Mode             string                  `mapstructure:"mode"`
	Summary          *bool                   `mapstructure:"summary"`
	Limits           LimitsConfiguration     `mapstructure:"limits"`
	Heuristics       HeuristicsConfiguration `mapstructure:"heuristics"`
	Workers          *int                    `mapstructure:"workers"`
	OperationTimeout string                  `mapstructure:"operation_timeout"`
	ListFiles        *bool                   `mapstructure:"list_files"`
	Clipboard        *bool                   `mapstructure:"clipboard"`
	Tokens           TokenConfiguration      `mapstructure:"tokens"`
	Paths            PathConfiguration       `mapstructure:"paths"`
}

// LimitsConfiguration bounds the size of a summary.
type LimitsConfiguration struct {
	MaxTotalDescendants *int `mapstructure:"max_total_descendants"`
	MaxDirectChildren   *int `mapstructure:"max_direct_children"`
}

// HeuristicsConfiguration tunes the truncation policy.
type HeuristicsConfiguration struct {
	DominantShare        *float64 `mapstructure:"dominant_share"`
	MinimumDominantShare *float64 `mapstructure:"minimum_dominant_share"`
	HeadShare            *float64 `mapstructure:"head_share"`
	CountCap             *int     `mapstructure:"count_cap"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// PathConfiguration configures inclusion and exclusion rules for path traversal.
type PathConfiguration struct {
	Exclude       []string `mapstructure:"exclude"`
	UseGitignore  *bool    `mapstructure:"use_gitignore"`
	UseIgnoreFile *bool    `mapstructure:"use_ignore"`
	IncludeGit    *bool    `mapstructure:"include_git"`
	IncludeBinary *bool    `mapstructure:"include_binary"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
// The global file lives at ~/.ctxtree/config.yaml; the local file is
// ExplicitFilePath when set, otherwise .ctxtree.yaml in the working directory.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf(errorWorkingDirectoryFormat, err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if globalPath := GlobalConfigurationPath(); globalPath != "" {
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	merged.Tree.Paths.Exclude = utils.DeduplicatePatterns(merged.Tree.Paths.Exclude)

	return merged, nil
}

// GlobalConfigurationPath returns the global configuration file path, or an
// empty string when the home directory is unknown.
func GlobalConfigurationPath() string {
	homeDirectory, err := os.UserHomeDir()
	if err != nil || homeDirectory == "" {
		return ""
	}
	return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf(errorResolveConfigPathFormat, explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf(errorStatConfigurationFormat, path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf(errorConfigurationIsDirFormat, path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf(errorReadConfigurationFormat, path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf(errorDecodeConfigurationFormat, path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Tree = result.Tree.merge(override.Tree)
	return result
}

func (config TreeConfiguration) merge(override TreeConfiguration) TreeConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Mode != "" {
		result.Mode = override.Mode
	}
	if override.Summary != nil {
		result.Summary = cloneBool(override.Summary)
	}
	result.Limits = result.Limits.merge(override.Limits)
	result.Heuristics = result.Heuristics.merge(override.Heuristics)
	if override.Workers != nil {
		result.Workers = cloneInt(override.Workers)
	}
	if override.OperationTimeout != "" {
		result.OperationTimeout = override.OperationTimeout
	}
	if override.ListFiles != nil {
		result.ListFiles = cloneBool(override.ListFiles)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	result.Tokens = result.Tokens.merge(override.Tokens)
	result.Paths = result.Paths.merge(override.Paths)
	return result
}

func (config LimitsConfiguration) merge(override LimitsConfiguration) LimitsConfiguration {
	result := config
	if override.MaxTotalDescendants != nil {
		result.MaxTotalDescendants = cloneInt(override.MaxTotalDescendants)
	}
	if override.MaxDirectChildren != nil {
		result.MaxDirectChildren = cloneInt(override.MaxDirectChildren)
	}
	return result
}

func (config HeuristicsConfiguration) merge(override HeuristicsConfiguration) HeuristicsConfiguration {
	result := config
	if override.DominantShare != nil {
		result.DominantShare = cloneFloat(override.DominantShare)
	}
	if override.MinimumDominantShare != nil {
		result.MinimumDominantShare = cloneFloat(override.MinimumDominantShare)
	}
	if override.HeadShare != nil {
		result.HeadShare = cloneFloat(override.HeadShare)
	}
	if override.CountCap != nil {
		result.CountCap = cloneInt(override.CountCap)
	}
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

func (config PathConfiguration) merge(override PathConfiguration) PathConfiguration {
	result := config
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.UseIgnoreFile != nil {
		result.UseIgnoreFile = cloneBool(override.UseIgnoreFile)
	}
	if override.IncludeGit != nil {
		result.IncludeGit = cloneBool(override.IncludeGit)
	}
	if override.IncludeBinary != nil {
		result.IncludeBinary = cloneBool(override.IncludeBinary)
	}
	return result
}

// BoolOrDefault dereferences value, falling back to defaultValue when unset.
func BoolOrDefault(value *bool, defaultValue bool) bool {
	if value == nil {
		return defaultValue
	}
	return *value
}

// IntOrDefault dereferences value, falling back to defaultValue when unset.
func IntOrDefault(value *int, defaultValue int) int {
	if value == nil {
		return defaultValue
	}
	return *value
}

// FloatOrDefault dereferences value, falling back to defaultValue when unset.
func FloatOrDefault(value *float64, defaultValue float64) float64 {
	if value == nil {
		return defaultValue
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
