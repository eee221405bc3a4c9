// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tyemirov/ctxtree/internal/config"
	"github.com/tyemirov/ctxtree/internal/types"
	"github.com/tyemirov/ctxtree/internal/utils"
)

const (
	versionFlagName      = "version"
	configFlagName       = "config"
	verboseFlagName      = "verbose"
	versionTemplate      = "ctxtree version: %s\n"
	defaultPath          = "."
	rootUse              = "ctxtree"
	rootShortDescription = "ctxtree command line interface"
	rootLongDescription  = `ctxtree renders bounded summaries of large directory trees.
Heavy subtrees collapse into placeholders, long sibling lists keep their head and tail,
and every selected path stays visible. Use --format to select raw, json, xml, or yaml output.`
	versionFlagDescription = "display application version"
	configFlagDescription  = "path to a configuration file (defaults to ./" + utils.ConfigFileName + ")"
	verboseFlagDescription = "log truncation decisions"

	treeUse              = "tree [root]"
	treeAlias            = "t"
	treeShortDescription = "summarize a directory tree (" + treeAlias + ")"
	// treeLongDescription provides detailed help for the tree command.
	treeLongDescription = `Summarize the directory tree below root (default: the current directory).
Directories whose contents exceed --max-total entries collapse into placeholders and
directories with more than --max-children entries keep only their first and last entries.
Paths given with --select are never hidden; with a selection the default mode is "files",
which renders only the selected paths and their ancestors.`
	// treeUsageExample demonstrates tree command usage.
	treeUsageExample = `  # Summarize the current directory
  ctxtree tree

  # Keep vendor/keep.ts visible while summarizing everything else
  ctxtree tree --mode directory --select vendor/keep.ts .

  # Render only the selected files as YAML and list surviving paths
  ctxtree tree --select src/a.ts --select docs --format yaml --list-files`

	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write the default configuration to ./` + utils.ConfigFileName + ` or, with --global,
to ~/` + utils.GlobalConfigDirectoryName + `/` + utils.GlobalConfigFileName + `.`
	initGlobalFlagName        = "global"
	initForceFlagName         = "force"
	initGlobalFlagDescription = "write the global configuration instead of the local one"
	initForceFlagDescription  = "overwrite an existing configuration file"
	initWrittenMessageFormat  = "configuration written to %s\n"

	// errorAbsolutePathFormat reports failure to resolve an absolute path.
	errorAbsolutePathFormat = "abs failed for '%s': %w"
	// errorPathMissingFormat reports a missing path.
	errorPathMissingFormat = "path '%s' does not exist"
	// errorStatFormat reports failure to retrieve file statistics.
	errorStatFormat = "stat failed for '%s': %w"
	// errorRootNotDirectoryFormat reports a root that is a regular file.
	errorRootNotDirectoryFormat = "root '%s' is not a directory"
	// errorLoadConfigurationFormat wraps configuration loading failures.
	errorLoadConfigurationFormat = "load configuration: %w"
)

// Execute runs the ctxtree application.
func Execute(ctx context.Context) error {
	rootCommand := createRootCommand(os.Stdout, os.Stderr)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// globalOptions stores flags shared by every subcommand.
type globalOptions struct {
	configPath string
	verbose    bool
}

// createRootCommand builds the root Cobra command.
func createRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var showVersion bool
	var shared globalOptions

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				_, printError := fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return printError
			}
			return command.Help()
		},
	}
	rootCommand.SetOut(stdout)
	rootCommand.SetErr(stderr)
	rootCommand.Flags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&shared.configPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(rootCommand.PersistentFlags(), &shared.verbose, verboseFlagName, false, verboseFlagDescription)
	rootCommand.AddCommand(
		createTreeCommand(&shared),
		createInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand() *cobra.Command {
	var writeGlobal bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if writeGlobal {
				target = config.InitTargetGlobal
			}
			writtenPath, initError := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if initError != nil {
				return initError
			}
			_, printError := fmt.Fprintf(command.OutOrStdout(), initWrittenMessageFormat, writtenPath)
			return printError
		},
	}
	registerBooleanFlag(initCommand.Flags(), &writeGlobal, initGlobalFlagName, false, initGlobalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, initForceFlagName, false, initForceFlagDescription)
	return initCommand
}

// resolveRootDirectory converts the root argument to absolute form and checks
// that it is an existing directory.
func resolveRootDirectory(input string) (types.ValidatedPath, error) {
	absolutePath, absolutePathError := filepath.Abs(input)
	if absolutePathError != nil {
		return types.ValidatedPath{}, fmt.Errorf(errorAbsolutePathFormat, input, absolutePathError)
	}
	cleanPath := filepath.Clean(absolutePath)
	info, fileStatusError := os.Stat(cleanPath)
	if fileStatusError != nil {
		if os.IsNotExist(fileStatusError) {
			return types.ValidatedPath{}, fmt.Errorf(errorPathMissingFormat, input)
		}
		return types.ValidatedPath{}, fmt.Errorf(errorStatFormat, input, fileStatusError)
	}
	if !info.IsDir() {
		return types.ValidatedPath{}, fmt.Errorf(errorRootNotDirectoryFormat, input)
	}
	return types.ValidatedPath{AbsolutePath: cleanPath, IsDir: true}, nil
}
