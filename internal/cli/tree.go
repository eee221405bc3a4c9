package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tyemirov/ctxtree/internal/commands"
	"github.com/tyemirov/ctxtree/internal/config"
	"github.com/tyemirov/ctxtree/internal/output"
	"github.com/tyemirov/ctxtree/internal/services/clipboard"
	"github.com/tyemirov/ctxtree/internal/tokenizer"
	"github.com/tyemirov/ctxtree/internal/treesummary"
	"github.com/tyemirov/ctxtree/internal/types"
	"github.com/tyemirov/ctxtree/internal/utils"
)

const (
	exclusionFlagName     = "e"
	noGitignoreFlagName   = "no-gitignore"
	noIgnoreFlagName      = "no-ignore"
	includeGitFlagName    = "git"
	includeBinaryFlagName = "binary"
	formatFlagName        = "format"
	summaryFlagName       = "summary"
	tokensFlagName        = "tokens"
	modelFlagName         = "model"
	copyFlagName          = "copy"
	listFilesFlagName     = "list-files"
	selectFlagName        = "select"
	selectionFileFlagName = "selection-file"
	modeFlagName          = "mode"
	maxTotalFlagName      = "max-total"
	maxChildrenFlagName   = "max-children"
	workersFlagName       = "workers"
	timeoutFlagName       = "timeout"

	exclusionFlagDescription       = "exclude paths matching this pattern (repeatable)"
	disableGitignoreDescription    = "do not use .gitignore files"
	disableIgnoreFileDescription   = "do not use .ignore files"
	includeGitFlagDescription      = "include the .git directory"
	includeBinaryFlagDescription   = "include binary files"
	formatFlagDescription          = "output format: raw, json, xml, or yaml"
	summaryFlagDescription         = "print the summary line and the truncated directory list"
	tokensFlagDescription          = "count tokens of the rendered tree"
	modelFlagDescription           = "tokenizer model used with --tokens"
	copyFlagDescription            = "copy the output to the system clipboard"
	listFilesFlagDescription       = "list the rendered file paths"
	selectFlagDescription          = "path relative to root that must stay visible (repeatable)"
	selectionFileFlagDescription   = "file with one selected path per line"
	modeFlagDescription            = "directory renders the whole tree, files renders only selected paths"
	maxTotalFlagDescription        = "maximum summed weight of a directory's children before truncation"
	maxChildrenFlagDescription     = "maximum number of children rendered per directory"
	workersFlagDescription         = "number of concurrent directory listings"
	timeoutFlagDescription         = "deadline for a single directory listing"
	errorInvalidFormatFormat       = "invalid format: %s"
	errorInvalidTimeoutFormat      = "invalid operation timeout %q: %w"
	errorTokenizerFormat           = "initialize tokenizer: %w"
	errorCopyClipboardFormat       = "copy output to clipboard: %w"
	errorTooManyArgumentsFormat    = "expected at most one root, got %d"
	defaultSummaryEnabled          = true
	defaultListFilesEnabled        = false
	defaultClipboardEnabled        = false
	defaultTokensEnabled           = false
	defaultUseGitignore            = true
	defaultUseIgnoreFile           = true
	defaultIncludeGit              = false
	defaultIncludeBinary           = false
	defaultOperationTimeoutSetting = "5s"
)

// treeFlags holds the raw flag values of the tree command.
type treeFlags struct {
	exclusionPatterns []string
	disableGitignore  bool
	disableIgnoreFile bool
	includeGit        bool
	includeBinary     bool
	format            string
	summary           bool
	tokens            bool
	model             string
	copyToClipboard   bool
	listFiles         bool
	selection         []string
	selectionFile     string
	mode              string
	maxTotal          int
	maxChildren       int
	workers           int
	timeout           time.Duration
}

// treeSettings is the effective configuration of one tree invocation.
type treeSettings struct {
	format           string
	mode             string
	summary          bool
	listFiles        bool
	copyToClipboard  bool
	tokens           bool
	model            string
	limits           treesummary.Limits
	heuristics       treesummary.Heuristics
	workers          int
	operationTimeout time.Duration
	ignore           config.IgnoreOptions
}

// createTreeCommand returns the tree subcommand.
func createTreeCommand(shared *globalOptions) *cobra.Command {
	var flags treeFlags

	treeCommand := &cobra.Command{
		Use:     treeUse,
		Aliases: []string{treeAlias},
		Short:   treeShortDescription,
		Long:    treeLongDescription,
		Example: treeUsageExample,
		Args:    cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			if len(arguments) > 1 {
				return fmt.Errorf(errorTooManyArgumentsFormat, len(arguments))
			}
			rootArgument := defaultPath
			if len(arguments) == 1 {
				rootArgument = arguments[0]
			}
			applicationConfiguration, loadError := config.LoadApplicationConfiguration(config.LoadOptions{ExplicitFilePath: shared.configPath})
			if loadError != nil {
				return fmt.Errorf(errorLoadConfigurationFormat, loadError)
			}
			settings, settingsError := resolveTreeSettings(command, applicationConfiguration.Tree, flags)
			if settingsError != nil {
				return settingsError
			}
			logger := utils.NewConsoleLogger(command.ErrOrStderr(), loggerLevel(shared.verbose))
			defer func() { _ = logger.Sync() }()
			return runTree(command.Context(), command.OutOrStdout(), logger, rootArgument, flags, settings, clipboard.NewService())
		},
	}

	commandFlags := treeCommand.Flags()
	commandFlags.StringArrayVarP(&flags.exclusionPatterns, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	registerBooleanFlag(commandFlags, &flags.disableGitignore, noGitignoreFlagName, false, disableGitignoreDescription)
	registerBooleanFlag(commandFlags, &flags.disableIgnoreFile, noIgnoreFlagName, false, disableIgnoreFileDescription)
	registerBooleanFlag(commandFlags, &flags.includeGit, includeGitFlagName, defaultIncludeGit, includeGitFlagDescription)
	registerBooleanFlag(commandFlags, &flags.includeBinary, includeBinaryFlagName, defaultIncludeBinary, includeBinaryFlagDescription)
	commandFlags.StringVar(&flags.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	registerBooleanFlag(commandFlags, &flags.summary, summaryFlagName, defaultSummaryEnabled, summaryFlagDescription)
	registerBooleanFlag(commandFlags, &flags.tokens, tokensFlagName, defaultTokensEnabled, tokensFlagDescription)
	commandFlags.StringVar(&flags.model, modelFlagName, tokenizer.DefaultModel, modelFlagDescription)
	registerBooleanFlag(commandFlags, &flags.copyToClipboard, copyFlagName, defaultClipboardEnabled, copyFlagDescription)
	registerBooleanFlag(commandFlags, &flags.listFiles, listFilesFlagName, defaultListFilesEnabled, listFilesFlagDescription)
	commandFlags.StringArrayVar(&flags.selection, selectFlagName, nil, selectFlagDescription)
	commandFlags.StringVar(&flags.selectionFile, selectionFileFlagName, "", selectionFileFlagDescription)
	commandFlags.StringVar(&flags.mode, modeFlagName, "", modeFlagDescription)
	commandFlags.IntVar(&flags.maxTotal, maxTotalFlagName, treesummary.DefaultMaxTotalDescendants, maxTotalFlagDescription)
	commandFlags.IntVar(&flags.maxChildren, maxChildrenFlagName, treesummary.DefaultMaxDirectChildren, maxChildrenFlagDescription)
	commandFlags.IntVar(&flags.workers, workersFlagName, treesummary.DefaultWorkers, workersFlagDescription)
	commandFlags.DurationVar(&flags.timeout, timeoutFlagName, treesummary.DefaultOperationTimeout, timeoutFlagDescription)
	return treeCommand
}

// resolveTreeSettings layers defaults, configuration and explicitly changed
// flags, in that order.
func resolveTreeSettings(command *cobra.Command, tree config.TreeConfiguration, flags treeFlags) (treeSettings, error) {
	defaultHeuristics := treesummary.DefaultHeuristics()
	timeoutSetting := tree.OperationTimeout
	if timeoutSetting == "" {
		timeoutSetting = defaultOperationTimeoutSetting
	}
	operationTimeout, parseError := time.ParseDuration(timeoutSetting)
	if parseError != nil {
		return treeSettings{}, fmt.Errorf(errorInvalidTimeoutFormat, timeoutSetting, parseError)
	}

	settings := treeSettings{
		format:          firstNonEmpty(tree.Format, types.FormatRaw),
		mode:            tree.Mode,
		summary:         config.BoolOrDefault(tree.Summary, defaultSummaryEnabled),
		listFiles:       config.BoolOrDefault(tree.ListFiles, defaultListFilesEnabled),
		copyToClipboard: config.BoolOrDefault(tree.Clipboard, defaultClipboardEnabled),
		tokens:          config.BoolOrDefault(tree.Tokens.Enabled, defaultTokensEnabled),
		model:           firstNonEmpty(tree.Tokens.Model, tokenizer.DefaultModel),
		limits: treesummary.Limits{
			MaxTotalDescendants: config.IntOrDefault(tree.Limits.MaxTotalDescendants, treesummary.DefaultMaxTotalDescendants),
			MaxDirectChildren:   config.IntOrDefault(tree.Limits.MaxDirectChildren, treesummary.DefaultMaxDirectChildren),
		},
		heuristics: treesummary.Heuristics{
			DominantShare:        config.FloatOrDefault(tree.Heuristics.DominantShare, defaultHeuristics.DominantShare),
			MinimumDominantShare: config.FloatOrDefault(tree.Heuristics.MinimumDominantShare, defaultHeuristics.MinimumDominantShare),
			HeadShare:            config.FloatOrDefault(tree.Heuristics.HeadShare, defaultHeuristics.HeadShare),
			CountCap:             config.IntOrDefault(tree.Heuristics.CountCap, 0),
		},
		workers:          config.IntOrDefault(tree.Workers, treesummary.DefaultWorkers),
		operationTimeout: operationTimeout,
		ignore: config.IgnoreOptions{
			ExclusionPatterns: tree.Paths.Exclude,
			UseGitignore:      config.BoolOrDefault(tree.Paths.UseGitignore, defaultUseGitignore),
			UseIgnoreFile:     config.BoolOrDefault(tree.Paths.UseIgnoreFile, defaultUseIgnoreFile),
			IncludeGit:        config.BoolOrDefault(tree.Paths.IncludeGit, defaultIncludeGit),
			IncludeBinary:     config.BoolOrDefault(tree.Paths.IncludeBinary, defaultIncludeBinary),
		},
	}

	changed := command.Flags().Changed
	if changed(formatFlagName) {
		settings.format = flags.format
	}
	if changed(modeFlagName) {
		settings.mode = flags.mode
	}
	if changed(summaryFlagName) {
		settings.summary = flags.summary
	}
	if changed(listFilesFlagName) {
		settings.listFiles = flags.listFiles
	}
	if changed(copyFlagName) {
		settings.copyToClipboard = flags.copyToClipboard
	}
	if changed(tokensFlagName) {
		settings.tokens = flags.tokens
	}
	if changed(modelFlagName) {
		settings.model = flags.model
	}
	if changed(maxTotalFlagName) {
		settings.limits.MaxTotalDescendants = flags.maxTotal
	}
	if changed(maxChildrenFlagName) {
		settings.limits.MaxDirectChildren = flags.maxChildren
	}
	if changed(workersFlagName) {
		settings.workers = flags.workers
	}
	if changed(timeoutFlagName) {
		settings.operationTimeout = flags.timeout
	}
	if changed(exclusionFlagName) {
		settings.ignore.ExclusionPatterns = utils.DeduplicatePatterns(append(append([]string{}, settings.ignore.ExclusionPatterns...), flags.exclusionPatterns...))
	}
	if changed(noGitignoreFlagName) {
		settings.ignore.UseGitignore = !flags.disableGitignore
	}
	if changed(noIgnoreFlagName) {
		settings.ignore.UseIgnoreFile = !flags.disableIgnoreFile
	}
	if changed(includeGitFlagName) {
		settings.ignore.IncludeGit = flags.includeGit
	}
	if changed(includeBinaryFlagName) {
		settings.ignore.IncludeBinary = flags.includeBinary
	}

	settings.format = strings.ToLower(strings.TrimSpace(settings.format))
	if !isSupportedFormat(settings.format) {
		return treeSettings{}, fmt.Errorf(errorInvalidFormatFormat, settings.format)
	}
	return settings, nil
}

// runTree builds the summary for rootArgument and renders it to writer.
func runTree(ctx context.Context, writer io.Writer, logger *zap.Logger, rootArgument string, flags treeFlags, settings treeSettings, copier clipboard.Copier) error {
	if ctx == nil {
		ctx = context.Background()
	}
	root, rootError := resolveRootDirectory(rootArgument)
	if rootError != nil {
		return rootError
	}
	selection, selectionError := commands.CollectSelection(root.AbsolutePath, flags.selection, flags.selectionFile)
	if selectionError != nil {
		return selectionError
	}
	mode, modeError := resolveMode(settings.mode, len(selection) > 0)
	if modeError != nil {
		return modeError
	}

	treeBuilder := &commands.TreeBuilder{
		Limits:           settings.limits,
		Heuristics:       settings.heuristics,
		Workers:          settings.workers,
		OperationTimeout: settings.operationTimeout,
		Ignore:           settings.ignore,
		ListFiles:        settings.listFiles,
		Logger:           logger,
	}
	if settings.tokens {
		counter, modelName, counterError := tokenizer.NewCounter(tokenizer.Config{Model: settings.model})
		if counterError != nil {
			return fmt.Errorf(errorTokenizerFormat, counterError)
		}
		treeBuilder.TokenCounter = counter
		treeBuilder.TokenModel = modelName
	}
	document, treeError := treeBuilder.GetTreeData(ctx, root.AbsolutePath, selection, mode)
	if treeError != nil {
		return treeError
	}

	destination := writer
	var capturing *clipboard.CapturingWriter
	if settings.copyToClipboard {
		capturing = clipboard.NewCapturingWriter(writer, copier)
		destination = capturing
	}
	renderer, rendererError := output.NewRenderer(settings.format, destination, settings.summary)
	if rendererError != nil {
		return rendererError
	}
	if renderError := renderer.Render(document); renderError != nil {
		return renderError
	}
	if capturing != nil {
		if copyError := capturing.Flush(); copyError != nil {
			return fmt.Errorf(errorCopyClipboardFormat, copyError)
		}
	}
	return nil
}

// resolveMode applies the configured mode, defaulting to files mode when a
// selection is present.
func resolveMode(configured string, hasSelection bool) (treesummary.Mode, error) {
	trimmed := strings.ToLower(strings.TrimSpace(configured))
	if trimmed == "" {
		if hasSelection {
			return treesummary.ModeFiles, nil
		}
		return treesummary.ModeDirectory, nil
	}
	return treesummary.ParseMode(trimmed)
}

func isSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatXML, types.FormatYAML:
		return true
	default:
		return false
	}
}

func firstNonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func loggerLevel(verbose bool) zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
