package utils

const (
	// EmptyString represents a reusable empty string constant.
	EmptyString = ""

	// ErrorLogFormat defines the formatting string for error log messages.
	ErrorLogFormat = "Error: %v"

	// ConfigFileName is the local configuration file looked up in the working directory.
	ConfigFileName = ".ctxtree.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding global configuration.
	GlobalConfigDirectoryName = ".ctxtree"
	// GlobalConfigFileName is the configuration file inside GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.yaml"
)

const (
	// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes fatal command errors.
	ApplicationExecutionFailedMessage = "ctxtree failed"
)
