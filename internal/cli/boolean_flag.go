package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName               = "bool"
	booleanFlagTrueLiteral            = "true"
	booleanFlagAcceptedValuesListing  = "true, false, yes, no, on, off, 1, 0"
	booleanFlagInvalidValueErrorLabel = "invalid boolean value"
)

var booleanFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

type booleanFlagValue struct {
	target  *bool
	flagKey string
}

func (value *booleanFlagValue) Set(input string) error {
	if value == nil || value.target == nil {
		return fmt.Errorf("%s %q for flag %q", booleanFlagInvalidValueErrorLabel, input, value.flagKey)
	}
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = booleanFlagTrueLiteral
	}
	parsed, ok := booleanFlagLiterals[normalized]
	if !ok {
		return fmt.Errorf("%s %q for --%s; accepted values: %s", booleanFlagInvalidValueErrorLabel, input, value.flagKey, booleanFlagAcceptedValuesListing)
	}
	*value.target = parsed
	return nil
}

func (value *booleanFlagValue) String() string {
	if value == nil || value.target == nil {
		return booleanFlagTrueLiteral
	}
	return strconv.FormatBool(*value.target)
}

func (value *booleanFlagValue) Type() string {
	return booleanFlagTypeName
}

func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil {
		return
	}
	*target = defaultValue
	flagValue := &booleanFlagValue{
		target:  target,
		flagKey: name,
	}
	flagSet.Var(flagValue, name, usage)
	if lookup := flagSet.Lookup(name); lookup != nil {
		lookup.DefValue = strconv.FormatBool(defaultValue)
		lookup.NoOptDefVal = booleanFlagTrueLiteral
	}
}

// argumentRole classifies one command line token for boolean flag joining.
type argumentRole int

const (
	roleOther argumentRole = iota
	roleFlagValue
	roleBooleanValue
	rolePositional
)

const argumentTerminator = "--"

// normalizeBooleanFlagArguments joins "--flag value" into "--flag=value" for
// boolean flags so that literals such as "no" or "off" are accepted with a
// space. When the resolved subcommand takes a positional argument and none is
// given otherwise, the last boolean literal stays positional: a root directory
// named "on" or "1" is never consumed by a flag.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	if command == nil || len(arguments) == 0 {
		return arguments
	}
	flagKinds := map[string]bool{}
	collectFlagKinds(command, flagKinds)
	if len(flagKinds) == 0 {
		return arguments
	}

	roles, activeCommand, terminatorIndex := classifyArguments(command, arguments, flagKinds)
	positionalGiven := terminatorIndex+1 < len(arguments)
	for _, role := range roles {
		if role == rolePositional {
			positionalGiven = true
		}
	}
	if !positionalGiven && acceptsPositionalArgument(activeCommand) {
		for index := len(roles) - 1; index >= 0; index-- {
			if roles[index] == roleBooleanValue {
				roles[index] = rolePositional
				break
			}
		}
	}

	normalized := make([]string, 0, len(arguments))
	for index := 0; index < terminatorIndex; index++ {
		if index+1 < terminatorIndex && roles[index+1] == roleBooleanValue {
			normalized = append(normalized, fmt.Sprintf("%s=%s", arguments[index], arguments[index+1]))
			index++
			continue
		}
		normalized = append(normalized, arguments[index])
	}
	return append(normalized, arguments[terminatorIndex:]...)
}

// classifyArguments assigns a role to every token before the "--" terminator
// and returns the innermost subcommand named on the command line together with
// the terminator index (len(arguments) when absent).
func classifyArguments(command *cobra.Command, arguments []string, flagKinds map[string]bool) ([]argumentRole, *cobra.Command, int) {
	roles := make([]argumentRole, len(arguments))
	activeCommand := command
	positionalSeen := false
	for index, argument := range arguments {
		if argument == argumentTerminator {
			return roles, activeCommand, index
		}
		if roles[index] != roleOther {
			continue
		}
		if strings.HasPrefix(argument, "-") {
			if strings.Contains(argument, "=") || index+1 >= len(arguments) {
				continue
			}
			isBoolean, known := flagKinds[strings.TrimLeft(argument, "-")]
			if !known {
				continue
			}
			nextArgument := arguments[index+1]
			if !isBoolean {
				roles[index+1] = roleFlagValue
				continue
			}
			if strings.HasPrefix(argument, argumentTerminator) && !strings.HasPrefix(nextArgument, "-") && isBooleanLiteral(nextArgument) {
				roles[index+1] = roleBooleanValue
			}
			continue
		}
		if !positionalSeen {
			if child := findSubcommand(activeCommand, argument); child != nil {
				activeCommand = child
				continue
			}
		}
		roles[index] = rolePositional
		positionalSeen = true
	}
	return roles, activeCommand, len(arguments)
}

func isBooleanLiteral(argument string) bool {
	_, valid := booleanFlagLiterals[strings.ToLower(strings.TrimSpace(argument))]
	return valid
}

func findSubcommand(command *cobra.Command, name string) *cobra.Command {
	for _, child := range command.Commands() {
		if child.Name() == name || child.HasAlias(name) {
			return child
		}
	}
	return nil
}

// acceptsPositionalArgument reports whether the usage line of command names
// an argument, as in "tree [root]".
func acceptsPositionalArgument(command *cobra.Command) bool {
	return command != nil && len(strings.Fields(command.Use)) > 1
}

// collectFlagKinds records, for every flag name and shorthand of command and
// its subcommands, whether the flag is boolean.
func collectFlagKinds(command *cobra.Command, target map[string]bool) {
	if command == nil || target == nil {
		return
	}
	visit := func(flagSet *pflag.FlagSet) {
		if flagSet == nil {
			return
		}
		flagSet.VisitAll(func(flag *pflag.Flag) {
			if flag == nil || flag.Value == nil {
				return
			}
			isBoolean := flag.Value.Type() == booleanFlagTypeName
			target[flag.Name] = isBoolean
			if flag.Shorthand != "" {
				target[flag.Shorthand] = isBoolean
			}
		})
	}
	visit(command.PersistentFlags())
	visit(command.Flags())
	for _, child := range command.Commands() {
		collectFlagKinds(child, target)
	}
}
