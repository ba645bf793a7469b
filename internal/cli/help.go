package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// SetupGroupedHelp configures a command to display flags grouped by category
func SetupGroupedHelp(cmd *cobra.Command) {
	originalHelpFunc := cmd.HelpFunc()
	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		// First print the original help without flags
		cmd.Flags().VisitAll(func(flag *pflag.Flag) {
			flag.Hidden = true
		})
		originalHelpFunc(cmd, args)
		cmd.Flags().VisitAll(func(flag *pflag.Flag) {
			flag.Hidden = false
		})

		// Now print grouped flags
		fmt.Println("\nFlags:")
		printFlagGroup(cmd, "RANGE OPTIONS", []string{
			"from",
			"until",
			"sweep",
		})

		printFlagGroup(cmd, "POOL OPTIONS", []string{
			"threads", "t",
		})

		printFlagGroup(cmd, "GLOBAL OPTIONS", []string{
			"help", "h",
			"config", "c",
			"verbose", "v",
			"quiet", "q",
			"no-color",
			"debug",
		})

		// Print environment variables section
		fmt.Println("\nEnvironment Variables:")
		fmt.Println("  ENAIMPORT_CONFIG       Configuration file (default: ~/.config/enaimport/config.yaml)")
		fmt.Println("  ENAIMPORT_DSN          ERAPRO connection string")
		fmt.Println("  ENAIMPORT_TOKEN        BioSamples bearer token")
		fmt.Println("  ENAIMPORT_THREADS      Worker threads")
		fmt.Println("  ENAIMPORT_REDIS_ADDR   Redis address for the sweep handled-today store")
		fmt.Println("  NO_COLOR               Disable colored output")
	})
}

// printFlagGroup prints a group of flags with a header
func printFlagGroup(cmd *cobra.Command, groupName string, flagNames []string) {
	var flags []*pflag.Flag
	flagMap := make(map[string]bool)

	for _, name := range flagNames {
		flagMap[name] = true
		if flag := cmd.Flags().Lookup(name); flag != nil && !flag.Hidden {
			flags = append(flags, flag)
		}
	}

	if len(flags) == 0 {
		return
	}

	fmt.Printf("\n%s:\n", groupName)
	for _, flag := range flags {
		shorthand := ""
		if flag.Shorthand != "" {
			shorthand = fmt.Sprintf("-%s, ", flag.Shorthand)
		}

		// Format the flag line
		flagLine := fmt.Sprintf("  %s--%s", shorthand, flag.Name)

		// Add type information
		typeStr := ""
		switch flag.Value.Type() {
		case "string":
			if flag.DefValue != "" && flag.DefValue != "[]" {
				typeStr = fmt.Sprintf(" string (default %q)", flag.DefValue)
			} else {
				typeStr = " string"
			}
		case "int", "int32", "int64":
			if flag.DefValue != "0" {
				typeStr = fmt.Sprintf(" int (default %s)", flag.DefValue)
			} else {
				typeStr = " int"
			}
		case "float32", "float64":
			typeStr = fmt.Sprintf(" float (default %s)", flag.DefValue)
		case "bool":
			typeStr = ""
		default:
			if flag.DefValue != "" && flag.DefValue != "[]" {
				typeStr = fmt.Sprintf(" (default %s)", flag.DefValue)
			}
		}

		// Ensure proper alignment
		padding := 45 - len(flagLine) - len(typeStr)
		if padding < 1 {
			padding = 1
		}

		fmt.Printf("%s%s%s%s\n", flagLine, typeStr, strings.Repeat(" ", padding), flag.Usage)
	}
}