package utils

import (
	"strings"

	"github.com/spf13/cobra"
)

// UnknownFlags returns the entries of args that look like flags cmd does not define.
// Parsing stops at "--".
func UnknownFlags(cmd *cobra.Command, args []string) []string {
	fs := cmd.Flags()
	var unknown []string
	for _, arg := range args {
		if arg == "--" {
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if strings.HasPrefix(arg, "--") {
			if fs.Lookup(name) == nil {
				unknown = append(unknown, arg)
			}
			continue
		}
		if fs.ShorthandLookup(name[:1]) == nil {
			unknown = append(unknown, arg)
		}
	}
	return unknown
}
