// Package flagx holds helpers that let several config layers read their own
// command-line flags from os.Args without tripping over each other.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// FilterArgs keeps only the flags listed in allowedFlags, plus their values.
// Both "-c conf.json" and "-c=conf.json" forms are recognised. A token that
// starts with "-" is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// stringFlag parses a single string flag (with optional aliases) out of os.Args.
func stringFlag(names ...string) string {
	var value string

	fs := flag.NewFlagSet(names[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, n := range names {
		fs.StringVar(&value, strings.TrimPrefix(n, "-"), "", n)
	}
	_ = fs.Parse(FilterArgs(os.Args[1:], names))

	return value
}

// JsonConfigFlags returns the JSON config path given via -c or -config,
// or an empty string.
func JsonConfigFlags() string {
	return stringFlag("-c", "-config")
}

// EnvFileFlags returns the dotenv file path given via -env, or an empty string.
func EnvFileFlags() string {
	return stringFlag("-env")
}
