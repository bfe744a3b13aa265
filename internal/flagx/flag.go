// Package flagx provides small helpers for selective command-line flag
// parsing, so each config layer can pick out just the flags it owns without
// tripping over flags defined elsewhere.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the arguments belonging to the allowed flags.
//
// Both spellings are recognized: a flag with its value as the next argument
// ("-c conf.json") and the combined form ("--config=conf.json"). Everything
// else, including positional arguments, is dropped. The returned slice is
// never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, name := range allowedFlags {
		allowed[name] = struct{}{}
	}

	kept := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") {
			if eq := strings.IndexByte(arg, '='); eq >= 0 {
				if _, ok := allowed[arg[:eq]]; ok {
					kept = append(kept, arg)
				}
				continue
			}
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		kept = append(kept, arg)

		// A following token that does not start with '-' is this flag's value.
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			kept = append(kept, args[i+1])
			i++
		}
	}

	return kept
}

// JsonConfigFlags extracts the config file path given via -c or -config.
// Other arguments are ignored so later flag sets can parse them. Returns an
// empty string when neither flag is present.
func JsonConfigFlags() string {
	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	var path string
	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return path
}
