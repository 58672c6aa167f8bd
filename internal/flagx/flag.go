// Package flagx lets several independent flag sets share one command line:
// each parser picks out only the flags it owns and ignores the rest.
package flagx

import (
	"flag"
	"strings"
)

// Owned names the flags one parser is responsible for. Valued flags may take
// their value from the following token; Bool flags never do.
type Owned struct {
	Valued []string
	Bool   []string
}

// FilterArgs returns the subset of args that belongs to owned flags, keeping
// their values and original order.
//
// Supported formats:
//
//	-c conf.json         valued flag, separate value
//	--config=conf.json   any flag, inline value
//	-mask                bool flag
func FilterArgs(args []string, owned Owned) []string {
	valued := make(map[string]struct{}, len(owned.Valued))
	for _, f := range owned.Valued {
		valued[f] = struct{}{}
	}
	boolean := make(map[string]struct{}, len(owned.Bool))
	for _, f := range owned.Bool {
		boolean[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			_, isValued := valued[name]
			_, isBool := boolean[name]
			if isValued || isBool {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := boolean[arg]; ok {
			filtered = append(filtered, arg)
			continue
		}

		if _, ok := valued[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigFile extracts the path given with -c or -config. It returns an empty
// string when neither is present; the last occurrence wins.
func ConfigFile(args []string) string {
	var config string

	filtered := FilterArgs(args, Owned{Valued: []string{"-c", "-config"}})

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(filtered)

	return config
}
