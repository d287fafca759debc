package base

import (
	"flag"
	"fmt"
	"sort"
	"strings"
)

// FlagSet wraps flag.FlagSet with help output suited to cli.Command.Help.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f. Parse errors are returned, never printed, so commands
// can report them through the UI.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	f.SetOutput(discard{})
	return &FlagSet{FlagSet: f}
}

// Help renders every flag as an indented "Options:" block.
func (f *FlagSet) Help() string {
	var lines []string
	f.VisitAll(func(fl *flag.Flag) {
		line := fmt.Sprintf("  -%s", fl.Name)
		if name, _ := flag.UnquoteUsage(fl); name != "" {
			line += "=<" + name + ">"
		}
		usage := fl.Usage
		if fl.DefValue != "" && fl.DefValue != "false" {
			usage += fmt.Sprintf(" Defaults to %q.", fl.DefValue)
		}
		lines = append(lines, line+"\n      "+usage)
	})
	if len(lines) == 0 {
		return ""
	}
	sort.Strings(lines)
	return "\n\nOptions:\n\n" + strings.Join(lines, "\n\n")
}

// KeyValueFlag collects repeated key=value flags into a map.
type KeyValueFlag map[string]string

func (kv KeyValueFlag) String() string {
	pairs := make([]string, 0, len(kv))
	for k, v := range kv {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// Set parses one key=value pair.
func (kv KeyValueFlag) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	kv[k] = v
	return nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
