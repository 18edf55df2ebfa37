// Package cli provides functionality for handling command-line flags.

package cli

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// Flag kinds a Flag.Value/Default can hold; Kind controls which
// flag.FlagSet registration method AddFlagToSet uses. An empty Kind is
// treated as KindString.
const (
	KindString = "string"
	KindInt    = "int"
	KindBool   = "bool"
)

// Flag represents a command-line flag.
type Flag struct {
	Name    string      // Name of the flag.
	Usage   string      // Usage description of the flag.
	Aliases []string    // Aliases for the flag.
	Kind    string      // KindString (default), KindInt or KindBool.
	Default interface{} // Default value of the flag.
	Value   interface{} // Current value of the flag.
}

// HelpFlag is a built-in flag that represents the help flag.
var HelpFlag = &Flag{
	Name:    "help",
	Usage:   "show help",
	Aliases: []string{"-h", "--help"},
	Kind:    KindBool,
	Default: false,
}

// hasFlag checks if a flag exists in a list of flags.
func hasFlag(flags []*Flag, flag *Flag) bool {
	for _, exist := range flags {
		if flag == exist {
			return true
		}
	}
	return false
}

// DefaultString renders Default in the textual form flag.FlagSet expects,
// coercing whatever concrete type Default holds.
func (f *Flag) DefaultString() string {
	switch v := f.Default.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// AddFlagToSet registers the flag on set, typed per f.Kind.
func (f *Flag) AddFlagToSet(set *flag.FlagSet) {
	switch f.Kind {
	case KindInt:
		def, _ := strconv.Atoi(f.DefaultString())
		set.Int(f.Name, def, f.Usage)
	case KindBool:
		def, _ := strconv.ParseBool(f.DefaultString())
		set.Bool(f.Name, def, f.Usage)
	default:
		set.String(f.Name, f.DefaultString(), f.Usage)
	}
}

// AddHelpFlag registers the help flag on set.
func (f *Flag) AddHelpFlag(set *flag.FlagSet) {
	set.Bool(f.Name, true, f.Usage)
}

// setFlags registers every flag in inputFlags (resolved against
// commandFlags's alias map) onto set, typed per each flag's Kind.
func setFlags(set *flag.FlagSet, commandFlags []*Flag, inputFlags []string) {
	for _, f := range parseFlags(commandFlags, inputFlags) {
		if f.Name == "help" {
			f.AddHelpFlag(set)
		} else {
			f.AddFlagToSet(set)
		}
	}
}

// parseFlags resolves inputFlags against commandFlags's alias map.
// Each item may be "--alias=value"/"-alias=value", or a bare
// "--alias"/"-alias" whose value is the following element in inputFlags
// (skipped for KindBool flags, which take no value).
func parseFlags(commandFlags []*Flag, inputFlags []string) []*Flag {
	aliases := createFlagMap(commandFlags)
	var result []*Flag
	for i := 0; i < len(inputFlags); i++ {
		item := inputFlags[i]
		key := item
		val := ""
		hasVal := false
		if eq := strings.Index(item, "="); eq != -1 {
			key, val = item[:eq], item[eq+1:]
			hasVal = true
		}
		mapped, ok := aliases[key]
		if !ok {
			continue
		}
		if !hasVal && mapped.Kind != KindBool && i+1 < len(inputFlags) {
			val = inputFlags[i+1]
			i++
		}
		result = append(result, &Flag{Name: mapped.Name, Usage: mapped.Usage, Kind: mapped.Kind, Default: mapped.Default, Value: val})
	}
	return result
}

// createFlagMap indexes commandFlags by name and by every alias, with and
// without their leading dashes, so callers can look a flag up by however
// it appeared on the command line.
func createFlagMap(commandFlags []*Flag) map[string]*Flag {
	m := make(map[string]*Flag, len(commandFlags))
	for _, item := range commandFlags {
		m[item.Name] = item
		for _, alias := range item.Aliases {
			trimmed := strings.TrimLeft(alias, "-")
			m[alias] = item
			m["-"+trimmed] = item
			m["--"+trimmed] = item
		}
	}
	return m
}
