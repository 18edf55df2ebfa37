// Package cli provides a command-line interface framework for building command-line applications in Go.
// This file contains the exported help flag constant; CLI.Execute matches
// "-h"/"--help" itself and does not read it.

package cli

// HelpFlags defines the flags used to display help.
var HelpFlags = [2]string{"--help", "-h"}
