package errutils

// Package errutils provides a set of utilities for working with errors in Go.

// Example:
//
// The following example demonstrates how to use `NewMultiErr` and `Add` to collect several errors into one:
//
//     package main
//
//     import (
//         "errors"
//         "fmt"
//         "github.com/witlox/dcron/errutils"
//     )
//
//     func main() {
//         err := someFunction()
//         if err != nil {
//             multiErr := errutils.NewMultiErr(err)
//             multiErr.Add(errors.New("failed to perform operation"))
//             fmt.Println(multiErr)
//         }
//     }
//
// In the above example, `NewMultiErr` holds the error returned by `someFunction()` and `Add` appends a second one.
// Printing the MultiError with `fmt.Println()` writes each error message on its own line.
