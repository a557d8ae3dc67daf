// Package repl provides the interactive mode of respkv-cli.
//
// Each input line is split into words the way a shell would (double quotes
// with backslash escapes, single quotes taken literally), handed to an
// Executor, and the returned text is printed.
package repl
