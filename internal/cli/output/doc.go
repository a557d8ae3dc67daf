// Package output renders RESP replies for respkv-cli.
//
// The default text format follows redis-cli: status text as-is, bulk
// strings quoted, "(nil)", "(error) ..." and numbered array items. The raw
// format prints payloads unquoted for scripting. JSON and YAML render the
// reply as a value tree.
package output
