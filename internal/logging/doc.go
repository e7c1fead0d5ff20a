// Package logging provides opt-in file-based logging with rotation for
// opensrc-mcp. When the --debug flag is set, comprehensive logs are written
// to $OPENSRC_DIR/logs/ for debugging and troubleshooting.
//
// By default (without --debug), logging is minimal and goes to stderr only.
// In MCP stdio mode, SetupMCPMode disables stderr entirely since only
// stdout/stdin may carry the JSON-RPC stream.
package logging
