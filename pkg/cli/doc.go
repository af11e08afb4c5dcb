// Package cli holds terminal helpers shared by the parley commands:
// structured output (YAML, JSON, raw), a bordered frame renderer for the
// live session view, a level meter and an io.Writer that keeps the last
// log lines for display.
package cli
