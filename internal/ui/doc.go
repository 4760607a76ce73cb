// Package ui renders the console side of a clean run: the mode banner, the
// inventory and summary tables, per-resource outcome lines and the
// confirmation prompt.
package ui
