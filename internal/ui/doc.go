// Package ui styles CLI output with lipgloss.
//
// [Palette] renders titles, success and failure marks, warnings and hints. Styles degrade to plain
// text when the output is not a terminal, so command output stays readable when piped.
package ui
