package graph

import "strings"

const (
	// DirColor is used for every directory node, the root included
	DirColor = "#6cc644"
	// DefaultColor is used for files whose extension is missing or unknown
	DefaultColor = "#9e9e9e"
)

// extensionColors maps lower-cased file extensions to display colors.
var extensionColors = map[string]string{
	// Config
	"json": "#f1e05a",
	"yml":  "#cb171e",
	"yaml": "#cb171e",
	"toml": "#cb171e",
	"ini":  "#cb171e",
	"env":  "#cb171e",

	// Code
	"js":   "#f1e05a",
	"jsx":  "#f1e05a",
	"ts":   "#3178c6",
	"tsx":  "#3178c6",
	"py":   "#3572A5",
	"rb":   "#701516",
	"java": "#b07219",
	"go":   "#00ADD8",
	"rs":   "#dea584",
	"php":  "#4F5D95",
	"c":    "#555555",
	"cpp":  "#f34b7d",
	"cs":   "#178600",
	"html": "#e34c26",
	"css":  "#563d7c",
	"scss": "#c6538c",
	"md":   "#083fa1",
}

// Color returns the display color for an entry.
func Color(name string, kind NodeType) string {
	if kind == TypeDir {
		return DirColor
	}
	if c, ok := extensionColors[Extension(name)]; ok {
		return c
	}
	return DefaultColor
}

// Extension returns the lower-cased substring after the last dot of name,
// or "" when name has no dot.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
