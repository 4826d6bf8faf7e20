// Package style is the single source of truth for how codeflow draws nodes
// and edges.
//
// [Classify] maps a node's structural type and label to a [Category]; [Of]
// returns the category's color, icon and terminal glyph. The 2D and 3D
// renderers, the Graphviz export and the terminal viewer all read from here so
// the views stay visually consistent.
package style

import (
	"path"
	"regexp"
	"strings"

	"github.com/matzehuels/codeflow/pkg/graph"
)

// Category is the visual class of a node.
type Category string

// Categories in legend order.
const (
	Folder     Category = "folder"
	Function   Category = "function"
	Route      Category = "route"
	Class      Category = "class"
	Component  Category = "component"
	Test       Category = "test"
	CSS        Category = "css"
	React      Category = "react"
	JavaScript Category = "javascript"
	File       Category = "file"
)

// Categories lists every category in legend order.
var Categories = []Category{Folder, Function, Route, Class, Component, Test, CSS, React, JavaScript, File}

var (
	testPattern = regexp.MustCompile(`\.(test|spec)\.(js|jsx|ts|tsx)$`)
	cssPattern  = regexp.MustCompile(`\.(css|scss|sass)$`)
)

// Classify maps a structural type and label to a category.
//
// An explicit structural type always wins. Otherwise the label (compared case
// insensitively) is matched, in order, against test files, stylesheets, React
// sources and plain scripts. Anything else, including an empty label, is a
// [File].
func Classify(t graph.NodeType, label string) Category {
	switch t {
	case graph.TypeFolder:
		return Folder
	case graph.TypeFunction:
		return Function
	case graph.TypeRoute:
		return Route
	case graph.TypeClass:
		return Class
	case graph.TypeComponent:
		return Component
	}

	l := strings.ToLower(label)
	switch {
	case testPattern.MatchString(l):
		return Test
	case cssPattern.MatchString(l):
		return CSS
	}
	switch path.Ext(l) {
	case ".jsx", ".tsx":
		return React
	case ".js", ".ts":
		return JavaScript
	}
	return File
}

// ClassifyNode classifies a snapshot node.
func ClassifyNode(n graph.Node) Category {
	return Classify(n.Type, n.Label)
}

// Style is the visual definition of one category.
type Style struct {
	Category Category
	// Name is the legend caption.
	Name  string
	Color string
	// Glyph is a short stand-in for the icon on character displays.
	Glyph string
	// Icon is a standalone 64x64 SVG document.
	Icon string
}

var registry = map[Category]Style{
	Folder:     {Folder, "Folder", "#f59e0b", "▣", folderIcon},
	Function:   {Function, "Function", "#10b981", "ƒ", functionIcon},
	Route:      {Route, "Route", "#ef4444", "⇄", routeIcon},
	Class:      {Class, "Class", "#8b5cf6", "◫", classIcon},
	Component:  {Component, "Component", "#3b82f6", "⚛", componentIcon},
	Test:       {Test, "Test", "#ef4444", "✓", testIcon},
	CSS:        {CSS, "Styles", "#8b5cf6", "≋", cssIcon},
	React:      {React, "React", "#3b82f6", "⚛", reactIcon},
	JavaScript: {JavaScript, "JavaScript", "#3b82f6", "JS", javascriptIcon},
	File:       {File, "File", "#3b82f6", "≡", fileIcon},
}

// Of returns the style of c. Unknown categories get the [File] style.
func Of(c Category) Style {
	if s, ok := registry[c]; ok {
		return s
	}
	return registry[File]
}

// ForNode classifies n and returns its style.
func ForNode(n graph.Node) Style {
	return Of(ClassifyNode(n))
}

// Edge colors.
const (
	DependencyEdgeColor = "#10b981"
	DefaultEdgeColor    = "#3b82f6"
)

// EdgeColor returns the stroke color for an edge type. Only dependency edges
// differ; every other type, known or not, uses the default.
func EdgeColor(t graph.EdgeType) string {
	if t == graph.EdgeDependency {
		return DependencyEdgeColor
	}
	return DefaultEdgeColor
}
