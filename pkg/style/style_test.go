package style

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matzehuels/codeflow/pkg/graph"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		typ   graph.NodeType
		label string
		want  Category
	}{
		{"explicit type beats filename", graph.TypeFolder, "x.test.js", Folder},
		{"function", graph.TypeFunction, "handler.ts", Function},
		{"route", graph.TypeRoute, "/api/users", Route},
		{"class", graph.TypeClass, "User", Class},
		{"component", graph.TypeComponent, "Button.tsx", Component},
		{"test jsx", "", "Foo.test.jsx", Test},
		{"spec ts", graph.TypeFile, "api.spec.ts", Test},
		{"test python is not a test", "", "foo.test.py", File},
		{"scss module", "", "styles.module.scss", CSS},
		{"sass", "", "theme.sass", CSS},
		{"react tsx", "", "Button.tsx", React},
		{"react jsx", graph.TypeFile, "App.jsx", React},
		{"javascript", "", "utils.js", JavaScript},
		{"typescript", "", "index.ts", JavaScript},
		{"no extension", "", "README", File},
		{"empty", "", "", File},
		{"unknown type", "module", "thing.go", File},
		{"case insensitive", "", "LEGACY.JS", JavaScript},
		{"dotfile", "", ".eslintrc", File},
		{"trailing space is not trimmed", "", "utils.js ", File},
		{"trailing space on a test name", "", "a.test.js ", File},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.typ, tt.label))
		})
	}
}

func TestRegistryCoversEveryCategory(t *testing.T) {
	for _, c := range Categories {
		s := Of(c)
		assert.Equal(t, c, s.Category)
		assert.Regexp(t, `^#[0-9a-f]{6}$`, s.Color)
		assert.NotEmpty(t, s.Glyph)
		assert.True(t, strings.HasPrefix(s.Icon, iconHeader), "icon %s must be a 64x64 svg", c)
	}
	assert.Equal(t, Of(File), Of("bogus"))
}

func TestColors(t *testing.T) {
	assert.Equal(t, "#f59e0b", Of(Folder).Color)
	assert.Equal(t, "#10b981", Of(Function).Color)
	assert.Equal(t, "#ef4444", Of(Test).Color)
	assert.Equal(t, "#8b5cf6", Of(CSS).Color)
	assert.Equal(t, "#3b82f6", Of(JavaScript).Color)
}

func TestEdgeColor(t *testing.T) {
	assert.Equal(t, DependencyEdgeColor, EdgeColor(graph.EdgeDependency))
	for _, et := range []graph.EdgeType{graph.EdgeImport, graph.EdgeCall, graph.EdgeContainment, "", "weird"} {
		assert.Equal(t, DefaultEdgeColor, EdgeColor(et), string(et))
	}
}

func TestTruncateLabel(t *testing.T) {
	assert.Equal(t, "short.js", TruncateLabel("short.js"))
	assert.Equal(t, "exactly14chars", TruncateLabel("exactly14chars"))
	assert.Equal(t, "averyveryveryl…", TruncateLabel("averyveryverylongname.tsx"))
	assert.Equal(t, "ääääääääääääää…", TruncateLabel(strings.Repeat("ä", 20)))
}

func TestIconAt(t *testing.T) {
	svg := IconAt(React, 3, 10, 20, 48)
	assert.True(t, strings.HasPrefix(svg, `<svg x="10.00" y="20.00" width="48.00" height="48.00" viewBox="0 0 64 64"`))
	assert.Contains(t, svg, `id="cf-3-react-grad"`)
	assert.Contains(t, svg, `fill="url(#cf-3-react-grad)"`)
	assert.True(t, strings.HasSuffix(svg, "</svg>"))

	// Two folders in one document reference their own gradient and filter.
	a, b := IconAt(Folder, 0, 0, 0, 48), IconAt(Folder, 1, 0, 0, 48)
	assert.Contains(t, a, `filter="url(#cf-0-folder-shadow)"`)
	assert.Contains(t, b, `filter="url(#cf-1-folder-shadow)"`)
	assert.NotContains(t, a+b, `"cf-folder-grad"`)
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", EscapeXML("a <b> & c"))
}
