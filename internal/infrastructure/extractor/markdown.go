package extractor

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
).Parser()

// decodeMarkdown keeps the readable text of a markdown document, one block
// per line. Markup, link targets and images are dropped.
func decodeMarkdown(raw []byte) (string, error) {
	source, err := decodePlainText(raw)
	if err != nil {
		return "", err
	}
	src := []byte(source)
	doc := markdownParser.Parse(text.NewReader(src))

	w := &markdownWalker{source: src}
	if err := ast.Walk(doc, w.walk); err != nil {
		return "", err
	}
	w.flush()
	return joinLines(w.lines), nil
}

type markdownWalker struct {
	source  []byte
	lines   []string
	current strings.Builder
}

func (w *markdownWalker) flush() {
	if w.current.Len() > 0 {
		w.lines = append(w.lines, w.current.String())
		w.current.Reset()
	}
}

func (w *markdownWalker) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Text:
		if entering {
			w.current.Write(node.Segment.Value(w.source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				w.flush()
			}
		}
	case *ast.String:
		if entering {
			w.current.Write(node.Value)
		}
	case *ast.AutoLink:
		if entering {
			w.current.Write(node.Label(w.source))
		}
		return ast.WalkSkipChildren, nil
	case *ast.Image:
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			w.flush()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				w.lines = append(w.lines, string(seg.Value(w.source)))
			}
		}
		return ast.WalkSkipChildren, nil
	case *extast.TableCell:
		if !entering {
			w.current.WriteByte(' ')
		}
	default:
		if n.Type() == ast.TypeBlock && !entering {
			w.flush()
		}
	}
	return ast.WalkContinue, nil
}
