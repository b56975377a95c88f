package extract

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Previewer renders raw fragments for humans inspecting why a category
// extracted the way it did. The converter is goroutine-safe and reused.
type Previewer struct {
	md *converter.Converter
}

// NewPreviewer builds a Previewer whose markdown output keeps table layout.
func NewPreviewer() *Previewer {
	return &Previewer{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Render returns the fragment as "html" (unchanged), "markdown" or "text".
func (p *Previewer) Render(fragment, format string) (string, error) {
	switch format {
	case "html":
		return fragment, nil
	case "markdown", "":
		return p.md.ConvertString(fragment)
	case "text":
		return strings.Join(strings.Fields(FragmentText(fragment)), " "), nil
	default:
		return "", fmt.Errorf("unknown preview format %q", format)
	}
}
