package cleaner

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// markdownConverter wraps the html-to-markdown converter, built once and
// reused across requests (goroutine-safe).
type markdownConverter struct {
	conv *converter.Converter
}

// newMarkdownConverter configures a converter for LLM-friendly output:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta,
//     link, input, textarea, HTML comments.
//   - commonmark plugin: ATX headings, fenced code, `-` bullets, `*`
//     emphasis — standard CommonMark rendering.
//   - table plugin: preserves table structure with minimal cell padding.
func newMarkdownConverter() *markdownConverter {
	return &markdownConverter{
		conv: converter.NewConverter(
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

// convert renders htmlContent to Markdown. domain resolves relative URLs
// in <a>/<img> so the output is self-contained.
func (m *markdownConverter) convert(htmlContent, domain string) (string, error) {
	return m.conv.ConvertString(htmlContent, converter.WithDomain(domain))
}
