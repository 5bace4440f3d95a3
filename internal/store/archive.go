package store

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// markdownArchive converts the captured report to markdown for a readable,
// diffable archive next to the verbatim HTML. The document is sanitized
// first: glamorgan ships its scripts and inline styles along, and those
// have no place in an archive.
func markdownArchive(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	sanitized := bluemonday.UGCPolicy().Sanitize(html)

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md, err := conv.ConvertString(sanitized)
	if err != nil {
		return "", err
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	return md + "\n", nil
}
