// Package view renders the server-side admin pages. The page shell is a templ
// component; page bodies are gomponents nodes refreshed over htmx.
package view

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const htmxScript = "https://unpkg.com/htmx.org@2.0.4"

// PageTitle suffixes a page title with the application name.
func PageTitle(title string) string {
	if title != "" {
		return title + " - SmartShop"
	}
	return "SmartShop"
}

// Layout wraps body in the HTML document shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">` +
			`<meta name="viewport" content="width=device-width, initial-scale=1">` +
			`<title>` + templ.EscapeString(PageTitle(title)) + `</title>` +
			`<script src="` + htmxScript + `"></script>` +
			`</head><body class="bg-gray-50 text-gray-900">`
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}
