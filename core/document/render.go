package document

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
	appfs "github.com/sumano/oms/fs"
)

var (
	printShell     *htmltmpl.Template
	printShellInit sync.Once

	// parsed template bodies, keyed by "<templateID>:<version>".
	// published templates are immutable so entries never go stale,
	// they only fall out by expiry.
	parsedCache = gocache.New(2*time.Hour, 10*time.Minute)

	sanitizer = newSanitizer()
)

func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("style").OnElements("table", "tr", "td", "th", "p", "div", "span", "h1", "h2", "h3")
	p.AllowTables()
	return p
}

func checkTemplateSyntax(content string) error {
	if _, err := htmltmpl.New("body").Parse(content); err != nil {
		return core.NewValidationError(err, core.FieldError{
			Field: "content", Error: fmt.Sprintf("invalid template: %v", err),
		})
	}
	return nil
}

func parsedBody(tmpl Template) (*htmltmpl.Template, error) {
	key := fmt.Sprintf("%s:%d", tmpl.ID, tmpl.Version)
	if cached, ok := parsedCache.Get(key); ok {
		return cached.(*htmltmpl.Template), nil
	}
	parsed, err := htmltmpl.New("body").Option("missingkey=error").Parse(tmpl.Content)
	if err != nil {
		return nil, errors.Wrap(err, "parsing document template")
	}
	parsedCache.SetDefault(key, parsed)
	return parsed, nil
}

func loadPrintShell() {
	data, err := fs.ReadFile(appfs.FS, "templates/documents/_print.gohtml")
	if err != nil {
		panic(errors.Wrap(err, "document print shell missing"))
	}
	printShell = htmltmpl.Must(htmltmpl.New("_print").Parse(string(data)))
}

type shellData struct {
	Title       string
	DocType     string
	GeneratedAt time.Time
	Body        htmltmpl.HTML
}

// render executes a template body with the given data, sanitizes the result
// and wraps it in the printable page shell.
func render(tmpl Template, title string, data map[string]interface{}) (string, error) {
	printShellInit.Do(loadPrintShell)

	body, err := parsedBody(tmpl)
	if err != nil {
		return "", err
	}
	var buff bytes.Buffer
	if err = body.Execute(&buff, data); err != nil {
		return "", core.NewValidationError(err, core.FieldError{
			Field: "data", Error: fmt.Sprintf("rendering failed: %v", err),
		})
	}
	safe := sanitizer.SanitizeBytes(buff.Bytes())

	var out bytes.Buffer
	err = printShell.Execute(&out, shellData{
		Title:       title,
		DocType:     tmpl.DocType,
		GeneratedAt: time.Now(),
		Body:        htmltmpl.HTML(safe), // sanitized above
	})
	if err != nil {
		return "", errors.Wrap(err, "rendering document shell")
	}
	return out.String(), nil
}
