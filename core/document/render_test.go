package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tmpl := Template{
		ID:      "t1",
		Name:    "Handover Certificate",
		DocType: TypeHandover,
		Version: 1,
		Status:  TemplatePublished,
		Content: `<h2>Project {{.project_name}}</h2><p>Completion: {{.completion}}%</p>`,
	}

	html, err := render(tmpl, "Pilot Handover", map[string]interface{}{
		"project_name": "Acme School Website",
		"completion":   100,
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<title>Pilot Handover</title>")
	assert.Contains(t, html, "Project Acme School Website")
	assert.Contains(t, html, "Completion: 100%")
}

func TestRenderStripsUnsafeMarkup(t *testing.T) {
	tmpl := Template{
		ID:      "t2",
		DocType: TypeLegal,
		Version: 1,
		Status:  TemplatePublished,
		Content: `<p>ok</p><script>alert({{.x}})</script><iframe src="https://evil.example"></iframe>`,
	}

	html, err := render(tmpl, "Terms", map[string]interface{}{"x": 1})
	require.NoError(t, err)
	assert.Contains(t, html, "<p>ok</p>")
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "<iframe")
}

func TestRenderKeepsStyledTables(t *testing.T) {
	tmpl := Template{
		ID:      "t4",
		DocType: TypeAcceptance,
		Version: 1,
		Status:  TemplatePublished,
		Content: `<table style="width:100%"><tr><th>Item</th></tr><tr><td style="padding:4px">{{.item}}</td></tr></table>`,
	}

	html, err := render(tmpl, "Acceptance", map[string]interface{}{"item": "Signed off"})
	require.NoError(t, err)
	assert.Contains(t, html, "<table style=")
	assert.Contains(t, html, `<td style="padding:4px">Signed off</td>`)
}

func TestRenderMissingDataKey(t *testing.T) {
	tmpl := Template{
		ID:      "t3",
		DocType: TypeChange,
		Version: 1,
		Status:  TemplatePublished,
		Content: `<p>{{.request_number}}</p>`,
	}

	_, err := render(tmpl, "Change", map[string]interface{}{})
	assert.Error(t, err)
}

func TestCheckTemplateSyntax(t *testing.T) {
	assert.NoError(t, checkTemplateSyntax(`<p>{{.name}}</p>`))
	assert.Error(t, checkTemplateSyntax(`<p>{{.name</p>`))
}
