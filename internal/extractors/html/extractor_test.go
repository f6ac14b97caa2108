package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally/internal/core/domain"
)

func TestNew(t *testing.T) {
	e := New()
	require.NotNil(t, e)
	assert.Equal(t, "html", e.Name())
	assert.Contains(t, e.SupportedMIMETypes(), "text/html")
	assert.Equal(t, 50, e.Priority())
}

func TestExtract_NilDocument(t *testing.T) {
	result, err := New().Extract(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestExtract_StripsScriptsAndStyles(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head><title> Green Finance </title>
<style>body { color: red }</style>
<script>var bond = "green bond";</script></head>
<body>
  <h1>Market update</h1>
  <p>The <b>green bond</b> market
     grew.<br>Second line.</p>
  <noscript>enable javascript</noscript>
  <script>track("bond fund")</script>
  <div>Closing <span>remarks</span></div>
</body></html>`

	result, err := New().Extract(context.Background(), &domain.Document{Content: []byte(page)})

	require.NoError(t, err)
	assert.Equal(t, "Green Finance", result.Title)
	require.Len(t, result.Blocks, 3)
	assert.Equal(t, "Market update", result.Blocks[0].Text)
	assert.Equal(t, "The green bond market grew.\nSecond line.", result.Blocks[1].Text)
	assert.Equal(t, "Closing remarks", result.Blocks[2].Text)
	for _, b := range result.Blocks {
		assert.NotContains(t, b.Text, "color")
		assert.NotContains(t, b.Text, "track")
		assert.NotContains(t, b.Text, "javascript")
	}
}

func TestExtract_TablesAreTabular(t *testing.T) {
	page := `<html><body><p>Holdings</p>
<table><tr><th>Name</th><th>Type</th></tr>
<tr><td>Fund A</td><td>bond fund</td></tr></table></body></html>`

	result, err := New().Extract(context.Background(), &domain.Document{Content: []byte(page)})

	require.NoError(t, err)
	require.Len(t, result.Blocks, 3)
	assert.Equal(t, domain.BlockText, result.Blocks[0].Kind)
	assert.Equal(t, domain.BlockTable, result.Blocks[1].Kind)
	assert.Equal(t, "Name\tType", result.Blocks[1].Text)
	assert.Equal(t, "Fund A\tbond fund", result.Blocks[2].Text)
	assert.Equal(t, 2, result.Blocks[2].Offset)
}

func TestExtract_CharsetFromHint(t *testing.T) {
	content := []byte("<html><body><p>caf\xe9</p></body></html>")

	result, err := New().Extract(context.Background(), &domain.Document{
		Content:  content,
		MIMEHint: "text/html; charset=iso-8859-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "café", result.Blocks[0].Text)
}

func TestExtract_TitleFallsBackToFilename(t *testing.T) {
	result, err := New().Extract(context.Background(), &domain.Document{
		Filename: "/tmp/page.html",
		Content:  []byte("<p>hello</p>"),
	})

	require.NoError(t, err)
	assert.Equal(t, "page", result.Title)
}
