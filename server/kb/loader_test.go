package kb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownToText(t *testing.T) {
	src := []byte("# Refund Policy\n\nRefunds are issued within **5 business days**.\n\n- Contact support\n- Provide your order id\n\n```\ndeskpilot refund --order 42\n```\n")
	text := MarkdownToText(src)

	assert.Contains(t, text, "Refund Policy")
	assert.Contains(t, text, "Refunds are issued within 5 business days.")
	assert.Contains(t, text, "Contact support")
	assert.Contains(t, text, "deskpilot refund --order 42")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "```")
}

func TestLoadDocumentMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "billing-faq.md")
	require.NoError(t, os.WriteFile(path, []byte("# Billing\n\nHow *refunds* work."), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "billing-faq", doc.ID)
	assert.Equal(t, "billing-faq", doc.Title)
	assert.Contains(t, doc.Text, "How refunds work.")
	assert.Equal(t, path, doc.Metadata["source"])
}

func TestLoadDocumentPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("verbatim *text*"), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "verbatim *text*", doc.Text)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("beta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.json"), []byte("{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	docs, err := LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	ids := []string{docs[0].ID, docs[1].ID}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestLoadDirectoryMissing(t *testing.T) {
	_, err := LoadDirectory(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
