package imagestore

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain name", input: "photo.jpg", expected: "photo.jpg"},
		{name: "unicode kept", input: "工地照片.png", expected: "工地照片.png"},
		{name: "path traversal", input: "../../etc/passwd", expected: "etc passwd"},
		{name: "windows separators", input: `C:\temp\a.png`, expected: "C  temp a.png"},
		{name: "control characters", input: "a\x00b\nc.gif", expected: "abc.gif"},
		{name: "trailing dots", input: "photo.. ", expected: "photo"},
		{name: "only dots", input: "..", expected: ""},
		{name: "empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeName(tt.input))
		})
	}
}

func TestIsImageName(t *testing.T) {
	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.Gif", "e.bmp"} {
		assert.True(t, IsImageName(name), name)
	}
	for _, name := range []string{"a.docx", "b.webp", "noext", "png"} {
		assert.False(t, IsImageName(name), name)
	}
}

func TestPersist(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Persist("site.png", strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, "site.png", ref.FileName)
	assert.Equal(t, filepath.Join(store.Dir(), "site.png"), ref.StoredPath)

	second, err := store.Persist("site.png", strings.NewReader("second"))
	require.NoError(t, err)
	assert.Equal(t, "site (1).png", second.FileName)

	data, err := os.ReadFile(ref.StoredPath)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	data, err = os.ReadFile(second.StoredPath)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestPersistStaysInsideDirectory(t *testing.T) {
	root := t.TempDir()
	store, err := New(filepath.Join(root, "work"))
	require.NoError(t, err)

	ref, err := store.Persist("../escape.png", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, store.Dir(), filepath.Dir(ref.StoredPath))
	assert.NoFileExists(t, filepath.Join(root, "escape.png"))
}

func TestPersistRejectsEmptyName(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Persist("/", strings.NewReader("x"))
	require.ErrorIs(t, err, apperr.ErrStorage)
}

func TestPurgeImages(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.gif", "e.bmp", "report_1.docx", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0755))

	removed, err := store.PurgeImages()
	require.NoError(t, err)
	sort.Strings(removed)
	assert.Equal(t, []string{"a.png", "b.JPG", "c.jpeg", "d.gif", "e.bmp"}, removed)

	assert.FileExists(t, filepath.Join(dir, "report_1.docx"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	assert.DirExists(t, filepath.Join(dir, "nested.png"))

	removed, err = store.PurgeImages()
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestPurgeImagesMissingDirectory(t *testing.T) {
	store := &Store{dir: filepath.Join(t.TempDir(), "gone")}
	removed, err := store.PurgeImages()
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestRemoveNamed(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Site A_1700000000.docx"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	require.NoError(t, store.RemoveNamed("Site A_1700000000.docx"))
	assert.NoFileExists(t, filepath.Join(dir, "Site A_1700000000.docx"))

	require.ErrorIs(t, store.RemoveNamed("Site A_1700000000.docx"), apperr.ErrNotFound)
	require.ErrorIs(t, store.RemoveNamed("../secret"), apperr.ErrNotFound)
	require.ErrorIs(t, store.RemoveNamed("sub"), apperr.ErrNotFound)
	require.ErrorIs(t, store.RemoveNamed(""), apperr.ErrNotFound)
}

func TestWorkspace(t *testing.T) {
	root := t.TempDir()

	first, err := NewWorkspace(root)
	require.NoError(t, err)
	second, err := NewWorkspace(root)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = first.Persist("a.png", strings.NewReader("1"))
	require.NoError(t, err)
	_, err = second.Persist("a.png", strings.NewReader("2"))
	require.NoError(t, err)

	removed, err := first.Close()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, removed)
	assert.NoDirExists(t, first.Dir())

	// 另一个请求的图片不受影响
	assert.FileExists(t, filepath.Join(second.Dir(), "a.png"))
	_, err = second.Close()
	require.NoError(t, err)
}
