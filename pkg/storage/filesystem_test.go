package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
)

func newFSStore(t *testing.T) *FilesystemStore {
	t.Helper()
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestFilesystemStore_PutGet(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()

	err := store.Put(ctx, "logos/42.png", strings.NewReader("png bytes"), "image/png")
	require.NoError(t, err)

	body, contentType, err := store.Get(ctx, "logos/42.png")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
	assert.Equal(t, "image/png", contentType)
}

func TestFilesystemStore_Overwrite(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "logos/42.png", strings.NewReader("v1"), "image/png"))
	require.NoError(t, store.Put(ctx, "logos/42.png", strings.NewReader("v2"), "image/jpeg"))

	body, contentType, err := store.Get(ctx, "logos/42.png")
	require.NoError(t, err)
	defer body.Close()

	data, _ := io.ReadAll(body)
	assert.Equal(t, "v2", string(data))
	assert.Equal(t, "image/jpeg", contentType)
}

func TestFilesystemStore_GetMissing(t *testing.T) {
	store := newFSStore(t)

	_, _, err := store.Get(context.Background(), "logos/none.png")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestFilesystemStore_Delete(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "logos/42.png", strings.NewReader("png bytes"), "image/png"))
	require.NoError(t, store.Delete(ctx, "logos/42.png"))

	exists, err := store.Exists(ctx, "logos/42.png")
	require.NoError(t, err)
	assert.False(t, exists)

	err = store.Delete(ctx, "logos/42.png")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestFilesystemStore_RejectsTraversal(t *testing.T) {
	store := newFSStore(t)

	err := store.Put(context.Background(), "../outside.txt", strings.NewReader("x"), "text/plain")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestNew_SelectsBackend(t *testing.T) {
	store, err := New(Config{Type: "filesystem", FilesystemRoot: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FilesystemStore{}, store)
}
