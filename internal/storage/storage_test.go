package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storefront/internal/config"
	"storefront/internal/storage"

	"github.com/stretchr/testify/assert"
)

func TestLocalDisk_PutURLDelete(t *testing.T) {
	root := t.TempDir()
	disk, err := storage.NewLocalDisk(root, "/uploads/")
	assert.NoError(t, err)

	ctx := context.Background()
	err = disk.Put(ctx, "products/a.png", strings.NewReader("png-bytes"), "image/png")
	assert.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "products", "a.png"))
	assert.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "/uploads/products/a.png", disk.URL("products/a.png"))

	assert.NoError(t, disk.Delete(ctx, "products/a.png"))
	assert.NoError(t, disk.Delete(ctx, "products/a.png"))
	_, err = os.Stat(filepath.Join(root, "products", "a.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalDisk_RejectsEscapingKeys(t *testing.T) {
	disk, err := storage.NewLocalDisk(t.TempDir(), "/uploads")
	assert.NoError(t, err)
	err = disk.Put(context.Background(), "../outside.png", strings.NewReader("x"), "")
	assert.Error(t, err)
}

func TestImageKey(t *testing.T) {
	key, err := storage.ImageKey("Photo.JPG")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "products/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	_, err = storage.ImageKey("script.sh")
	assert.Error(t, err)
}

func TestNew_Drivers(t *testing.T) {
	disk, err := storage.New(config.StorageConfig{Driver: "local", LocalRoot: t.TempDir(), URL: "/uploads"})
	assert.NoError(t, err)
	assert.IsType(t, &storage.LocalDisk{}, disk)

	_, err = storage.New(config.StorageConfig{Driver: "s3"})
	assert.Error(t, err)

	_, err = storage.New(config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
