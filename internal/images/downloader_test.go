package images

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	responses map[string]fakeResponse
	fetched   []string
}

type fakeResponse struct {
	status int
	body   []byte
	err    error
}

func (f *fakeFetcher) Fetch(url string) (int, []byte, error) {
	f.fetched = append(f.fetched, url)
	resp, ok := f.responses[url]
	if !ok {
		return 0, nil, errors.New("unexpected URL")
	}
	return resp.status, resp.body, resp.err
}

func TestDownloadAll(t *testing.T) {
	logger := slog.Default()

	t.Run("skips failed downloads and preserves order", func(t *testing.T) {
		dir := t.TempDir()

		fetcher := &fakeFetcher{responses: map[string]fakeResponse{
			"https://img.example.com/one.jpg":   {status: http.StatusOK, body: []byte("one")},
			"https://img.example.com/two.jpg":   {status: http.StatusForbidden},
			"https://img.example.com/three.jpg": {status: http.StatusOK, body: []byte("three")},
		}}

		d := NewDownloader(fetcher, logger)
		local, err := d.DownloadAll([]string{
			"https://img.example.com/one.jpg",
			"https://img.example.com/two.jpg",
			"https://img.example.com/three.jpg",
		}, dir)
		require.NoError(t, err)

		require.Len(t, local, 2)
		assert.Equal(t, filepath.Join(dir, "main_01.jpg"), local[0])
		assert.Equal(t, filepath.Join(dir, "main_03.jpg"), local[1])

		data, err := os.ReadFile(local[1])
		require.NoError(t, err)
		assert.Equal(t, []byte("three"), data)
	})

	t.Run("fetch errors are tolerated", func(t *testing.T) {
		dir := t.TempDir()

		fetcher := &fakeFetcher{responses: map[string]fakeResponse{
			"https://img.example.com/broken.jpg": {err: errors.New("connection reset")},
		}}

		d := NewDownloader(fetcher, logger)
		local, err := d.DownloadAll([]string{"https://img.example.com/broken.jpg"}, dir)
		require.NoError(t, err)
		assert.Empty(t, local)
	})

	t.Run("protocol relative URLs get https", func(t *testing.T) {
		dir := t.TempDir()

		fetcher := &fakeFetcher{responses: map[string]fakeResponse{
			"https://img.example.com/rel.jpg": {status: http.StatusOK, body: []byte("x")},
		}}

		d := NewDownloader(fetcher, logger)
		local, err := d.DownloadAll([]string{"//img.example.com/rel.jpg"}, dir)
		require.NoError(t, err)
		require.Len(t, local, 1)
		assert.Equal(t, []string{"https://img.example.com/rel.jpg"}, fetcher.fetched)
	})

	t.Run("png assets keep their extension", func(t *testing.T) {
		dir := t.TempDir()

		fetcher := &fakeFetcher{responses: map[string]fakeResponse{
			"https://img.example.com/icon.png": {status: http.StatusOK, body: []byte("p")},
		}}

		d := NewDownloader(fetcher, logger)
		local, err := d.DownloadAll([]string{"https://img.example.com/icon.png"}, dir)
		require.NoError(t, err)
		require.Len(t, local, 1)
		assert.Equal(t, filepath.Join(dir, "main_01.png"), local[0])
	})
}
