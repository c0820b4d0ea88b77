package zendesk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text content"), 0o644))

	var gotFilename string
	var gotBody []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/uploads.json", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotFilename = r.URL.Query().Get("filename")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]any{"upload": map[string]any{"token": "tok-123"}})
	})
	c := newTestClient(t, mux)

	up, err := c.UploadAttachment(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", gotFilename)
	assert.Equal(t, "plain text content", string(gotBody))
	assert.Equal(t, "tok-123", up.Token)
	assert.Equal(t, "notes.txt", up.Filename)
	assert.Equal(t, int64(len("plain text content")), up.Size)
	assert.Contains(t, up.ContentType, "text/plain")
}

func TestUploadAttachmentMissingFile(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	_, err := c.UploadAttachment(context.Background(), "/nonexistent/file.bin")
	assert.True(t, IsValidation(err))
}

func TestGetTicketAttachmentsFlattensComments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tickets/7/comments.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"comments": []map[string]any{
				{
					"id": 1, "author_id": 10, "created_at": "2024-01-01T00:00:00Z",
					"attachments": []map[string]any{
						{"id": 100, "file_name": "log.txt", "content_url": "https://cdn/log.txt", "content_type": "text/plain", "size": 1024 * 1024},
						{"id": 101, "file_name": "shot.png", "content_url": "https://cdn/shot.png", "content_type": "image/png", "size": 512 * 1024},
					},
				},
				{"id": 2, "created_at": "2024-01-02T00:00:00Z"},
			},
		})
	})
	c := newTestClient(t, mux)

	list, err := c.GetTicketAttachments(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), list.TicketID)
	assert.Equal(t, 2, list.TotalCount)
	assert.Equal(t, int64(1024*1024+512*1024), list.TotalSize)
	assert.Equal(t, 1.5, list.TotalSizeMB)

	first := list.Attachments[0]
	assert.Equal(t, int64(100), first.ID)
	assert.Equal(t, "log.txt", first.Filename)
	assert.Equal(t, int64(1), first.CommentID)
	require.NotNil(t, first.AuthorID)
	assert.Equal(t, int64(10), *first.AuthorID)
}

func TestDownloadAttachmentMetadataOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/attachments/100.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"attachment": map[string]any{
			"id": 100, "file_name": "log.txt", "content_url": "https://cdn/log.txt",
			"content_type": "text/plain", "size": 42,
		}})
	})
	c := newTestClient(t, mux)

	dl, err := c.DownloadAttachment(context.Background(), 100, "")
	require.NoError(t, err)
	assert.Equal(t, "log.txt", dl.Filename)
	assert.Equal(t, "https://cdn/log.txt", dl.ContentURL)
	assert.False(t, dl.Downloaded)
	assert.NotEmpty(t, dl.Note)
}

func TestDownloadAttachmentSavesToDisk(t *testing.T) {
	mux := http.NewServeMux()
	var contentURL string
	mux.HandleFunc("/attachments/100.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"attachment": map[string]any{
			"id": 100, "file_name": "log.txt", "content_url": contentURL,
			"content_type": "text/plain", "size": 12,
		}})
	})
	mux.HandleFunc("/content/log.txt", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "pre-signed content URLs carry no auth")
		io.WriteString(w, "file content")
	})
	c := newTestClient(t, mux)
	contentURL = c.baseURL + "/content/log.txt"

	savePath := filepath.Join(t.TempDir(), "nested", "log.txt")
	dl, err := c.DownloadAttachment(context.Background(), 100, savePath)
	require.NoError(t, err)
	assert.True(t, dl.Downloaded)
	assert.Equal(t, savePath, dl.SavedTo)

	saved, err := os.ReadFile(savePath)
	require.NoError(t, err)
	assert.Equal(t, "file content", string(saved))
}

func TestDownloadAttachmentMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/attachments/9.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	})
	c := newTestClient(t, mux)

	_, err := c.DownloadAttachment(context.Background(), 9, "")
	assert.True(t, IsValidation(err))
}
