package zendesk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// maxUploadSize is the API's attachment size limit.
const maxUploadSize = 50 * 1024 * 1024

// Upload is the result of pushing a file to the uploads endpoint. The
// token attaches the file to a ticket comment and expires after 60
// minutes.
type Upload struct {
	Token       string `json:"token"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	ExpiresAt   string `json:"expires_at"`
	Note        string `json:"note"`
}

// UploadAttachment uploads a local file and returns the attachment
// token to reference it from a ticket comment.
func (c *Client) UploadAttachment(ctx context.Context, filePath string) (*Upload, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, validationErrorf("file not found: %s", filePath)
	}
	if info.Size() > maxUploadSize {
		return nil, validationErrorf("file size (%d bytes) exceeds 50 MB limit", info.Size())
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, validationErrorf("read %s: %v", filePath, err)
	}

	filename := filepath.Base(filePath)
	contentType := http.DetectContentType(content)
	uploadURL := c.baseURL + "/uploads.json?filename=" + url.QueryEscape(filename)
	body, err := c.doWithRetry(ctx, http.MethodPost, uploadURL, content, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	var payload struct {
		Upload struct {
			Token string `json:"token"`
		} `json:"upload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &APIError{Body: fmt.Sprintf("invalid JSON from upload: %v", err), URL: uploadURL}
	}
	return &Upload{
		Token:       payload.Upload.Token,
		Filename:    filename,
		Size:        info.Size(),
		ContentType: contentType,
		ExpiresAt:   "Token expires in 60 minutes",
		Note:        "Use this token in the uploads array when creating/updating a ticket comment",
	}, nil
}

// TicketAttachment is one attachment found on a ticket's comments,
// annotated with the comment it belongs to.
type TicketAttachment struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	ContentURL  string `json:"content_url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	CommentID   int64  `json:"comment_id"`
	CreatedAt   string `json:"created_at"`
	AuthorID    *int64 `json:"author_id"`
}

// TicketAttachmentList aggregates every attachment across all comments
// of one ticket.
type TicketAttachmentList struct {
	TicketID    int64              `json:"ticket_id"`
	Attachments []TicketAttachment `json:"attachments"`
	TotalCount  int                `json:"total_count"`
	TotalSize   int64              `json:"total_size"`
	TotalSizeMB float64            `json:"total_size_mb"`
}

// GetTicketAttachments collects the attachments from every comment on
// a ticket.
func (c *Client) GetTicketAttachments(ctx context.Context, ticketID int64) (*TicketAttachmentList, error) {
	comments := make([]Comment, 0)
	pageURL := fmt.Sprintf("%s/tickets/%d/comments.json", c.baseURL, ticketID)
	for pageURL != "" {
		var payload struct {
			Comments []Comment `json:"comments"`
			NextPage *string   `json:"next_page"`
		}
		if err := c.getInto(ctx, pageURL, &payload); err != nil {
			return nil, fmt.Errorf("get attachments for ticket %d: %w", ticketID, err)
		}
		comments = append(comments, payload.Comments...)
		pageURL = ""
		if payload.NextPage != nil {
			pageURL = *payload.NextPage
		}
	}

	result := &TicketAttachmentList{
		TicketID:    ticketID,
		Attachments: make([]TicketAttachment, 0),
	}
	for _, cm := range comments {
		for _, a := range cm.Attachments {
			result.Attachments = append(result.Attachments, TicketAttachment{
				ID:          a.ID,
				Filename:    a.FileName,
				ContentURL:  a.ContentURL,
				ContentType: a.ContentType,
				Size:        a.Size,
				CommentID:   cm.ID,
				CreatedAt:   cm.CreatedAt,
				AuthorID:    cm.AuthorID,
			})
			result.TotalSize += a.Size
		}
	}
	result.TotalCount = len(result.Attachments)
	result.TotalSizeMB = round2(float64(result.TotalSize) / (1024 * 1024))
	return result, nil
}

// AttachmentDownload describes one attachment, optionally saved to
// disk.
type AttachmentDownload struct {
	AttachmentID int64  `json:"attachment_id"`
	Filename     string `json:"filename"`
	ContentURL   string `json:"content_url"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
	SavedTo      string `json:"saved_to,omitempty"`
	Downloaded   bool   `json:"downloaded,omitempty"`
	Note         string `json:"note,omitempty"`
}

// DownloadAttachment resolves an attachment's metadata and, when
// savePath is nonempty, downloads the content to that path. The
// content URL is pre-signed and needs no auth header.
func (c *Client) DownloadAttachment(ctx context.Context, attachmentID int64, savePath string) (*AttachmentDownload, error) {
	var payload struct {
		Attachment *Attachment `json:"attachment"`
	}
	metaURL := fmt.Sprintf("%s/attachments/%d.json", c.baseURL, attachmentID)
	if err := c.getInto(ctx, metaURL, &payload); err != nil {
		return nil, fmt.Errorf("get attachment %d: %w", attachmentID, err)
	}
	if payload.Attachment == nil {
		return nil, validationErrorf("attachment %d not found", attachmentID)
	}

	result := &AttachmentDownload{
		AttachmentID: attachmentID,
		Filename:     payload.Attachment.FileName,
		ContentURL:   payload.Attachment.ContentURL,
		ContentType:  payload.Attachment.ContentType,
		Size:         payload.Attachment.Size,
	}
	if savePath == "" {
		result.Note = "Use content_url to download the file. Provide save_path to auto-download."
		return result, nil
	}
	if result.ContentURL == "" {
		return nil, validationErrorf("no content_url available for attachment %d", attachmentID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.ContentURL, nil)
	if err != nil {
		return nil, validationErrorf("invalid content URL %q: %v", result.ContentURL, err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body), URL: result.ContentURL}
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if dir := filepath.Dir(savePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, validationErrorf("create directory %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(savePath, content, 0o644); err != nil {
		return nil, validationErrorf("save attachment to %s: %v", savePath, err)
	}
	result.SavedTo = savePath
	result.Downloaded = true
	return result, nil
}
