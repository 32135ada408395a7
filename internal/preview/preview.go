package preview

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"medvault-server/internal/apperr"
	"medvault-server/internal/model"

	"github.com/gin-gonic/gin"
)

// Largest text file returned inline.
const maxInlineText = 1 << 20

// FileSource is the part of the drive the preview handler needs.
type FileSource interface {
	Get(ctx context.Context, id string) (*model.Entry, error)
	DownloadURL(ctx context.Context, id string) (string, error)
	Open(ctx context.Context, id string) (*model.Entry, io.ReadCloser, error)
}

type PreviewHandler struct {
	files FileSource
}

func NewPreviewHandler(files FileSource) *PreviewHandler {
	return &PreviewHandler{files: files}
}

// GetPreview handles GET /api/preview/:id - Get preview URL or content
func (h *PreviewHandler) GetPreview(c *gin.Context) {
	ctx := c.Request.Context()

	n, err := h.files.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if n.IsFolder() {
		fail(c, apperr.Validation("folders have no preview"))
		return
	}

	ext := strings.ToLower(filepath.Ext(n.Name))
	mimeType := n.File.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = getMimeTypeFromExt(ext)
	}

	// For text files, return content directly
	if isTextFile(mimeType) && n.File.SizeBytes <= maxInlineText {
		_, object, err := h.files.Open(ctx, n.ID)
		if err != nil {
			fail(c, err)
			return
		}
		defer object.Close()

		content, err := io.ReadAll(io.LimitReader(object, maxInlineText))
		if err != nil {
			fail(c, apperr.Remote("read file", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"type":      "text",
			"content":   string(content),
			"mime_type": mimeType,
			"file_name": n.Name,
		})
		return
	}

	fileURL, err := h.files.DownloadURL(ctx, n.ID)
	if err != nil {
		fail(c, err)
		return
	}

	switch {
	case ext == ".pdf" || mimeType == "application/pdf":
		c.JSON(http.StatusOK, gin.H{
			"type":      "pdf",
			"url":       getPDFPreviewURL(fileURL),
			"raw_url":   fileURL,
			"mime_type": mimeType,
			"file_name": n.Name,
		})
	case strings.HasPrefix(mimeType, "image/"):
		c.JSON(http.StatusOK, gin.H{
			"type":      "image",
			"url":       fileURL,
			"mime_type": mimeType,
			"file_name": n.Name,
		})
	default:
		// Fallback to direct URL
		c.JSON(http.StatusOK, gin.H{
			"type":      "url",
			"url":       fileURL,
			"mime_type": mimeType,
			"file_name": n.Name,
		})
	}
}

func fail(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err)})
}

// isTextFile checks if MIME type is a text file
func isTextFile(mimeType string) bool {
	textTypes := []string{
		"text/",
		"application/json",
		"application/xml",
	}

	for _, t := range textTypes {
		if strings.HasPrefix(mimeType, t) {
			return true
		}
	}
	return false
}

// getMimeTypeFromExt gets MIME type from file extension
func getMimeTypeFromExt(ext string) string {
	mimeTypes := map[string]string{
		".txt":  "text/plain",
		".md":   "text/markdown",
		".csv":  "text/csv",
		".json": "application/json",
		".xml":  "application/xml",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".heic": "image/heic",
		".dcm":  "application/dicom",
		".pdf":  "application/pdf",
	}

	if mimeType, ok := mimeTypes[ext]; ok {
		return mimeType
	}
	return "application/octet-stream"
}

// getPDFPreviewURL generates PDF preview URL using PDF.js
func getPDFPreviewURL(fileURL string) string {
	return "/pdfjs/web/viewer.html?file=" + url.QueryEscape(fileURL)
}
