package api

import (
	"fmt"
	"net/http"

	"medvault-server/internal/apperr"
	"medvault-server/internal/drive"
	"medvault-server/internal/hierarchy"

	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	files *drive.Service
}

func NewFileHandler(files *drive.Service) *FileHandler {
	return &FileHandler{files: files}
}

// CreateFolderRequest represents a create folder request
type CreateFolderRequest struct {
	Name     string  `json:"name" binding:"required"`
	ParentID *string `json:"parent_id"`
}

// RenameRequest represents a rename request
type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// MoveRequest represents a move request. A null parent_id moves to the root.
type MoveRequest struct {
	ParentID *string `json:"parent_id"`
}

// GetFiles handles GET /api/files - List a folder, folders first
func (h *FileHandler) GetFiles(c *gin.Context) {
	entries, err := h.files.ListChildren(c.Request.Context(), parseParentID(c.Query("parent_id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hierarchy.Compose(entries))
}

// CreateFolder handles POST /api/files/folder - Create folder
func (h *FileHandler) CreateFolder(c *gin.Context) {
	var req CreateFolderRequest
	if !bindJSON(c, &req) {
		return
	}
	var parent *string
	if req.ParentID != nil {
		parent = parseParentID(*req.ParentID)
	}

	folder, err := h.files.CreateFolder(c.Request.Context(), req.Name, parent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, folder)
}

// UploadFile handles POST /api/files/upload - Upload file
func (h *FileHandler) UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeValidation, "no file provided", err))
		return
	}

	// Open uploaded file
	src, err := file.Open()
	if err != nil {
		respondError(c, apperr.Wrap(apperr.CodeValidation, "unreadable upload", err))
		return
	}
	defer src.Close()

	entry, err := h.files.UploadFile(c.Request.Context(), drive.Upload{
		Name:     file.Filename,
		MimeType: file.Header.Get("Content-Type"),
		Size:     file.Size,
		ParentID: parseParentID(c.PostForm("parent_id")),
		Body:     src,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// GetFileTree handles GET /api/files/tree - Folder tree
func (h *FileHandler) GetFileTree(c *gin.Context) {
	tree, err := h.files.Tree(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tree": tree})
}

// SearchFiles handles GET /api/files/search?q= - Search by name
func (h *FileHandler) SearchFiles(c *gin.Context) {
	found, err := h.files.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": found, "total": len(found)})
}

// GetFile handles GET /api/files/:id
func (h *FileHandler) GetFile(c *gin.Context) {
	entry, err := h.files.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetDownloadURL handles GET /api/files/:id/url - Presigned URL
func (h *FileHandler) GetDownloadURL(c *gin.Context) {
	u, err := h.files.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u})
}

// DownloadFile handles GET /api/files/:id/download - Stream bytes
func (h *FileHandler) DownloadFile(c *gin.Context) {
	entry, rc, err := h.files.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, entry.File.SizeBytes, entry.File.MimeType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", entry.Name),
	})
}

// GetPath handles GET /api/files/:id/path - Breadcrumbs
func (h *FileHandler) GetPath(c *gin.Context) {
	path, err := h.files.Path(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

// RenameFile handles PUT /api/files/:id - Rename
func (h *FileHandler) RenameFile(c *gin.Context) {
	var req RenameRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.files.Rename(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// MoveFile handles PUT /api/files/:id/move
func (h *FileHandler) MoveFile(c *gin.Context) {
	var req MoveRequest
	if !bindJSON(c, &req) {
		return
	}
	var parent *string
	if req.ParentID != nil {
		parent = parseParentID(*req.ParentID)
	}
	entry, err := h.files.Move(c.Request.Context(), c.Param("id"), parent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteFile handles DELETE /api/files/:id - Folders are removed with their contents
func (h *FileHandler) DeleteFile(c *gin.Context) {
	if err := h.files.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}
