package model

import "time"

// Kind discriminates drive entries.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Entry is a file or folder in a user's drive. Folders carry no File metadata.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"type"`
	OwnerID   string    `json:"owner_id"`
	ParentID  *string   `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
	File      *FileMeta `json:"file,omitempty"`
}

// FileMeta describes the stored bytes of a file entry.
type FileMeta struct {
	StorageRef string `json:"-"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size"`
	Checksum   string `json:"checksum"`
}

func (e *Entry) IsFolder() bool {
	return e.Kind == KindFolder
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	c := *e
	if e.ParentID != nil {
		p := *e.ParentID
		c.ParentID = &p
	}
	if e.File != nil {
		f := *e.File
		c.File = &f
	}
	return &c
}

// ParentKey returns the parent id, or "" for entries at the root.
func (e *Entry) ParentKey() string {
	if e.ParentID == nil {
		return ""
	}
	return *e.ParentID
}

// StorageUsage summarizes the bytes a user keeps in the drive.
type StorageUsage struct {
	UsedBytes  int64   `json:"used_bytes"`
	LimitBytes int64   `json:"limit_bytes"`
	Percentage float64 `json:"percentage"`
	Used       string  `json:"used"`
	Limit      string  `json:"limit"`
}
