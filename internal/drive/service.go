package drive

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"medvault-server/internal/apperr"
	"medvault-server/internal/auth"
	"medvault-server/internal/hierarchy"
	"medvault-server/internal/logger"
	"medvault-server/internal/metrics"
	"medvault-server/internal/model"
	"medvault-server/internal/safemap"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/xid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"lukechampine.com/blake3"
)

// BlobStore holds file bytes. Put returns the ref recorded on the entry.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	URL(ctx context.Context, ref string, ttl time.Duration) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// Options tune a Service. Zero values fall back to defaults.
type Options struct {
	QuotaBytes    int64
	URLExpiration time.Duration
	CacheSize     int
	CacheTTL      time.Duration
}

const (
	defaultQuota     = 500 * 1024 * 1024
	defaultURLTTL    = time.Hour
	defaultCacheSize = 1024
	defaultCacheTTL  = time.Minute

	sniffLen = 3072
)

// Upload is one incoming file.
type Upload struct {
	Name     string    `validate:"required,max=255"`
	MimeType string    `validate:"omitempty,max=255"`
	Size     int64     `validate:"gte=0"`
	ParentID *string   `validate:"-"`
	Body     io.Reader `validate:"-"`
}

// Service is the file and folder repository. Entry rows live in SQL, file
// bytes in the BlobStore, and each owner's tree is cached as a hierarchy.Index.
type Service struct {
	repo     *Repository
	blobs    BlobStore
	opts     Options
	validate *validator.Validate
	now      func() time.Time

	indexes *expirable.LRU[string, *hierarchy.Index]
	loads   singleflight.Group
	locks   *safemap.SafeMap[string, *sync.RWMutex]
}

func NewService(repo *Repository, blobs BlobStore, opts Options) *Service {
	if opts.QuotaBytes <= 0 {
		opts.QuotaBytes = defaultQuota
	}
	if opts.URLExpiration <= 0 {
		opts.URLExpiration = defaultURLTTL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &Service{
		repo:     repo,
		blobs:    blobs,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		indexes:  expirable.NewLRU[string, *hierarchy.Index](opts.CacheSize, nil, opts.CacheTTL),
		locks:    safemap.NewSafeMap[string, *sync.RWMutex](),
	}
}

func (s *Service) lock(owner string) *sync.RWMutex {
	return s.locks.LoadOrStore(owner, func() *sync.RWMutex { return &sync.RWMutex{} })
}

// index returns the owner's cached index. Callers hold the owner's lock.
func (s *Service) index(ctx context.Context, owner string) (*hierarchy.Index, error) {
	if x, ok := s.indexes.Get(owner); ok {
		return x, nil
	}
	v, err, _ := s.loads.Do(owner, func() (any, error) {
		if x, ok := s.indexes.Get(owner); ok {
			return x, nil
		}
		entries, err := s.repo.ListAll(ctx, owner)
		if err != nil {
			return nil, apperr.Remote("load entries", err)
		}
		x := hierarchy.NewIndex(entries)
		s.indexes.Add(owner, x)
		return x, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*hierarchy.Index), nil
}

// read runs fn against the owner's index under a shared lock.
func (s *Service) read(ctx context.Context, owner string, fn func(x *hierarchy.Index) error) error {
	mu := s.lock(owner)
	mu.RLock()
	defer mu.RUnlock()
	x, err := s.index(ctx, owner)
	if err != nil {
		return err
	}
	return fn(x)
}

// write runs fn against the owner's index under the exclusive lock. When fn
// fails on a collaborator call the cached index is dropped, since the
// database may have moved on.
func (s *Service) write(ctx context.Context, owner string, fn func(x *hierarchy.Index) error) error {
	mu := s.lock(owner)
	mu.Lock()
	defer mu.Unlock()
	x, err := s.index(ctx, owner)
	if err != nil {
		return err
	}
	if err := fn(x); err != nil {
		switch apperr.CodeOf(err) {
		case apperr.CodeRemote, apperr.CodePartial, apperr.CodeUnknown:
			s.indexes.Remove(owner)
		}
		return err
	}
	return nil
}

func checkName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", apperr.Validation("name is required")
	case len(name) > 255:
		return "", apperr.Validation("name is too long")
	case strings.ContainsAny(name, "/\\"):
		return "", apperr.Validation("name must not contain path separators")
	}
	return name, nil
}

func checkParent(x *hierarchy.Index, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if _, ok := x.Folder(*parentID); !ok {
		return apperr.Validation("parent %s is not a folder", *parentID)
	}
	return nil
}

// CreateFolder adds an empty folder under parentID (nil for the root).
func (s *Service) CreateFolder(ctx context.Context, name string, parentID *string) (*model.Entry, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	name, err = checkName(name)
	if err != nil {
		return nil, err
	}

	var created *model.Entry
	err = s.write(ctx, owner, func(x *hierarchy.Index) error {
		if err := checkParent(x, parentID); err != nil {
			return err
		}
		if x.HasChild(parentID, model.KindFolder, name, "") {
			return apperr.Conflict("folder %q already exists", name)
		}
		e := &model.Entry{
			ID:        xid.New().String(),
			Name:      name,
			Kind:      model.KindFolder,
			OwnerID:   owner,
			ParentID:  parentID,
			CreatedAt: s.now().UTC(),
		}
		err := s.repo.Insert(ctx, e)
		metrics.Observe("drive", "create_folder", err)
		if err != nil {
			return apperr.Remote("create folder", err)
		}
		x.Put(e)
		created = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UploadFile stores the bytes and then records the entry. If recording fails
// the stored bytes are removed again; if that also fails the error carries
// CodePartial.
func (s *Service) UploadFile(ctx context.Context, up Upload) (*model.Entry, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if up.Name, err = checkName(up.Name); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(up); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "invalid upload", err)
	}
	if up.Body == nil {
		return nil, apperr.Validation("file content is required")
	}

	body := up.Body
	if up.MimeType == "" || up.MimeType == "application/octet-stream" {
		up.MimeType, body, err = sniff(body)
		if err != nil {
			return nil, apperr.Remote("read upload", err)
		}
	}

	err = s.read(ctx, owner, func(x *hierarchy.Index) error {
		if err := checkParent(x, up.ParentID); err != nil {
			return err
		}
		return s.checkQuota(x, up.Size)
	})
	if err != nil {
		return nil, err
	}

	// Bytes are streamed without holding the owner's lock.
	hasher := blake3.New(32, nil)
	key := fmt.Sprintf("%s/%s/%s", owner, uuid.New().String(), up.Name)
	ref, err := s.blobs.Put(ctx, key, io.TeeReader(body, hasher), up.Size, up.MimeType)
	metrics.Observe("drive", "put_blob", err)
	if err != nil {
		return nil, apperr.Remote("store file", err)
	}

	e := &model.Entry{
		ID:        xid.New().String(),
		Name:      up.Name,
		Kind:      model.KindFile,
		OwnerID:   owner,
		ParentID:  up.ParentID,
		CreatedAt: s.now().UTC(),
		File: &model.FileMeta{
			StorageRef: ref,
			MimeType:   up.MimeType,
			SizeBytes:  up.Size,
			Checksum:   hex.EncodeToString(hasher.Sum(nil)),
		},
	}
	err = s.write(ctx, owner, func(x *hierarchy.Index) error {
		// The parent may have been deleted while the bytes were in flight.
		if err := checkParent(x, up.ParentID); err != nil {
			return err
		}
		// Other uploads may have committed since the first check.
		if err := s.checkQuota(x, up.Size); err != nil {
			return err
		}
		err := s.repo.Insert(ctx, e)
		metrics.Observe("drive", "upload", err)
		if err != nil {
			return apperr.Remote("record file", err)
		}
		x.Put(e)
		return nil
	})
	if err != nil {
		return nil, s.compensateUpload(ctx, ref, err)
	}

	logger.L().Info("file uploaded",
		zap.String("owner", owner),
		zap.String("entry_id", e.ID),
		zap.Int64("size", up.Size))
	return e, nil
}

func (s *Service) checkQuota(x *hierarchy.Index, size int64) error {
	if used := x.UsedBytes(); used+size > s.opts.QuotaBytes {
		return apperr.Conflict("storage quota exceeded: %s of %s used",
			humanize.IBytes(uint64(used)), humanize.IBytes(uint64(s.opts.QuotaBytes)))
	}
	return nil
}

func (s *Service) compensateUpload(ctx context.Context, ref string, cause error) error {
	cerr := s.blobs.Delete(context.WithoutCancel(ctx), ref)
	metrics.Compensation("upload", cerr)
	if cerr == nil {
		return cause
	}
	logger.L().Error("orphaned blob after failed upload",
		zap.String("ref", ref), zap.Error(cause), zap.NamedError("cleanup", cerr))
	return apperr.Wrap(apperr.CodePartial, "file stored without a record", errors.Join(cause, cerr))
}

func sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// ListChildren returns the direct children of parentID (nil for the root),
// folders first, then by name.
func (s *Service) ListChildren(ctx context.Context, parentID *string) ([]*model.Entry, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListChildren(ctx, owner, parentID)
	metrics.Observe("drive", "list", err)
	if err != nil {
		return nil, apperr.Remote("list entries", err)
	}
	// Names compare byte-wise everywhere, whatever the database collation.
	hierarchy.Sort(entries)
	return entries, nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id string) (*model.Entry, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return nil, apperr.Remote("get entry", err)
	}
	return e, nil
}

// Rename changes the entry's name and nothing else.
func (s *Service) Rename(ctx context.Context, id, newName string) (*model.Entry, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	name, err := checkName(newName)
	if err != nil {
		return nil, err
	}

	var renamed *model.Entry
	err = s.write(ctx, owner, func(x *hierarchy.Index) error {
		e, ok := x.Get(id)
		if !ok {
			return apperr.NotFound("entry")
		}
		if e.IsFolder() && x.HasChild(e.ParentID, model.KindFolder, name, e.ID) {
			return apperr.Conflict("folder %q already exists", name)
		}
		err := s.repo.UpdateName(ctx, owner, id, name)
		metrics.Observe("drive", "rename", err)
		if err != nil {
			return apperr.Remote("rename entry", err)
		}
		e.Name = name
		x.Put(e)
		renamed = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// Move reparents an entry. A folder cannot be moved into its own subtree.
func (s *Service) Move(ctx context.Context, id string, newParentID *string) (*model.Entry, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var moved *model.Entry
	err = s.write(ctx, owner, func(x *hierarchy.Index) error {
		e, ok := x.Get(id)
		if !ok {
			return apperr.NotFound("entry")
		}
		if err := checkParent(x, newParentID); err != nil {
			return err
		}
		if e.IsFolder() && x.WouldCycle(id, newParentID) {
			return apperr.Validation("cannot move a folder into itself")
		}
		if e.IsFolder() && x.HasChild(newParentID, model.KindFolder, e.Name, e.ID) {
			return apperr.Conflict("folder %q already exists in the destination", e.Name)
		}
		err := s.repo.UpdateParent(ctx, owner, id, newParentID)
		metrics.Observe("drive", "move", err)
		if err != nil {
			return apperr.Remote("move entry", err)
		}
		e.ParentID = newParentID
		x.Put(e)
		moved = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// Delete removes an entry. Folders take their whole subtree with them,
// deepest entries first; each file's bytes go before its record.
func (s *Service) Delete(ctx context.Context, id string) error {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	return s.write(ctx, owner, func(x *hierarchy.Index) error {
		if _, ok := x.Get(id); !ok {
			return apperr.NotFound("entry")
		}
		victims := x.Descendants(id)
		for _, e := range victims {
			if err := s.deleteOne(ctx, owner, e); err != nil {
				return err
			}
			x.Remove(e.ID)
		}
		if len(victims) > 1 {
			logger.L().Info("folder deleted",
				zap.String("owner", owner), zap.String("entry_id", id), zap.Int("entries", len(victims)))
		}
		return nil
	})
}

func (s *Service) deleteOne(ctx context.Context, owner string, e *model.Entry) error {
	if e.File != nil && e.File.StorageRef != "" {
		err := s.blobs.Delete(ctx, e.File.StorageRef)
		metrics.Observe("drive", "delete_blob", err)
		if err != nil {
			return apperr.Remote("delete file bytes", err)
		}
	}
	err := s.repo.Delete(ctx, owner, e.ID)
	metrics.Observe("drive", "delete", err)
	if err != nil {
		if e.File != nil {
			return apperr.Wrap(apperr.CodePartial, "file bytes removed but record kept", err)
		}
		return apperr.Remote("delete entry", err)
	}
	return nil
}

// DownloadURL returns a short-lived URL for a file's bytes.
func (s *Service) DownloadURL(ctx context.Context, id string) (string, error) {
	e, err := s.file(ctx, id)
	if err != nil {
		return "", err
	}
	u, err := s.blobs.URL(ctx, e.File.StorageRef, s.opts.URLExpiration)
	if err != nil {
		return "", apperr.Remote("sign url", err)
	}
	return u, nil
}

// Open streams a file's bytes along with its entry.
func (s *Service) Open(ctx context.Context, id string) (*model.Entry, io.ReadCloser, error) {
	e, err := s.file(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, e.File.StorageRef)
	if err != nil {
		return nil, nil, apperr.Remote("open file", err)
	}
	return e, rc, nil
}

func (s *Service) file(ctx context.Context, id string) (*model.Entry, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.IsFolder() || e.File == nil || e.File.StorageRef == "" {
		return nil, apperr.Validation("%s is not a file", e.Name)
	}
	return e, nil
}

// Search finds entries whose name contains q.
func (s *Service) Search(ctx context.Context, q string) ([]*model.Entry, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.Validation("search keyword is required")
	}
	var found []*model.Entry
	err = s.read(ctx, owner, func(x *hierarchy.Index) error {
		found = x.Search(q)
		return nil
	})
	return found, err
}

// Tree returns the caller's folder structure.
func (s *Service) Tree(ctx context.Context) ([]*hierarchy.FolderNode, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	var tree []*hierarchy.FolderNode
	err = s.read(ctx, owner, func(x *hierarchy.Index) error {
		tree = x.FolderTree()
		return nil
	})
	return tree, err
}

// Path returns the breadcrumb trail from the root down to id, inclusive.
func (s *Service) Path(ctx context.Context, id string) ([]hierarchy.Crumb, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	var trail []hierarchy.Crumb
	err = s.read(ctx, owner, func(x *hierarchy.Index) error {
		e, ok := x.Get(id)
		if !ok {
			return apperr.NotFound("entry")
		}
		ancestors, err := x.Ancestors(id)
		if err != nil {
			return apperr.Wrap(apperr.CodeUnknown, "resolve path", err)
		}
		nav := hierarchy.NewNavigator(ancestors)
		if e.IsFolder() {
			if err := nav.Enter(e); err != nil {
				return err
			}
		}
		trail = nav.Trail()
		if !e.IsFolder() {
			trail = append(trail, hierarchy.Crumb{ID: e.ID, Name: e.Name})
		}
		return nil
	})
	return trail, err
}

// Usage reports how much of the quota the caller has used.
func (s *Service) Usage(ctx context.Context) (*model.StorageUsage, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	var used int64
	err = s.read(ctx, owner, func(x *hierarchy.Index) error {
		used = x.UsedBytes()
		return nil
	})
	if err != nil {
		return nil, err
	}
	limit := s.opts.QuotaBytes
	pct := float64(used) / float64(limit) * 100
	if pct > 100 {
		pct = 100
	}
	return &model.StorageUsage{
		UsedBytes:  used,
		LimitBytes: limit,
		Percentage: pct,
		Used:       humanize.IBytes(uint64(used)),
		Limit:      humanize.IBytes(uint64(limit)),
	}, nil
}

// Render draws the caller's whole drive as text.
func (s *Service) Render(ctx context.Context, rootLabel string) (string, error) {
	owner, err := auth.CurrentUserID(ctx)
	if err != nil {
		return "", err
	}
	var out string
	err = s.read(ctx, owner, func(x *hierarchy.Index) error {
		out = x.Render(rootLabel)
		return nil
	})
	return out, err
}
