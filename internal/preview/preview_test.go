package preview

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"medvault-server/internal/apperr"
	"medvault-server/internal/model"

	"github.com/gin-gonic/gin"
)

type stubFiles map[string]struct {
	entry   *model.Entry
	content string
}

func (s stubFiles) Get(_ context.Context, id string) (*model.Entry, error) {
	f, ok := s[id]
	if !ok {
		return nil, apperr.NotFound("entry")
	}
	return f.entry, nil
}

func (s stubFiles) DownloadURL(_ context.Context, id string) (string, error) {
	return "https://blobs.example/" + id, nil
}

func (s stubFiles) Open(_ context.Context, id string) (*model.Entry, io.ReadCloser, error) {
	f := s[id]
	return f.entry, io.NopCloser(strings.NewReader(f.content)), nil
}

func fileEntry(id, name, mime string, size int64) *model.Entry {
	return &model.Entry{ID: id, Name: name, Kind: model.KindFile, File: &model.FileMeta{StorageRef: id, MimeType: mime, SizeBytes: size}}
}

func TestGetPreview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	files := stubFiles{
		"t": {entry: fileEntry("t", "notes.md", "", 5), content: "# hi\n"},
		"p": {entry: fileEntry("p", "report.pdf", "application/pdf", 100)},
		"i": {entry: fileEntry("i", "xray.png", "image/png", 100)},
		"b": {entry: fileEntry("b", "scan.bin", "application/octet-stream", 100)},
		"d": {entry: &model.Entry{ID: "d", Name: "labs", Kind: model.KindFolder}},
	}
	r := gin.New()
	r.GET("/preview/:id", NewPreviewHandler(files).GetPreview)

	cases := []struct {
		id, kind string
		status   int
	}{
		{"t", "text", http.StatusOK},
		{"p", "pdf", http.StatusOK},
		{"i", "image", http.StatusOK},
		{"b", "url", http.StatusOK},
		{"d", "", http.StatusBadRequest},
		{"missing", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/preview/"+tc.id, nil))
		if w.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.id, w.Code, tc.status)
			continue
		}
		if tc.kind == "" {
			continue
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["type"] != tc.kind {
			t.Errorf("%s: type = %q, want %q", tc.id, body["type"], tc.kind)
		}
		if tc.kind == "text" && body["content"] != "# hi\n" {
			t.Errorf("text content = %q", body["content"])
		}
	}
}
