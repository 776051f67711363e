package httpx

import (
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/agriconnectke/marketplace-service/internal/pkg/storage"
)

// DefaultMaxMemory bounds the in-memory part of multipart bodies.
const DefaultMaxMemory = 32 << 20

// Fields is a request body read either as JSON or as a multipart form.
type Fields struct {
	json map[string]json.RawMessage
	form *multipart.Form
}

// ReadFields parses the body according to its Content-Type.
func ReadFields(r *http.Request, maxMemory int64) (*Fields, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, ErrMalformedJSON
		}
		return &Fields{form: r.MultipartForm}, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, ErrMalformedJSON
		}
		return &Fields{form: &multipart.Form{Value: r.PostForm}}, nil
	}
	f := &Fields{json: map[string]json.RawMessage{}}
	if err := Decode(r, &f.json); err != nil {
		return nil, err
	}
	return f, nil
}

// Lookup returns the value of key. present is false when the key is
// absent; value is nil when the client sent null or an empty form value.
func (f *Fields) Lookup(key string) (value *string, present bool) {
	if f.form != nil {
		vs, ok := f.form.Value[key]
		if !ok || len(vs) == 0 {
			return nil, false
		}
		v := vs[0]
		if v == "" || v == "null" || v == "undefined" {
			return nil, true
		}
		return &v, true
	}
	raw, ok := f.json[key]
	if !ok {
		return nil, false
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return nil, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s, true
	}
	return &trimmed, true
}

// String returns the value of key or "".
func (f *Fields) String(key string) string {
	if v, _ := f.Lookup(key); v != nil {
		return *v
	}
	return ""
}

func (f *Fields) Files(key string) []*multipart.FileHeader {
	if f.form == nil || f.form.File == nil {
		return nil
	}
	return f.form.File[key]
}

func (f *Fields) File(key string) *multipart.FileHeader {
	if files := f.Files(key); len(files) > 0 {
		return files[0]
	}
	return nil
}

// OpenUpload opens an uploaded file. The caller closes the returned file.
func OpenUpload(fh *multipart.FileHeader) (*storage.Upload, multipart.File, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &storage.Upload{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        file,
	}, file, nil
}
