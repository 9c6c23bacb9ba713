package graph

import (
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type recordedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Query       url.Values
	Form        url.Values
	Files       map[string]recordedFile
}

type graphServer struct {
	srv     *httptest.Server
	respond func(recordedRequest) (int, string)

	mu       sync.Mutex
	requests []recordedRequest
}

func newGraphServer(t *testing.T, respond func(recordedRequest) (int, string)) *graphServer {
	t.Helper()
	gs := &graphServer{respond: respond}
	gs.srv = httptest.NewTLSServer(http.HandlerFunc(gs.handle))
	t.Cleanup(gs.srv.Close)
	return gs
}

func (gs *graphServer) handle(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
		Query:       r.URL.Query(),
		Form:        url.Values{},
		Files:       map[string]recordedFile{},
	}

	mediaType, _, _ := mime.ParseMediaType(rec.ContentType)
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec.Form = url.Values(r.MultipartForm.Value)
		for name, headers := range r.MultipartForm.File {
			fh := headers[0]
			f, err := fh.Open()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(f)
			f.Close()
			rec.Files[name] = recordedFile{Filename: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec.Form = r.PostForm
	}

	gs.mu.Lock()
	gs.requests = append(gs.requests, rec)
	gs.mu.Unlock()

	status, body := gs.respond(rec)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func (gs *graphServer) Requests() []recordedRequest {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return append([]recordedRequest(nil), gs.requests...)
}

func (gs *graphServer) Client(cfg Config) *Client {
	return New(cfg, WithBaseURL(gs.srv.URL), WithHTTPClient(gs.srv.Client()))
}

func respondWith(status int, body string) func(recordedRequest) (int, string) {
	return func(recordedRequest) (int, string) { return status, body }
}

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, append(append([]byte(nil), pngHeader...), []byte(name)...), 0o644))
	return path
}

func pageConfig() Config {
	return Config{PageID: "1234", AccessToken: "page-token"}
}
