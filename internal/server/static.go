package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	"git.home.luguber.info/inful/assetpipe/internal/builder"
)

// Published file names are stable per AssetID while their content changes,
// so clients revalidate unless the URL pins a version.
const (
	cacheControlVersioned = "public, max-age=31536000, immutable"
	cacheControlDefault   = "public, max-age=300, must-revalidate"
)

// staticHandler serves the public directory. When a precompressed companion
// exists and the client accepts its encoding, the companion is served.
type staticHandler struct {
	root string
}

func newStaticHandler(root string) http.Handler {
	return &staticHandler{root: root}
}

// negotiated in preference order.
var negotiated = []builder.Encoding{builder.EncodingZstd, builder.EncodingGzip}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	if clean == "/" {
		http.NotFound(w, r)
		return
	}
	name := filepath.Join(h.root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))

	file, info, encoding := h.open(name, r.Header.Get("Accept-Encoding"))
	if file == nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = file.Close() }()

	if ctype := contentType(name); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	w.Header().Add("Vary", "Accept-Encoding")
	if encoding != "" {
		w.Header().Set("Content-Encoding", string(encoding))
	}
	w.Header().Set("Cache-Control", determineCacheControl(r))
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (h *staticHandler) open(name, acceptEncoding string) (*os.File, os.FileInfo, builder.Encoding) {
	for _, enc := range negotiated {
		if !accepts(acceptEncoding, string(enc)) {
			continue
		}
		if f, info := openRegular(name + enc.Suffix()); f != nil {
			return f, info, enc
		}
	}
	f, info := openRegular(name)
	return f, info, ""
}

func openRegular(name string) (*os.File, os.FileInfo) {
	f, err := os.Open(name) // #nosec G304 -- name is cleaned and rooted at the public directory
	if err != nil {
		return nil, nil
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		return nil, nil
	}
	return f, info
}

func accepts(header, encoding string) bool {
	for _, part := range strings.Split(header, ",") {
		token, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(token), encoding) {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

func contentType(name string) string {
	return asset.MediaType(filepath.Ext(name))
}

func determineCacheControl(r *http.Request) string {
	if r.URL.Query().Get("v") != "" {
		return cacheControlVersioned
	}
	return cacheControlDefault
}
