package server

import (
	"bytes"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"go.uber.org/zap"
)

type asset struct {
	data        []byte
	contentType string
}

// staticHandler serves a frontend tree minified once at startup.
type staticHandler struct {
	assets  map[string]asset
	modTime time.Time
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	m.AddFuncRegexp(regexp.MustCompile("[/+]json$"), json.Minify)
	return m
}

func newStaticHandler(fsys fs.FS, log *zap.Logger) (*staticHandler, error) {
	m := newMinifier()
	h := &staticHandler{assets: make(map[string]asset), modTime: time.Now()}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}

		ct := mime.TypeByExtension(path.Ext(p))
		if ct == "" {
			ct = http.DetectContentType(raw)
		}
		mediatype, _, _ := mime.ParseMediaType(ct)

		data := raw
		if out, err := m.Bytes(mediatype, raw); err == nil {
			data = out
		} else if !errors.Is(err, minify.ErrNotExist) {
			log.Warn("serving asset unminified", zap.String("path", p), zap.Error(err))
		}
		h.assets["/"+p] = asset{data: data, contentType: ct}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	if strings.HasSuffix(p, "/") {
		p += "index.html"
	}
	a, ok := h.assets[path.Clean(p)]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.contentType)
	http.ServeContent(w, r, p, h.modTime, bytes.NewReader(a.data))
}
