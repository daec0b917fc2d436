package server

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/jrsteele09/restaurant-portal/internal/errors"
)

//go:embed static/*
var staticFiles embed.FS

// staticAssets is the embedded static directory with its prefix removed
var staticAssets = func() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("static assets: " + err.Error())
	}
	return sub
}()

// StreamFile writes an embedded asset. Names that are not plain relative paths
// inside the asset directory, and missing files, are reported as errors.ErrNotFound.
func StreamFile(w http.ResponseWriter, name string) error {
	if !fs.ValidPath(name) || name == "." {
		return errors.Wrapf(errors.ErrNotFound, "asset %q", name)
	}

	data, err := fs.ReadFile(staticAssets, name)
	if err != nil {
		return errors.Wrapf(errors.ErrNotFound, "asset %q: %v", name, err)
	}

	w.Header().Set("Content-Type", assetContentType(name, data))
	if _, err := w.Write(data); err != nil {
		return errors.Wrapf(err, "write asset %q", name)
	}
	return nil
}

// assetContentType goes by extension, sniffing only unknown ones. Text is always utf-8.
func assetContentType(name string, data []byte) string {
	ctype := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
		ctype += "; charset=utf-8"
	}
	return ctype
}
