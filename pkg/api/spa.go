package api

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// cacheControlWriter sets Cache-Control from the request path before the
// first byte is written.
type cacheControlWriter struct {
	http.ResponseWriter
	path        string
	wroteHeader bool
}

func (w *cacheControlWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		// The dashboard ships unhashed files, so everything revalidates.
		if strings.HasSuffix(w.path, ".html") || w.path == "/" {
			w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Dir serves assets from a directory on disk.
func Dir(dir string) static.ServeFileSystem {
	return static.LocalFile(dir, true)
}

// FS serves assets from an fs.FS such as an embed.FS subtree.
func FS(fsys fs.FS) static.ServeFileSystem {
	return fsFileSystem{FileSystem: http.FS(fsys), fsys: fsys}
}

type fsFileSystem struct {
	http.FileSystem
	fsys fs.FS
}

func (f fsFileSystem) Exists(prefix, filepath string) bool {
	if !strings.HasPrefix(filepath, prefix) {
		return false
	}
	p := strings.TrimPrefix(filepath, prefix)
	name := strings.TrimPrefix(path.Clean("/"+p), "/")
	if name == "" {
		name = "."
	}
	_, err := fs.Stat(f.fsys, name)
	return err == nil
}

// ServeSPA serves files that exist under urlPrefix and falls back to
// index.html for anything else.
func ServeSPA(urlPrefix string, directory static.ServeFileSystem) gin.HandlerFunc {
	fileserver := http.FileServer(directory)
	index := urlPrefix
	if index == "" {
		index = "/"
	}
	if urlPrefix != "" {
		fileserver = http.StripPrefix(urlPrefix, fileserver)
	}
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if !directory.Exists(urlPrefix, p) {
			c.Request.URL.Path = index
			p = "/"
		}
		fileserver.ServeHTTP(&cacheControlWriter{ResponseWriter: c.Writer, path: p}, c.Request)
		c.Abort()
	}
}
