package service

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// static файлы фронта и SPA fallback на index.html. /api/* никогда не перехватываем.
func (s *Server) static(c *gin.Context) {
	p := c.Request.URL.Path
	if strings.HasPrefix(p, "/api/") || s.cfg.StaticDir == "" {
		s.notFound(c)
		return
	}

	if p != "/" {
		name := filepath.Join(s.cfg.StaticDir, filepath.FromSlash(path.Clean("/"+p)))
		if isFile(name) {
			s.serveFile(c, name)
			return
		}
	}

	index := filepath.Join(s.cfg.StaticDir, "index.html")
	if isFile(index) {
		s.serveFile(c, index)
		return
	}
	s.notFound(c)
}

func (s *Server) notFound(c *gin.Context) {
	s.respond(c, http.StatusNotFound, gin.H{"detail": "Not Found"})
}

// serveFile отдаёт уже проверенный путь. http.ServeFile не подходит: он смотрит на
// сырой URL и на ".." отвечает 400, хотя путь давно очищен.
func (s *Server) serveFile(c *gin.Context, name string) {
	f, err := os.Open(name)
	if err != nil {
		s.notFound(c)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.notFound(c)
		return
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

func isFile(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular()
}
