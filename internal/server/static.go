package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// staticSite lists the frontend build files that were found on disk.
type staticSite struct {
	index   string
	assets  string
	favicon string
}

func findStaticSite(dir string) (staticSite, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return staticSite{}, err
	}
	if !info.IsDir() {
		return staticSite{}, &os.PathError{Op: "stat", Path: dir, Err: os.ErrInvalid}
	}

	var site staticSite
	if p := filepath.Join(dir, "index.html"); fileExists(p) {
		site.index = p
	}
	if p := filepath.Join(dir, "assets"); fileExists(p) {
		site.assets = p
	}
	if p := filepath.Join(dir, "favicon.ico"); fileExists(p) {
		site.favicon = p
	}
	return site, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mountStatic serves the compiled frontend. Unknown /api paths still answer
// with JSON; every other unknown path falls back to index.html so the
// frontend router can handle it.
func (s *Server) mountStatic() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	if s.staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		return
	}
	site, err := findStaticSite(s.staticDir)
	if err != nil {
		s.logger.Warn("static directory missing", "path", s.staticDir, "error", err)
		return
	}

	if site.assets != "" {
		s.engine.StaticFS("/assets", gin.Dir(site.assets, false))
	}
	if site.favicon != "" {
		s.engine.StaticFile("/favicon.ico", site.favicon)
	}
	if site.index == "" {
		s.logger.Warn("index.html not found", "path", s.staticDir)
		return
	}

	s.engine.GET("/", func(c *gin.Context) {
		c.File(site.index)
	})
	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.File(site.index)
	})
}
