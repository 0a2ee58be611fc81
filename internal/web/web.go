// Package web embeds the browser client served at /.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static
var files embed.FS

// Static returns the embedded client rooted at its index.html.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// RegisterRoutes serves the browser client at GET /.
func RegisterRoutes(r *gin.Engine) {
	static := Static()
	r.GET("/", func(c *gin.Context) {
		c.FileFromFS("/", http.FS(static))
	})
}
