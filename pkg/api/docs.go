package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

//go:embed docs.html
var docsPage []byte

// ServeDocs serves the informational demo page on "/". Deployments can
// override the page (and add assets) by shipping a ./static directory
// next to the binary; the embedded page is the fallback. The page is
// purely descriptive and has no side effects.
func ServeDocs(engine *gin.Engine) {
	engine.Use(static.Serve("/", static.LocalFile("./static", false)))
	engine.GET("/", func(c *gin.Context) {
		// Always revalidate so deployments picking up a new binary serve
		// the matching page.
		c.Header("Cache-Control", "no-cache, must-revalidate")
		c.Data(http.StatusOK, "text/html; charset=utf-8", docsPage)
	})
}
