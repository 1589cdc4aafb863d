// Package app serves the Feedback Market landing page and its static assets.
package app

import (
	"embed"
	"net/http"

	"github.com/sahithi-mandalapu/feedback-market/pkg/web"
)

//go:embed templates static
var appFS embed.FS

const layout = "base"

var (
	indexView = web.ViewDef{
		Route:    "/{$}",
		Template: "index.html",
		Title:    "Feedback Market",
	}
	notFoundView = web.ViewDef{
		Route:    "/",
		Template: "404.html",
		Title:    "Not Found",
	}
)

// NewHandler builds the page router. apiPath is the prefix the page's
// scripts use to reach the JSON API.
func NewHandler(basePath, apiPath string) (http.Handler, error) {
	ts, err := web.NewTemplateSet(
		appFS,
		"templates/layouts/*.html",
		"templates/views",
		basePath,
		apiPath,
		[]web.ViewDef{indexView, notFoundView},
	)
	if err != nil {
		return nil, err
	}

	router := web.NewRouter()
	router.HandleFunc("GET "+indexView.Route, ts.PageHandler(layout, indexView))
	router.HandleFunc("GET /static/", web.DistServer(appFS, "static", "/static"))

	for _, r := range web.PublicFileRoutes(appFS, "static", "robots.txt") {
		router.HandleFunc(r.Method+" "+r.Pattern, r.Handler)
	}

	router.SetFallback(ts.ErrorHandler(layout, notFoundView, http.StatusNotFound))
	return router, nil
}
