package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/interpose/middleware"
	"github.com/justinas/alice"
)

func router(config *Global) http.Handler {
	router := mux.NewRouter()
	POST := router.Methods("POST").Subrouter()
	GET := router.Methods("GET", "HEAD").Subrouter()
	DELETE := router.Methods("DELETE").Subrouter()

	h := handler{Global: config, router: router}

	GET.HandleFunc("/api/health", h.Health)
	GET.HandleFunc("/api/files", h.ListFiles)
	GET.HandleFunc("/api/export/summary", h.ExportSummary)

	//
	// POST
	//
	POST.HandleFunc("/api/upload", h.UploadTables)
	POST.HandleFunc("/api/upload/mzml", h.UploadRuns)
	POST.HandleFunc("/api/plot/{chart}", h.Plot)

	// "all" must be registered ahead of the {chart} route so it is not
	// captured as a chart name.
	POST.HandleFunc("/api/export/all", h.ExportAll)
	POST.HandleFunc("/api/export/{chart}", h.ExportChart)

	DELETE.HandleFunc("/api/files", h.ClearFiles)

	standard := alice.New(
		// Log all requests to STDOUT
		middleware.GorillaLog(),
	)

	return standard.Then(router)
}
