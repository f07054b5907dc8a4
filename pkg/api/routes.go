// Package api exposes export jobs over a local HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/exporter"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/jobs"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// InputBuilder turns an export request into a ready exporter input:
// open the source, pick an encoder, apply server defaults. It runs at
// request time so a bad source or edit fails the request, not the job.
type InputBuilder func(r *http.Request, req ExportRequest) (exporter.Input, error)

// NewRouter builds the HTTP routes.
func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/v1/health", healthHandler(cfg))

	r.Route("/v1/exports", func(r chi.Router) {
		r.Post("/", createExportHandler(cfg))
		r.Get("/", listExportsHandler(cfg))
		r.Get("/{id}", getExportHandler(cfg))
		r.Get("/{id}/result", getResultHandler(cfg))
		r.Delete("/{id}", cancelExportHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func createExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Input == "" {
			WriteError(w, http.StatusBadRequest, "input is required", "BAD_REQUEST")
			return
		}

		input, err := cfg.BuildInput(r, req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		id, err := cfg.Manager.Submit(input)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusAccepted, ExportResponse{JobID: id})
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := cfg.Manager.List()
		resp := JobsResponse{Jobs: make([]JobResponse, len(list))}
		for i, j := range list {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		job, err := cfg.Manager.Get(id)
		if err != nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func getResultHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		result, err := cfg.Manager.Result(id)
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		case errors.Is(err, jobs.ErrJobNotFinished):
			WriteError(w, http.StatusConflict, "job not finished", "NOT_FINISHED")
			return
		case err != nil:
			WriteError(w, http.StatusGone, err.Error(), "NO_RESULT")
			return
		}

		w.Header().Set("Content-Type", result.MimeType)
		w.WriteHeader(http.StatusOK)
		w.Write(result.Data)
	}
}

func cancelExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Manager.Cancel(id); err != nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
