package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/docsift/docsift/engine/config"
	"github.com/docsift/docsift/engine/domain"
	"github.com/docsift/docsift/engine/search"
	"github.com/docsift/docsift/pkg/metrics"
	"github.com/docsift/docsift/pkg/mid"
)

// maxSearchBody caps the JSON body of a search request.
const maxSearchBody = 64 << 10

// multipartMemory is how much of a multipart body is kept in memory before
// spilling file parts to disk.
const multipartMemory = 32 << 20

type documentLister interface {
	List(ctx context.Context) ([]domain.IndexedDocument, error)
}

type objectLister interface {
	List(ctx context.Context) ([]domain.StoredObject, error)
}

type searcher interface {
	Search(ctx context.Context, c domain.SearchConfiguration) (any, error)
	Defaults() domain.SearchConfiguration
}

type ingester interface {
	Run(ctx context.Context, files []domain.UploadedFile) (domain.UploadResponse, error)
}

// services bundles the handlers' dependencies.
type services struct {
	catalog documentLister
	objects objectLister
	search  searcher
	ingest  ingester
	metrics *metrics.Registry
}

func newHandler(svc services, cfg *config.Config, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("GET /metrics", svc.metrics.Handler())
	mux.HandleFunc("GET /documents", handleDocuments(svc.catalog, logger))
	mux.HandleFunc("GET /storage/documents", handleStoredObjects(svc.objects, logger))
	mux.HandleFunc("POST /search", handleSearch(svc.search, logger))
	mux.HandleFunc("POST /upload", handleUpload(svc.ingest, cfg.MaxUploadBytes, logger))
	mux.Handle("/", staticHandler(cfg.StaticDir, logger))

	return mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		mid.Metrics(svc.metrics),
		mid.OTel("docsift-api"),
	)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleDocuments(docs documentLister, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := docs.List(r.Context())
		if err != nil {
			writeError(w, r, logger, "Failed to list documents", err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleStoredObjects(objs objectLister, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := objs.List(r.Context())
		if err != nil {
			writeError(w, r, logger, "Failed to list stored documents", err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleSearch(svc searcher, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p search.Params
		r.Body = http.MaxBytesReader(w, r.Body, maxSearchBody)
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooBig.Limit))
				return
			}
			writeDetail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		out, err := svc.Search(r.Context(), p.Resolve(svc.Defaults()))
		if err != nil {
			writeError(w, r, logger, "", err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleUpload(pipeline ingester, maxBytes int64, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit))
				return
			}
			writeDetail(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
			return
		}
		defer r.MultipartForm.RemoveAll()

		files, closeAll, err := openParts(r.MultipartForm.File["files"])
		defer closeAll()
		if err != nil {
			writeError(w, r, logger, "", err)
			return
		}

		resp, err := pipeline.Run(r.Context(), files)
		if err != nil {
			writeError(w, r, logger, "", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// openParts opens every uploaded part. The returned func closes whatever
// was opened, even on error.
func openParts(headers []*multipart.FileHeader) ([]domain.UploadedFile, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	files := make([]domain.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, domain.UploadedFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
			Size:        fh.Size,
		})
	}
	return files, closeAll, nil
}

// staticHandler serves the bundled frontend from dir, falling back to a
// JSON 404 when the directory is absent.
func staticHandler(dir string, logger *slog.Logger) http.Handler {
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		logger.Info("static directory not found, frontend disabled", "dir", dir)
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeDetail(w, http.StatusNotFound, "Not Found")
		})
	}
	return http.FileServer(http.Dir(dir))
}

// --- Responses ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// writeError maps err onto a status code: invalid input is the caller's
// fault (400); configuration and upstream failures are ours (500).
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, prefix string, err error) {
	msg := err.Error()
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	kind := domain.Kind(err)
	attrs := []any{"kind", kind, "path", r.URL.Path, "request_id", mid.RequestIDFrom(r.Context()), "err", err}

	switch kind {
	case "invalid_input":
		logger.Info("request rejected", attrs...)
		writeDetail(w, http.StatusBadRequest, msg)
	case "configuration":
		logger.Error("deployment misconfigured", attrs...)
		writeDetail(w, http.StatusInternalServerError, msg)
	case "upstream":
		var ue *domain.UpstreamError
		if errors.As(err, &ue) {
			attrs = append(attrs, "service", ue.Service, "code", ue.Code.String())
		}
		logger.Error("upstream call failed", attrs...)
		writeDetail(w, http.StatusInternalServerError, msg)
	default:
		logger.Error("request failed", attrs...)
		writeDetail(w, http.StatusInternalServerError, msg)
	}
}
