package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-video/pkg/simplevideo"
)

// VideoHandler serves the video store over HTTP
type VideoHandler struct {
	engine *simplevideo.Engine
	query  *simplevideo.QueryService
	logger *slog.Logger
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(engine *simplevideo.Engine, query *simplevideo.QueryService, logger *slog.Logger) *VideoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoHandler{
		engine: engine,
		query:  query,
		logger: logger,
	}
}

// Routes returns the routes for videos
func (h *VideoHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(ActorMiddleware)

	r.Get("/", h.ListVideos)
	r.Post("/", h.CreateVideo)
	r.Post("/upload", h.UploadVideo)
	r.Get("/recent", h.ListRecent)
	r.Get("/range", h.ListByDateRange)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetVideo)
		r.Put("/", h.UpdateVideo)
		r.Delete("/", h.DeleteVideo)
		r.Put("/metadata", h.SetMetadata)
		r.Post("/views", h.RecordView)
		r.Get("/download", h.Download)

		r.Get("/versions", h.ListVersions)
		r.Post("/versions", h.UploadVersion)
		r.Get("/versions/active", h.GetActiveVersion)
		r.Get("/versions/{number}", h.GetVersion)
	})

	return r
}

// CreateVideoRequest is the request body for registering a video
type CreateVideoRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	OriginalFileName string   `json:"original_file_name"`
	FileSizeBytes    int64    `json:"file_size_bytes"`
	FileFormat       string   `json:"file_format"`
	DurationSeconds  float64  `json:"duration_seconds"`
	ThumbnailPath    string   `json:"thumbnail_path"`
	Tags             []string `json:"tags"`
}

// UpdateVideoRequest is the request body for editing a video
type UpdateVideoRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// ViewResponse is the response body after recording a view
type ViewResponse struct {
	ID        string `json:"id"`
	ViewCount int64  `json:"view_count"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// ListVideos serves paginated, searchable, sorted listings
func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := simplevideo.QueryRequest{
		Search:   q.Get("search"),
		SortBy:   q.Get("sortBy"),
		Page:     queryInt(q.Get("page"), 1),
		PageSize: queryInt(q.Get("pageSize"), 0),
	}
	if v := q.Get("sortDescending"); v != "" {
		desc, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, &simplevideo.ValidationError{Field: "sortDescending", Reason: "must be a boolean"})
			return
		}
		req.Ascending = !desc
	}

	page, err := h.query.Query(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

// ListRecent returns the newest videos
func (h *VideoHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	items, err := h.query.ListRecent(r.Context(), queryInt(r.URL.Query().Get("count"), 10))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, items)
}

// ListByDateRange lists videos created between from and to
func (h *VideoHandler) ListByDateRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseTime("from", q.Get("from"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := parseTime("to", q.Get("to"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.query.FilterByDateRange(r.Context(), from, to, queryInt(q.Get("page"), 1), queryInt(q.Get("pageSize"), 0))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

// CreateVideo registers a new video without content
func (h *VideoHandler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req CreateVideoRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, &simplevideo.ValidationError{Field: "body", Reason: err.Error()})
		return
	}

	asset, err := h.engine.CreateAsset(r.Context(), simplevideo.CreateAssetRequest{
		Title:            req.Title,
		Description:      req.Description,
		OriginalFileName: req.OriginalFileName,
		FileSizeBytes:    req.FileSizeBytes,
		FileFormat:       req.FileFormat,
		DurationSeconds:  req.DurationSeconds,
		ThumbnailPath:    req.ThumbnailPath,
		Tags:             req.Tags,
	}, ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	detail, err := h.query.Get(r.Context(), asset.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("Video created", "asset_id", asset.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, detail)
}

// maxFieldBytes bounds each text field of a multipart upload.
const maxFieldBytes = 16 << 10

// UploadVideo creates a video and its first version from one multipart
// request: a "file" part plus "title", "description", comma separated
// "tags" and an optional "changeDescription", in any order.
func (h *VideoHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		h.writeError(w, r, &simplevideo.ValidationError{Field: "body", Reason: err.Error()})
		return
	}

	var (
		file     *os.File
		fileName string
		fields   = map[string]string{}
	)
	defer func() {
		if file != nil {
			file.Close()
			os.Remove(file.Name())
		}
	}()

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.writeError(w, r, &simplevideo.ValidationError{Field: "body", Reason: err.Error()})
			return
		}

		switch name := part.FormName(); name {
		case "file":
			if file != nil {
				h.writeError(w, r, &simplevideo.ValidationError{Field: "file", Reason: "only one file may be uploaded"})
				return
			}
			fileName = part.FileName()
			file, err = spoolPart(r, part)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
		case "title", "description", "tags", "changeDescription":
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				h.writeError(w, r, &simplevideo.ValidationError{Field: name, Reason: err.Error()})
				return
			}
			fields[name] = string(value)
		}
	}
	if file == nil {
		h.writeError(w, r, &simplevideo.ValidationError{Field: "file", Reason: "no file provided"})
		return
	}

	var tags []string
	if raw := fields["tags"]; raw != "" {
		tags = strings.Split(raw, ",")
	}

	asset, version, err := h.engine.UploadAsset(r.Context(), simplevideo.UploadAssetRequest{
		Title:             fields["title"],
		Description:       fields["description"],
		OriginalFileName:  fileName,
		Tags:              tags,
		Reader:            file,
		ChangeDescription: fields["changeDescription"],
	}, ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	detail, err := h.query.Get(r.Context(), asset.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("Video uploaded", "asset_id", asset.ID.String(), "file_name", fileName, "size_bytes", version.SizeBytes)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, detail)
}

// spoolPart copies a file part to a temporary file so the fields after it
// can still be read. The caller removes the file.
func spoolPart(r *http.Request, part io.Reader) (*os.File, error) {
	f, err := os.CreateTemp("", "simplevideo-upload-*")
	if err != nil {
		return nil, &simplevideo.StorageError{Backend: "spool", Op: "create", Err: err}
	}
	if _, err := io.Copy(f, part); err != nil {
		f.Close()
		os.Remove(f.Name())
		if ctxErr := r.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &simplevideo.ValidationError{Field: "file", Reason: err.Error()}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, &simplevideo.StorageError{Backend: "spool", Op: "rewind", Err: err}
	}
	return f, nil
}

// GetVideo returns one video with metadata and versions
func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	detail, err := h.query.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, detail)
}

// UpdateVideo edits title, description and tags
func (h *VideoHandler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	var req UpdateVideoRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, &simplevideo.ValidationError{Field: "body", Reason: err.Error()})
		return
	}

	_, err := h.engine.UpdateAsset(r.Context(), id, simplevideo.UpdateAssetRequest{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}, ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	detail, err := h.query.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, detail)
}

// DeleteVideo soft-deletes a video
func (h *VideoHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	if err := h.engine.SoftDelete(r.Context(), id, ActorFromContext(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMetadata records externally inspected technical attributes
func (h *VideoHandler) SetMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	var tech simplevideo.TechnicalMetadata
	if err := render.DecodeJSON(r.Body, &tech); err != nil {
		h.writeError(w, r, &simplevideo.ValidationError{Field: "body", Reason: err.Error()})
		return
	}

	meta, err := h.engine.SetTechnicalMetadata(r.Context(), id, tech)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, meta)
}

// RecordView counts a view without downloading
func (h *VideoHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	count, err := h.engine.IncrementView(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, ViewResponse{ID: id.String(), ViewCount: count})
}

// ListVersions returns every version of a video
func (h *VideoHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	versions, err := h.engine.ListVersions(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, versions)
}

// GetActiveVersion returns the active version of a video
func (h *VideoHandler) GetActiveVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	version, err := h.engine.GetActiveVersion(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, version)
}

// GetVersion returns one version by number
func (h *VideoHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number < 1 {
		h.writeError(w, r, &simplevideo.ValidationError{Field: "number", Reason: "must be a positive integer"})
		return
	}

	version, err := h.engine.GetVersion(r.Context(), id, number)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, version)
}

// UploadVersion stores a new version. The body is either multipart form
// data with a "file" part or the raw bytes. The change description comes
// from a "changeDescription" form field sent before the file, or from the
// query string.
func (h *VideoHandler) UploadVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	description := r.URL.Query().Get("changeDescription")
	body := io.Reader(r.Body)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		reader, err := r.MultipartReader()
		if err != nil {
			h.writeError(w, r, &simplevideo.ValidationError{Field: "body", Reason: err.Error()})
			return
		}

		var file io.Reader
		for file == nil {
			part, err := reader.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				h.writeError(w, r, &simplevideo.ValidationError{Field: "body", Reason: err.Error()})
				return
			}

			switch part.FormName() {
			case "changeDescription":
				value, err := io.ReadAll(io.LimitReader(part, 4096))
				if err != nil {
					h.writeError(w, r, &simplevideo.ValidationError{Field: "changeDescription", Reason: err.Error()})
					return
				}
				description = string(value)
			case "file":
				file = part
			}
		}
		if file == nil {
			h.writeError(w, r, &simplevideo.ValidationError{Field: "file", Reason: "no file provided"})
			return
		}
		body = file
	}

	version, err := h.engine.AddVersion(r.Context(), simplevideo.AddVersionRequest{
		AssetID:           id,
		Reader:            body,
		ChangeDescription: description,
	}, ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("Version uploaded", "asset_id", id.String(), "number", version.Number, "size_bytes", version.SizeBytes)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, version)
}

// Download streams the active version, or the one named by ?version=, and
// counts a view.
func (h *VideoHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	var (
		version *simplevideo.Version
		content io.ReadCloser
		err     error
	)
	if v := r.URL.Query().Get("version"); v != "" {
		number, convErr := strconv.Atoi(v)
		if convErr != nil || number < 1 {
			h.writeError(w, r, &simplevideo.ValidationError{Field: "version", Reason: "must be a positive integer"})
			return
		}
		version, content, err = h.engine.OpenVersion(r.Context(), id, number)
	} else {
		version, content, err = h.engine.OpenActive(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer content.Close()

	if _, err := h.engine.IncrementView(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	asset, err := h.engine.GetAsset(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType(asset.FileFormat))
	w.Header().Set("Content-Length", strconv.FormatInt(version.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": downloadName(asset, version),
	}))
	w.Header().Set("X-Content-SHA256", version.Hash)
	w.Header().Set("X-Video-Version", strconv.Itoa(version.Number))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		h.logger.Error("Failed to stream video", "asset_id", id.String(), "number", version.Number, "error", err)
	}
}

// Helpers

func (h *VideoHandler) assetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, r, &simplevideo.ValidationError{Field: "id", Reason: "must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps error kinds to status codes
func (h *VideoHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := simplevideo.Kind(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", r.URL.Path, "kind", string(kind), "error", err)
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message, Kind: string(kind)})
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(kind simplevideo.ErrorKind) int {
	switch kind {
	case simplevideo.KindNotFound:
		return http.StatusNotFound
	case simplevideo.KindConflict:
		return http.StatusConflict
	case simplevideo.KindValidation:
		return http.StatusBadRequest
	case simplevideo.KindStorage:
		return http.StatusBadGateway
	case simplevideo.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseTime(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, &simplevideo.ValidationError{Field: field, Reason: "is required"}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &simplevideo.ValidationError{Field: field, Reason: "must be RFC 3339 or YYYY-MM-DD"}
}

func contentType(format string) string {
	format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	if format == "" {
		return "application/octet-stream"
	}
	if t := mime.TypeByExtension("." + format); t != "" {
		return t
	}
	return "video/" + format
}

func downloadName(asset *simplevideo.Asset, version *simplevideo.Version) string {
	name := asset.OriginalFileName
	if name == "" {
		name = asset.ID.String()
	}
	return fmt.Sprintf("v%d_%s", version.Number, name)
}
