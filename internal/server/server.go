package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/kiesman99/pyramid/internal/api"
	"github.com/kiesman99/pyramid/internal/pyramid"
	"github.com/kiesman99/pyramid/internal/sink"
	"github.com/kiesman99/pyramid/internal/tiler"
	"github.com/kiesman99/pyramid/pkg/tile"
)

// Defaults for Options fields left zero.
const (
	DefaultCacheSize      = 4096
	DefaultMaxUploadZoom  = 6
	DefaultMaxUploadBytes = 32 << 20
	MaxUploadTileSize     = 1024

	// DefaultMaxUploadPixels bounds both the decoded upload and the largest
	// canvas it is scaled onto (8192x8192).
	DefaultMaxUploadPixels = 1 << 26
)

// Options configures a Server
type Options struct {
	// Dir is the pyramid destination directory; it holds the manifest.
	Dir string
	// Store serves tiles. Nil disables GET /tiles.
	Store  tile.Store
	Format tile.Format
	// CacheSize is the number of encoded tiles kept in memory.
	CacheSize      int
	MaxUploadZoom  int
	MaxUploadBytes int64
	// MaxUploadPixels is the largest width*height accepted for an uploaded
	// image and for any canvas rendered from it.
	MaxUploadPixels int64
	Logger          logrus.FieldLogger
}

// Server implements the ServerInterface from the api package
type Server struct {
	startTime time.Time
	version   string
	options   Options
	cache     *lru.Cache[string, []byte]
	logger    logrus.FieldLogger
}

// NewServer creates a new server instance
func NewServer(version string, opts Options) (*Server, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.MaxUploadZoom <= 0 {
		opts.MaxUploadZoom = DefaultMaxUploadZoom
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.MaxUploadPixels <= 0 {
		opts.MaxUploadPixels = DefaultMaxUploadPixels
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Server{
		startTime: time.Now(),
		version:   version,
		options:   opts,
		cache:     cache,
		logger:    logger,
	}, nil
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	s.writeJSON(w, http.StatusOK, response)
}

// GetManifest returns the manifest of the served pyramid
func (s *Server) GetManifest(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)

	if s.options.Dir == "" {
		s.writeErrorResponse(w, http.StatusNotFound, api.NOMANIFEST,
			"No pyramid is being served", &requestID, nil)
		return
	}

	m, err := tiler.ReadManifest(s.options.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		s.writeErrorResponse(w, http.StatusNotFound, api.NOMANIFEST,
			"Pyramid has no manifest", &requestID, nil)
		return
	}
	if err != nil {
		s.logger.WithField("request_id", requestID).WithError(err).Error("Failed to read manifest")
		s.writeErrorResponse(w, http.StatusInternalServerError, api.INTERNALERROR,
			"Internal server error", &requestID, nil)
		return
	}

	s.writeJSON(w, http.StatusOK, m)
}

// GetTile serves one encoded tile
func (s *Server) GetTile(w http.ResponseWriter, r *http.Request, z int, x int, y int) {
	requestID := requestID(r)

	if s.options.Store == nil {
		s.writeErrorResponse(w, http.StatusNotFound, api.TILENOTFOUND,
			"No pyramid is being served", &requestID, nil)
		return
	}
	// Range-check while x and y are still ints; tile.At truncates to uint32.
	if z < 0 || z > tile.MaxZoom || x < 0 || y < 0 || x >= tile.GridSize(z) || y >= tile.GridSize(z) {
		s.writeErrorResponse(w, http.StatusNotFound, api.TILENOTFOUND,
			fmt.Sprintf("Tile %d/%d/%d is outside the pyramid", z, x, y), &requestID, nil)
		return
	}

	t := tile.At(z, x, y)
	key := string(sink.Key(t))
	data, ok := s.cache.Get(key)
	if !ok {
		var err error
		data, err = s.options.Store.Get(r.Context(), t)
		if errors.Is(err, tile.ErrTileNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, api.TILENOTFOUND,
				fmt.Sprintf("Tile %d/%d/%d not found", z, x, y), &requestID, nil)
			return
		}
		if err != nil {
			s.logger.WithField("request_id", requestID).WithError(err).Error("Failed to read tile")
			s.writeErrorResponse(w, http.StatusInternalServerError, api.INTERNALERROR,
				"Internal server error", &requestID, nil)
			return
		}
		s.cache.Add(key, data)
	}

	w.Header().Set("Content-Type", s.options.Format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.WithError(err).Warn("Error writing tile response")
	}
}

// CreatePyramid builds a pyramid from the image in the request body and
// returns it as a zstd-compressed tar archive
func (s *Server) CreatePyramid(w http.ResponseWriter, r *http.Request, params api.CreatePyramidParams) {
	requestID := requestID(r)

	opts, format, err := s.convertToPyramidOptions(params)
	if err != nil {
		s.writeValidationErrorResponse(w, err.Error(), &requestID)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.options.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, http.StatusRequestEntityTooLarge, api.VALIDATIONERROR,
				fmt.Sprintf("Upload exceeds %s", humanize.Bytes(uint64(tooLarge.Limit))), &requestID, nil)
			return
		}
		s.writeErrorResponse(w, http.StatusBadRequest, api.INVALIDIMAGE,
			err.Error(), &requestID, nil)
		return
	}

	// Check dimensions from the header before decoding any pixels.
	imgConfig, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.INVALIDIMAGE,
			fmt.Sprintf("failed to decode image: %v", err), &requestID, nil)
		return
	}
	if err := s.checkPixelBudget(imgConfig.Width, imgConfig.Height, opts); err != nil {
		s.writeValidationErrorResponse(w, err.Error(), &requestID)
		return
	}

	processor := tile.NewProcessor(format, 0)
	src, err := processor.Decode(bytes.NewReader(body))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.INVALIDIMAGE,
			err.Error(), &requestID, nil)
		return
	}

	logger := s.logger.WithField("request_id", requestID)
	builder, err := pyramid.NewBuilder(opts, tiler.LogObserver(logger))
	if err != nil {
		s.writeValidationErrorResponse(w, err.Error(), &requestID)
		return
	}

	var buf bytes.Buffer
	archive := sink.NewArchive(&buf, processor)
	result, err := builder.Build(r.Context(), src, archive)
	if cerr := archive.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.handleBuildError(w, err, &requestID)
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sink.ArchiveName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-Pyramid-Max-Zoom", strconv.Itoa(result.MaxLevel()))
	w.Header().Set("X-Pyramid-Tiles", strconv.Itoa(result.Tiles))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.WithError(err).Warn("Error writing response")
	}
}

// convertToPyramidOptions validates the request parameters
func (s *Server) convertToPyramidOptions(params api.CreatePyramidParams) (tile.PyramidOptions, tile.Format, error) {
	opts := tile.DefaultPyramidOptions()

	if params.Zoom < 0 || params.Zoom > s.options.MaxUploadZoom {
		return opts, tile.FormatPNG, fmt.Errorf("zoom must be between 0 and %d", s.options.MaxUploadZoom)
	}
	opts.MaxZoom = params.Zoom

	if params.TileSize != nil {
		if *params.TileSize <= 0 || *params.TileSize > MaxUploadTileSize {
			return opts, tile.FormatPNG, fmt.Errorf("tile_size must be between 1 and %d", MaxUploadTileSize)
		}
		opts.TileSize = *params.TileSize
	}

	if params.Background != nil {
		bg, err := tile.ParseBackground(*params.Background)
		if err != nil {
			return opts, tile.FormatPNG, err
		}
		opts.Background = bg
	}

	format := tile.FormatPNG
	if params.Format != nil {
		f, err := tile.ParseFormat(*params.Format)
		if err != nil {
			return opts, tile.FormatPNG, err
		}
		format = f
	}

	return opts, format, nil
}

// checkPixelBudget rejects uploads whose source, or whose largest rendered
// canvas, exceeds MaxUploadPixels
func (s *Server) checkPixelBudget(width, height int, opts tile.PyramidOptions) error {
	budget := s.options.MaxUploadPixels
	if int64(width)*int64(height) > budget {
		return fmt.Errorf("image is %dx%d, more than the %s pixel limit",
			width, height, humanize.Comma(budget))
	}

	levels := pyramid.PlanLevels(width, height, opts.TileSize, opts.MaxZoom)
	if len(levels) == 0 {
		return nil
	}
	canvas := int64(tile.CanvasSize(opts.TileSize, levels[0]))
	if canvas*canvas > budget {
		return fmt.Errorf("zoom %d needs a %dx%d canvas, more than the %s pixel limit",
			levels[0], canvas, canvas, humanize.Comma(budget))
	}
	return nil
}

// handleBuildError handles errors from the pyramid build
func (s *Server) handleBuildError(w http.ResponseWriter, err error, requestID *string) {
	if errors.Is(err, context.DeadlineExceeded) {
		s.writeErrorResponse(w, http.StatusGatewayTimeout, "BUILD_TIMEOUT",
			"Pyramid build timed out", requestID, nil)
		return
	}

	details := map[string]interface{}{}
	var dm *tile.DimensionMismatchError
	if errors.As(err, &dm) {
		details["zoom"] = dm.Zoom
		details["width"] = dm.Width
		details["height"] = dm.Height
	}

	s.logger.WithField("request_id", *requestID).WithError(err).Error("Pyramid build failed")
	s.writeErrorResponse(w, http.StatusInternalServerError, api.INTERNALERROR,
		"Internal server error", requestID, details)
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string, details map[string]interface{}) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if len(details) > 0 {
		response.Details = &details
	}

	s.writeJSON(w, statusCode, response)
}

// writeValidationErrorResponse writes a validation error response
func (s *Server) writeValidationErrorResponse(w http.ResponseWriter, message string, requestID *string) {
	s.writeErrorResponse(w, http.StatusBadRequest, api.VALIDATIONERROR, message, requestID, nil)
}

// ParamErrorHandler reports parameter binding failures as validation errors.
func (s *Server) ParamErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestID(r)
	s.writeValidationErrorResponse(w, err.Error(), &requestID)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("Error encoding response")
	}
}

// requestID returns the id assigned by the RequestID middleware, or generates one
func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return generateRequestID()
}

// generateRequestID generates a unique request ID
func generateRequestID() string {
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
