// Package api defines the HTTP surface of the tile server: response types,
// the ServerInterface implemented by internal/server, and a chi handler that
// binds path and query parameters before dispatching.
package api

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

const (
	Healthy   HealthResponseStatus = "healthy"
	Unhealthy HealthResponseStatus = "unhealthy"
)

// Error codes
const (
	VALIDATIONERROR = "VALIDATION_ERROR"
	TILENOTFOUND    = "TILE_NOT_FOUND"
	NOMANIFEST      = "MANIFEST_NOT_FOUND"
	INVALIDIMAGE    = "INVALID_IMAGE"
	INTERNALERROR   = "INTERNAL_ERROR"
)

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Uptime    *int                 `json:"uptime,omitempty"`
	Version   *string              `json:"version,omitempty"`
}

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
	Details   *map[string]interface{} `json:"details,omitempty"`
}

// CreatePyramidParams defines parameters for CreatePyramid.
type CreatePyramidParams struct {
	// Zoom is the highest zoom level requested.
	Zoom int `form:"zoom" json:"zoom"`

	// TileSize defaults to 256.
	TileSize *int `form:"tile_size,omitempty" json:"tile_size,omitempty"`

	// Background is "transparent", "auto" or a hex color.
	Background *string `form:"background,omitempty" json:"background,omitempty"`

	// Format is "png" or "jpeg".
	Format *string `form:"format,omitempty" json:"format,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Health check
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// Pyramid manifest
	// (GET /manifest)
	GetManifest(w http.ResponseWriter, r *http.Request)
	// Build a pyramid from the uploaded image and return it as a tar.zst archive
	// (POST /pyramid)
	CreatePyramid(w http.ResponseWriter, r *http.Request, params CreatePyramidParams)
	// Fetch one tile
	// (GET /tiles/{z}/{x}/{y})
	GetTile(w http.ResponseWriter, r *http.Request, z int, x int, y int)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

func (siw *ServerInterfaceWrapper) wrap(h http.Handler) http.Handler {
	for _, middleware := range siw.HandlerMiddlewares {
		h = middleware(h)
	}
	return h
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	siw.wrap(http.HandlerFunc(siw.Handler.GetHealth)).ServeHTTP(w, r)
}

// GetManifest operation middleware
func (siw *ServerInterfaceWrapper) GetManifest(w http.ResponseWriter, r *http.Request) {
	siw.wrap(http.HandlerFunc(siw.Handler.GetManifest)).ServeHTTP(w, r)
}

// CreatePyramid operation middleware
func (siw *ServerInterfaceWrapper) CreatePyramid(w http.ResponseWriter, r *http.Request) {
	var err error
	var params CreatePyramidParams
	query := r.URL.Query()

	err = runtime.BindQueryParameter("form", true, true, "zoom", query, &params.Zoom)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "zoom", Err: err})
		return
	}

	err = runtime.BindQueryParameter("form", true, false, "tile_size", query, &params.TileSize)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "tile_size", Err: err})
		return
	}

	err = runtime.BindQueryParameter("form", true, false, "background", query, &params.Background)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "background", Err: err})
		return
	}

	err = runtime.BindQueryParameter("form", true, false, "format", query, &params.Format)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "format", Err: err})
		return
	}

	siw.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CreatePyramid(w, r, params)
	})).ServeHTTP(w, r)
}

// GetTile operation middleware
func (siw *ServerInterfaceWrapper) GetTile(w http.ResponseWriter, r *http.Request) {
	var z, x, y int
	for _, p := range []struct {
		name string
		dest *int
	}{{"z", &z}, {"x", &x}, {"y", &y}} {
		value := chi.URLParam(r, p.name)
		if p.name == "y" {
			// Accept /tiles/{z}/{x}/{y}.png as well as the bare row.
			value = strings.TrimSuffix(value, path.Ext(value))
		}
		err := runtime.BindStyledParameterWithOptions("simple", p.name, value, p.dest,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: p.name, Err: err})
			return
		}
	}

	siw.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetTile(w, r, z, x, y)
	})).ServeHTTP(w, r)
}

// InvalidParamFormatError is passed to the error handler when a parameter
// cannot be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler creates http.Handler with routing matching the API.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.GetHealth)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/manifest", wrapper.GetManifest)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/pyramid", wrapper.CreatePyramid)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/tiles/{z}/{x}/{y}", wrapper.GetTile)
	})

	return r
}
