package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	app "github.com/icook-app/icook/internal/app"
	"github.com/icook-app/icook/internal/app/metrics"
	"github.com/icook-app/icook/internal/middleware"
	"github.com/icook-app/icook/pkg/logger"
)

const maxBodyBytes = 8 << 20 // pictures travel inline as encoded strings

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app      *app.Application
	log      *logger.Logger
	validate *validator.Validate
}

// scopedFunc is an endpoint that runs inside a request scope.
type scopedFunc func(w http.ResponseWriter, r *http.Request, scope *app.Scope)

// NewHandler returns a router exposing the iCook REST API together with
// /healthz and /metrics.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("http")
	}
	h := &handler{app: application, log: log, validate: newValidator()}

	router := mux.NewRouter()
	router.Use(middleware.NewTracingMiddleware(log).Handler, metrics.InstrumentHandler)

	users := router.PathPrefix("/users").Subrouter()
	users.HandleFunc("/create", h.scoped(h.createUser)).Methods(http.MethodPost)
	users.HandleFunc("/update", h.scoped(h.updateUser)).Methods(http.MethodPut)
	users.HandleFunc("/login", h.scoped(h.login)).Methods(http.MethodPost)
	users.HandleFunc("/{username}", h.scoped(h.getUser)).Methods(http.MethodGet)

	posts := router.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("/create", h.scoped(h.createPost)).Methods(http.MethodPost)
	posts.HandleFunc("/feed/{username}", h.scoped(h.feed)).Methods(http.MethodGet)
	posts.HandleFunc("/delete/{id:[0-9]+}", h.scoped(h.deletePost)).Methods(http.MethodDelete)
	posts.HandleFunc("/likes/append/{id:[0-9]+}/{username}", h.scoped(h.appendLike)).Methods(http.MethodPut)
	posts.HandleFunc("/likes/pop/{id:[0-9]+}/{username}", h.scoped(h.popLike)).Methods(http.MethodPut)
	posts.HandleFunc("/{username}", h.scoped(h.postsByUsername)).Methods(http.MethodGet)

	comments := router.PathPrefix("/comments").Subrouter()
	comments.HandleFunc("/create", h.scoped(h.createComment)).Methods(http.MethodPost)
	comments.HandleFunc("/{post_id:[0-9]+}", h.scoped(h.commentsByPost)).Methods(http.MethodGet)

	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return router
}

// scoped opens a request scope, runs fn and always releases the scope.
func (h *handler) scoped(fn scopedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := h.app.Open(r.Context())
		if err != nil {
			h.fault(w, r, err)
			return
		}
		defer func() {
			if err := scope.Close(); err != nil {
				h.log.WithError(err).
					WithField("trace_id", middleware.TraceID(r.Context())).
					Warn("release storage session")
			}
		}()
		fn(w, r, scope)
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Ping(r.Context()); err != nil {
		h.log.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody reads a JSON body into dst and validates it.
func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), dst); err != nil {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// fault logs an unexpected error and answers 500 without leaking details.
func (h *handler) fault(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithError(err).
		WithField("trace_id", middleware.TraceID(r.Context())).
		WithField("path", metrics.RoutePath(r)).
		Error("request failed")
	writeMessage(w, http.StatusInternalServerError, "internal error")
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return v
}

// maxBytes bounds the byte length of a string field. The builtin max tag
// counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "maxbytes":
			parts = append(parts, fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param()))
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
