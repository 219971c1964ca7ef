// Package server is the thin HTTP JSON front door in front of the
// dispatcher. Transport is an assumed boundary, not a designed protocol:
// one POST endpoint, one request shape, gRPC-code-derived statuses.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"google.golang.org/grpc/codes"

	"github.com/louisbranch/tacklebox/internal/dispatcher"
	apperrors "github.com/louisbranch/tacklebox/internal/errors"
)

// invokeRequest is the JSON body of POST /invoke.
type invokeRequest struct {
	Platform string   `json:"platform"`
	Handle   string   `json:"handle"`
	Verb     string   `json:"verb"`
	Args     []string `json:"args"`
}

// Server serves the dispatcher over HTTP.
type Server struct {
	dispatcher *dispatcher.Dispatcher
	httpServer *http.Server
}

// New creates an HTTP server bound to addr.
func New(addr string, d *dispatcher.Dispatcher) *Server {
	s := &Server{dispatcher: d}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /invoke", s.handleInvoke)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until ctx is canceled or the
// listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dispatcher.Result{
			Code:    string(apperrors.CodeUnknown),
			Message: "malformed request body",
		})
		return
	}
	if req.Handle == "" || req.Verb == "" {
		writeJSON(w, http.StatusBadRequest, dispatcher.Result{
			Code:    string(apperrors.CodeUnknown),
			Message: "handle and verb are required",
		})
		return
	}

	result, err := s.dispatcher.Invoke(r.Context(), dispatcher.Request{
		Platform: req.Platform,
		Handle:   req.Handle,
		Verb:     req.Verb,
		Args:     req.Args,
	})
	if err != nil {
		log.Printf("invoke %s for %s/%s: %v", req.Verb, req.Platform, req.Handle, err)
		writeJSON(w, http.StatusInternalServerError, dispatcher.Result{
			Code:    string(apperrors.CodeUnknown),
			Message: apperrors.UserMessage(err),
		})
		return
	}

	writeJSON(w, httpStatus(result.Code), result)
}

// httpStatus derives the response status from the result's error code via
// the gRPC mapping. Successful verbs ride on 200; expected game failures
// map through the same table the gRPC surface would use.
func httpStatus(code string) int {
	if code == "" {
		return http.StatusOK
	}
	switch apperrors.Code(code).GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
