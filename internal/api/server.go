// Package api exposes the ingress HTTP API callers use to submit MMS
// operations and poll their status.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/openmms/mmsd/internal/core/domain"
	"github.com/openmms/mmsd/internal/infra/storage"
)

// Dispatcher accepts a built request for execution.
type Dispatcher interface {
	Submit(ctx context.Context, req *domain.Request) error
}

// Server is the ingress HTTP API.
type Server struct {
	repo       storage.MessageRepository
	dispatcher Dispatcher
	server     *http.Server
}

// NewServer creates the ingress server.
func NewServer(repo storage.MessageRepository, dispatcher Dispatcher, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		repo:       repo,
		dispatcher: dispatcher,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("POST /v1/messages/send", s.handleSend)
	mux.HandleFunc("POST /v1/messages/download", s.handleDownload)
	mux.HandleFunc("GET /v1/messages/{transaction_id}", s.handleGet)

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type sendBody struct {
	SubscriptionID string            `json:"subscription_id"`
	Creator        string            `json:"creator"`
	Payload        []byte            `json:"payload"` // base64 in JSON
	Overrides      map[string]string `json:"overrides,omitempty"`
	WebhookURL     string            `json:"webhook_url,omitempty"`
}

type downloadBody struct {
	SubscriptionID string            `json:"subscription_id"`
	Creator        string            `json:"creator"`
	ContentURL     string            `json:"content_url"`
	Overrides      map[string]string `json:"overrides,omitempty"`
	WebhookURL     string            `json:"webhook_url,omitempty"`
}

type submitResponse struct {
	TransactionID string `json:"transaction_id"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var body sendBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.SubscriptionID == "" || len(body.Payload) == 0 {
		writeError(w, http.StatusBadRequest, "subscription_id and payload are required")
		return
	}

	s.submit(w, r, &domain.Request{
		Kind:           domain.KindSend,
		SubscriptionID: body.SubscriptionID,
		Creator:        body.Creator,
		Payload:        body.Payload,
		Overrides:      body.Overrides,
		WebhookURL:     body.WebhookURL,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var body downloadBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.SubscriptionID == "" || body.ContentURL == "" {
		writeError(w, http.StatusBadRequest, "subscription_id and content_url are required")
		return
	}

	s.submit(w, r, &domain.Request{
		Kind:           domain.KindDownload,
		SubscriptionID: body.SubscriptionID,
		Creator:        body.Creator,
		ContentURL:     body.ContentURL,
		Overrides:      body.Overrides,
		WebhookURL:     body.WebhookURL,
	})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, req *domain.Request) {
	req.TransactionID = uuid.New().String()

	id, err := s.repo.Create(r.Context(), &domain.Message{
		TransactionID:  req.TransactionID,
		Kind:           req.Kind,
		SubscriptionID: req.SubscriptionID,
		Creator:        req.Creator,
		Status:         domain.StatusPending,
	})
	if err != nil {
		slog.Error("failed to create message row", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist message")
		return
	}
	req.MessageID = id

	if err := s.dispatcher.Submit(r.Context(), req); err != nil {
		slog.Error("failed to dispatch request", "transaction_id", req.TransactionID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to dispatch request")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(submitResponse{TransactionID: req.TransactionID})
}

type messageResponse struct {
	TransactionID string `json:"transaction_id"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	ResultCode    string `json:"result_code,omitempty"`
	Response      []byte `json:"response,omitempty"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	txID := r.PathValue("transaction_id")

	msg, err := s.repo.GetByTransactionID(r.Context(), txID)
	if errors.Is(err, storage.ErrMessageNotFound) {
		writeError(w, http.StatusNotFound, "no such message")
		return
	}
	if err != nil {
		slog.Error("failed to load message", "transaction_id", txID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load message")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messageResponse{
		TransactionID: msg.TransactionID,
		Kind:          string(msg.Kind),
		Status:        string(msg.Status),
		ResultCode:    string(msg.ResultCode),
		Response:      msg.Response,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
