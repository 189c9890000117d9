package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/pkg/domain"
)

// PublishRequestBody is the body of POST /flows/{flowId}/publish.
type PublishRequestBody struct {
	PublisherID     string `json:"publisherId"`
	Summary         string `json:"summary"`
	ExpectedVersion *int   `json:"expectedVersion,omitempty"`
}

// SearchRequestBody is the body of POST /flows/{flowId}/search.
type SearchRequestBody struct {
	Find    string  `json:"find"`
	Replace *string `json:"replace,omitempty"`
}

// CopyRequestBody is the body of POST /flows/{flowId}/copy.
type CopyRequestBody struct {
	Suffix string `json:"suffix"`
	Insert bool   `json:"insert"`
	TeamID string `json:"teamId"`
	Slug   string `json:"slug"`
}

// CopyPortalRequestBody is the body of POST /flows/{flowId}/copy-portal/{portalNodeId}.
type CopyPortalRequestBody struct {
	Suffix string `json:"suffix"`
}

// GraphResponse wraps a graph result.
type GraphResponse struct {
	FlowID string       `json:"flowId,omitempty"`
	Data   domain.Graph `json:"data"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "flowgraph-http",
		"version":     strings.TrimSpace(flowgraph.Version),
		"api_version": apiVersion,
	})
}

// ValidateFlow handles the GET /flows/{flowId}/validate request.
func (s *Server) ValidateFlow(w http.ResponseWriter, r *http.Request) {
	flowID, err := pathParam(r, "flowId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := s.Service.ValidateDraft(r.Context(), flowID)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// PublishFlow handles the POST /flows/{flowId}/publish request.
func (s *Server) PublishFlow(w http.ResponseWriter, r *http.Request) {
	flowID, err := pathParam(r, "flowId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var body PublishRequestBody
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, report, err := s.Service.Publish(r.Context(), flowID, flowgraph.PublishRequest{
		PublisherID:     body.PublisherID,
		Summary:         body.Summary,
		ExpectedVersion: body.ExpectedVersion,
	})
	if err != nil {
		if report != nil && errors.Is(err, domain.ErrValidationFailed) {
			s.writeError(w, r, err, report)
			return
		}
		s.writeError(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// FindAndReplace handles the POST /flows/{flowId}/search request.
func (s *Server) FindAndReplace(w http.ResponseWriter, r *http.Request) {
	flowID, err := pathParam(r, "flowId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var body SearchRequestBody
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.Service.FindAndReplace(r.Context(), flowID, body.Find, body.Replace)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// CopyFlow handles the POST /flows/{flowId}/copy request.
func (s *Server) CopyFlow(w http.ResponseWriter, r *http.Request) {
	flowID, err := pathParam(r, "flowId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var body CopyRequestBody
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.Service.CopyFlow(r.Context(), flowID, flowgraph.CopyRequest{
		Suffix: body.Suffix,
		Insert: body.Insert,
		TeamID: body.TeamID,
		Slug:   body.Slug,
	})
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, GraphResponse{FlowID: res.FlowID, Data: res.Data})
}

// CopyPortal handles the POST /flows/{flowId}/copy-portal/{portalNodeId} request.
func (s *Server) CopyPortal(w http.ResponseWriter, r *http.Request) {
	flowID, err := pathParam(r, "flowId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	portalID, err := pathParam(r, "portalNodeId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var body CopyPortalRequestBody
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g, err := s.Service.CopyPortalAsFlow(r.Context(), flowID, portalID, body.Suffix)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, GraphResponse{Data: g})
}

// FlattenFlow handles the GET /flows/{flowId}/flatten request.
func (s *Server) FlattenFlow(w http.ResponseWriter, r *http.Request) {
	flowID, err := pathParam(r, "flowId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var draft bool
	if err := runtime.BindQueryParameter("form", true, false, "draft", r.URL.Query(), &draft); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter draft: %v", err), http.StatusBadRequest)
		return
	}

	g, err := s.Service.FlattenPublished(r.Context(), flowID, draft)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, g)
}

// SyncTemplate handles the POST /flows/{flowId}/sync-template request.
func (s *Server) SyncTemplate(w http.ResponseWriter, r *http.Request) {
	flowID, err := pathParam(r, "flowId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g, err := s.Service.SyncTemplate(r.Context(), flowID)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, GraphResponse{FlowID: flowID, Data: g})
}

// ReconcileSession handles the POST /sessions/{sessionId}/reconcile request.
func (s *Server) ReconcileSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathParam(r, "sessionId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.Service.ReconcileSession(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// SubscribeEvents handles the GET /flows/{flowId}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flowID, err := pathParam(r, "flowId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var watch string
	if err := runtime.BindQueryParameter("form", true, false, "watch", r.URL.Query(), &watch); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter watch: %v", err), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to flow events", "flow_id", flowID)
	ch, cancel := s.Streams.Subscribe(flowID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	watchList := make(map[string]bool)
	for _, op := range strings.Split(watch, ",") {
		if op = strings.TrimSpace(op); op != "" {
			watchList[op] = true
		}
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "flow_id", flowID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 {
				var ev Event
				if err := json.Unmarshal([]byte(msg), &ev); err == nil && !watchList[ev.Operation] {
					continue
				}
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
