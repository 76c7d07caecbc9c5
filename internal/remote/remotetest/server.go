// Package remotetest provides a scriptable in-process remote authority for
// sync engine tests.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nhle/repertoire/internal/remote"
)

// ItemHandler produces the response for one item sync request. Returning a
// non-2xx status sends that status with an empty body instead.
type ItemHandler func(req remote.ItemSyncRequest) (*remote.ItemSyncResponse, int)

// SessionHandler produces the response for one session sync request.
type SessionHandler func(req remote.SessionSyncRequest) (*remote.SessionSyncResponse, int)

// Server is a fake remote authority. By default it acknowledges every
// uploaded record and returns no server-side changes; tests override the
// handlers to script merges and failures.
type Server struct {
	httpServer *httptest.Server

	mu              sync.Mutex
	itemHandler     ItemHandler
	sessionHandler  SessionHandler
	itemRequests    []remote.ItemSyncRequest
	sessionRequests []remote.SessionSyncRequest
	bearerTokens    []string
}

// New starts a fake remote authority and shuts it down when the test ends.
func New(t *testing.T) *Server {
	t.Helper()

	s := &Server{}
	s.itemHandler = func(req remote.ItemSyncRequest) (*remote.ItemSyncResponse, int) {
		resp := &remote.ItemSyncResponse{
			UploadedIDs: payloadIDs(req.Records),
			SyncedAt:    time.Now().UTC(),
		}
		return resp, http.StatusOK
	}
	s.sessionHandler = func(req remote.SessionSyncRequest) (*remote.SessionSyncResponse, int) {
		ids := make([]string, 0, len(req.Records))
		for _, r := range req.Records {
			ids = append(ids, r.ID)
		}
		return &remote.SessionSyncResponse{
			UploadedIDs: ids,
			SyncedAt:    time.Now().UTC(),
		}, http.StatusOK
	}

	router := chi.NewRouter()
	router.Post("/v1/items/sync", s.handleItems)
	router.Post("/v1/sessions/sync", s.handleSessions)

	s.httpServer = httptest.NewServer(router)
	t.Cleanup(s.httpServer.Close)

	return s
}

// URL returns the base URL of the fake authority.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// OnItems replaces the item sync handler.
func (s *Server) OnItems(h ItemHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemHandler = h
}

// OnSessions replaces the session sync handler.
func (s *Server) OnSessions(h SessionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionHandler = h
}

// FailItems makes every item sync request return the given status.
func (s *Server) FailItems(status int) {
	s.OnItems(func(remote.ItemSyncRequest) (*remote.ItemSyncResponse, int) {
		return nil, status
	})
}

// FailSessions makes every session sync request return the given status.
func (s *Server) FailSessions(status int) {
	s.OnSessions(func(remote.SessionSyncRequest) (*remote.SessionSyncResponse, int) {
		return nil, status
	})
}

// ItemRequests returns a copy of all item sync requests received so far.
func (s *Server) ItemRequests() []remote.ItemSyncRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.ItemSyncRequest, len(s.itemRequests))
	copy(out, s.itemRequests)
	return out
}

// SessionRequests returns a copy of all session sync requests received.
func (s *Server) SessionRequests() []remote.SessionSyncRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.SessionSyncRequest, len(s.sessionRequests))
	copy(out, s.sessionRequests)
	return out
}

// BearerTokens returns the Authorization bearer tokens seen, in order.
func (s *Server) BearerTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.bearerTokens))
	copy(out, s.bearerTokens)
	return out
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	var req remote.ItemSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.itemRequests = append(s.itemRequests, req)
	s.bearerTokens = append(s.bearerTokens, bearerToken(r))
	handler := s.itemHandler
	s.mu.Unlock()

	resp, status := handler(req)
	writeResponse(w, resp, status)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	var req remote.SessionSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.sessionRequests = append(s.sessionRequests, req)
	handler := s.sessionHandler
	s.mu.Unlock()

	resp, status := handler(req)
	writeResponse(w, resp, status)
}

func writeResponse(w http.ResponseWriter, resp interface{}, status int) {
	if status < 200 || status > 299 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func payloadIDs(records []remote.ItemPayload) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}
