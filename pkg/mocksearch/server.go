// Package mocksearch serves an in-memory search index over the same admin REST API
// the searchindex client speaks. It backs tests and local end-to-end runs.
package mocksearch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shpitdev/destination-pipeline/pkg/searchindex"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
}

type index struct {
	settings  searchindex.Settings
	synonyms  map[string]searchindex.Synonym
	objects   map[string]map[string]any
	updatedAt time.Time
}

// Server implements a minimal search admin API surface.
type Server struct {
	mu    sync.Mutex
	calls []Call

	appID  string
	apiKey string

	indices map[string]*index

	nextTask     int64
	pendingPolls int
	tasks        map[int64]int

	batchCalls  int
	failBatches map[int]int
}

// New constructs an empty mock server.
func New() *Server {
	return &Server{
		indices:     make(map[string]*index),
		nextTask:    1,
		tasks:       make(map[int64]int),
		failBatches: make(map[int]int),
	}
}

// RequireAPIKey enforces the application id and API key headers. Empty values
// disable enforcement.
func (s *Server) RequireAPIKey(appID, apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appID = strings.TrimSpace(appID)
	s.apiKey = strings.TrimSpace(apiKey)
}

// SetPendingPolls makes every new task report notPublished for n polls.
func (s *Server) SetPendingPolls(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingPolls = n
}

// FailBatch makes the nth batch request (1-based, counted across indices) fail
// with the given HTTP status.
func (s *Server) FailBatch(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failBatches[n] = status
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.recordCall)
	r.Use(s.authorize)

	r.Get("/1/indexes", s.handleListIndices)
	r.Route("/1/indexes/{index}", func(r chi.Router) {
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleSetSettings)
		r.Post("/synonyms/batch", s.handleSaveSynonyms)
		r.Post("/batch", s.handleBatch)
		r.Post("/clear", s.handleClear)
		r.Get("/task/{taskID}", s.handleGetTask)
		r.Get("/{objectID}", s.handleGetObject)
	})
	return r
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Objects returns a copy of the records stored in an index, keyed by objectID.
func (s *Server) Objects(name string) map[string]map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]map[string]any{}
	if idx, ok := s.indices[name]; ok {
		for id, obj := range idx.objects {
			out[id] = obj
		}
	}
	return out
}

// Settings returns the stored settings of an index.
func (s *Server) Settings(name string) searchindex.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indices[name]; ok {
		return idx.settings
	}
	return searchindex.Settings{}
}

// Synonyms returns the stored synonyms of an index, sorted by objectID.
func (s *Server) Synonyms(name string) []searchindex.Synonym {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []searchindex.Synonym
	if idx, ok := s.indices[name]; ok {
		for _, syn := range idx.synonyms {
			out = append(out, syn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID < out[j].ObjectID })
	return out
}

func (s *Server) recordCall(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		appID, apiKey := s.appID, s.apiKey
		s.mu.Unlock()

		if appID != "" && r.Header.Get("X-Algolia-Application-Id") != appID {
			writeError(w, http.StatusForbidden, "Invalid Application-ID or API key")
			return
		}
		if apiKey != "" && r.Header.Get("X-Algolia-API-Key") != apiKey {
			writeError(w, http.StatusForbidden, "Invalid Application-ID or API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// indexLocked returns the named index, creating it. Callers hold s.mu.
func (s *Server) indexLocked(name string) *index {
	idx, ok := s.indices[name]
	if !ok {
		idx = &index{
			synonyms: make(map[string]searchindex.Synonym),
			objects:  make(map[string]map[string]any),
		}
		s.indices[name] = idx
	}
	idx.updatedAt = time.Now().UTC()
	return idx
}

// newTaskLocked allocates a task id. Callers hold s.mu.
func (s *Server) newTaskLocked() int64 {
	id := s.nextTask
	s.nextTask++
	s.tasks[id] = s.pendingPolls
	return id
}

func (s *Server) handleListIndices(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	items := make([]searchindex.IndexInfo, 0, len(s.indices))
	for name, idx := range s.indices {
		size := 0
		for _, obj := range idx.objects {
			if b, err := json.Marshal(obj); err == nil {
				size += len(b)
			}
		}
		items = append(items, searchindex.IndexInfo{
			Name:      name,
			Entries:   len(idx.objects),
			DataSize:  int64(size),
			FileSize:  int64(size),
			UpdatedAt: idx.updatedAt.Format(time.RFC3339),
		})
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	writeJSON(w, http.StatusOK, searchindex.ListIndicesResponse{Items: items, NbPages: 1})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	name := param(r, "index")
	s.mu.Lock()
	idx, ok := s.indices[name]
	var settings searchindex.Settings
	if ok {
		settings = idx.settings
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Index does not exist")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	var settings searchindex.Settings
	if !decode(w, r, &settings) {
		return
	}
	s.mu.Lock()
	s.indexLocked(param(r, "index")).settings = settings
	task := s.newTaskLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, searchindex.TaskResponse{TaskID: task, UpdatedAt: now()})
}

func (s *Server) handleSaveSynonyms(w http.ResponseWriter, r *http.Request) {
	var synonyms []searchindex.Synonym
	if !decode(w, r, &synonyms) {
		return
	}
	replace, _ := strconv.ParseBool(r.URL.Query().Get("replaceExistingSynonyms"))

	s.mu.Lock()
	idx := s.indexLocked(param(r, "index"))
	if replace {
		idx.synonyms = make(map[string]searchindex.Synonym)
	}
	for _, syn := range synonyms {
		idx.synonyms[syn.ObjectID] = syn
	}
	task := s.newTaskLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, searchindex.TaskResponse{TaskID: task, UpdatedAt: now()})
}

type batchOperation struct {
	Action string         `json:"action"`
	Body   map[string]any `json:"body"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Requests []batchOperation `json:"requests"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	s.batchCalls++
	n := s.batchCalls
	if status, ok := s.failBatches[n]; ok {
		s.mu.Unlock()
		writeError(w, status, fmt.Sprintf("injected failure for batch %d", n))
		return
	}
	ids := make([]string, 0, len(req.Requests))
	for i, op := range req.Requests {
		id, _ := op.Body["objectID"].(string)
		if strings.TrimSpace(id) == "" {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, fmt.Sprintf("requests[%d]: objectID is required", i))
			return
		}
		switch op.Action {
		case searchindex.ActionUpdateObject, searchindex.ActionDeleteObject:
		default:
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, fmt.Sprintf("requests[%d]: unsupported action %q", i, op.Action))
			return
		}
		ids = append(ids, id)
	}
	idx := s.indexLocked(param(r, "index"))
	for i, op := range req.Requests {
		if op.Action == searchindex.ActionDeleteObject {
			delete(idx.objects, ids[i])
			continue
		}
		idx.objects[ids[i]] = op.Body
	}
	task := s.newTaskLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, searchindex.BatchResponse{TaskID: task, ObjectIDs: ids})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.indexLocked(param(r, "index")).objects = make(map[string]map[string]any)
	task := s.newTaskLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, searchindex.TaskResponse{TaskID: task, UpdatedAt: now()})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(param(r, "taskID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	s.mu.Lock()
	remaining, ok := s.tasks[id]
	if ok && remaining > 0 {
		s.tasks[id] = remaining - 1
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Task does not exist")
		return
	}
	status := searchindex.TaskPublished
	if remaining > 0 {
		status = searchindex.TaskNotPublished
	}
	writeJSON(w, http.StatusOK, searchindex.TaskStatus{Status: status, PendingTask: remaining > 0})
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	name, id := param(r, "index"), param(r, "objectID")
	s.mu.Lock()
	var obj map[string]any
	if idx, ok := s.indices[name]; ok {
		obj = idx.objects[id]
	}
	s.mu.Unlock()
	if obj == nil {
		writeError(w, http.StatusNotFound, "ObjectID does not exist")
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func param(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg, "status": status})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
