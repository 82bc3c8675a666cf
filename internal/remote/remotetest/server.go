// Package remotetest provides an in-process fake of the GitHub Contents API.
package remotetest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Server fakes the subset of the Contents API used by remote.Client.
type Server struct {
	*httptest.Server

	Owner string
	Repo  string
	Token string

	mu        sync.Mutex
	files     map[string][]byte
	revisions map[string]string
	conflicts map[string]int
	failures  map[string]int
	gets      map[string]int
	puts      map[string]int
	messages  []string
}

// NewServer starts a fake for owner/repo accepting token. It is closed when
// the test ends.
func NewServer(t testing.TB, owner, repo, token string) *Server {
	t.Helper()
	s := &Server{
		Owner:     owner,
		Repo:      repo,
		Token:     token,
		files:     make(map[string][]byte),
		revisions: make(map[string]string),
		conflicts: make(map[string]int),
		failures:  make(map[string]int),
		gets:      make(map[string]int),
		puts:      make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// SetFile stores raw JSON at path.
func (s *Server) SetFile(path string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = content
	s.revisions[path] = revisionOf(content)
}

// File returns the stored content of path.
func (s *Server) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[path]
	return b, ok
}

// FailConflicts makes the next n writes to path answer 409.
func (s *Server) FailConflicts(path string, n int) {
	s.mu.Lock()
	s.conflicts[path] = n
	s.mu.Unlock()
}

// FailRequests makes the next n requests for path answer 500.
func (s *Server) FailRequests(path string, n int) {
	s.mu.Lock()
	s.failures[path] = n
	s.mu.Unlock()
}

// Gets returns the number of reads of path.
func (s *Server) Gets(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[path]
}

// Puts returns the number of write attempts on path.
func (s *Server) Puts(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[path]
}

// Messages returns the commit messages of accepted writes.
func (s *Server) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func revisionOf(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "token "+s.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}

	repoPrefix := "/repos/" + s.Owner + "/" + s.Repo
	if r.URL.Path == repoPrefix {
		writeJSON(w, http.StatusOK, map[string]string{"full_name": s.Owner + "/" + s.Repo})
		return
	}
	path, ok := strings.CutPrefix(r.URL.Path, repoPrefix+"/contents/")
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Method == http.MethodPut {
		s.puts[path]++
	} else {
		s.gets[path]++
	}
	if s.failures[path] > 0 {
		s.failures[path]--
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Server Error"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		content, ok := s.files[path]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		encoded := base64.StdEncoding.EncodeToString(content)
		writeJSON(w, http.StatusOK, map[string]string{
			"content":  wrap(encoded, 60),
			"encoding": "base64",
			"sha":      s.revisions[path],
		})

	case http.MethodPut:
		var req struct {
			Message string `json:"message"`
			Content string `json:"content"`
			SHA     string `json:"sha"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": err.Error()})
			return
		}
		if s.conflicts[path] > 0 {
			s.conflicts[path]--
			writeJSON(w, http.StatusConflict, map[string]string{"message": "is at " + s.revisions[path] + " but expected " + req.SHA})
			return
		}
		if req.SHA != s.revisions[path] {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "sha does not match"})
			return
		}
		content, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "content is not valid Base64"})
			return
		}
		s.files[path] = content
		s.revisions[path] = revisionOf(content)
		s.messages = append(s.messages, req.Message)
		status := http.StatusOK
		if req.SHA == "" {
			status = http.StatusCreated
		}
		writeJSON(w, status, map[string]any{"content": map[string]string{"path": path, "sha": s.revisions[path]}})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}
