// Package main implements a mock Gemini server for local development and
// wiring tests. It serves generateContent responses from JSON fixture files,
// routing by the model name in the URL, so the agromitra workflows can run
// fast, deterministic and offline against GEMINI_BASE_URL pointed here.
//
// Usage:
//
//	mock-llm -fixtures /path/to/fixtures -port 11434
//
// Fixture files are JSON named by model: "mock-recommender.json" answers
// calls to model "mock-recommender", and its content is returned verbatim as
// the candidate text.
//
// Sequential fixtures: if numbered files exist ("mock-recommender.1.json",
// "mock-recommender.2.json"), the Nth call to that model returns the Nth
// fixture, falling back to the base file once the numbers run out. That is
// enough to script a validation-retry round trip: an invalid first response
// followed by the corrected one.
//
// The files API is mocked too: uploads answer with a synthetic file URI and
// deletes always succeed, so the pesticide workflow's media handling runs
// end to end.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Gemini generateContent wire types, request side trimmed to what the mock
// inspects.

type generateRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates    []candidate   `json:"candidates"`
	UsageMetadata usageMetadata `json:"usageMetadata"`
}

type candidate struct {
	Content struct {
		Role  string `json:"role"`
		Parts []part `json:"parts"`
	} `json:"content"`
	FinishReason string `json:"finishReason"`
}

type part struct {
	Text string `json:"text"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type fileResponse struct {
	File struct {
		Name     string `json:"name"`
		URI      string `json:"uri"`
		MIMEType string `json:"mimeType"`
	} `json:"file"`
}

// fixtureServer resolves fixture files and tracks per-model call counts for
// sequential fixtures.
type fixtureServer struct {
	dir      string
	mu       sync.Mutex
	counts   map[string]int
	uploads  atomic.Int64
	latency  time.Duration
	verbose  bool
	seqFiles map[string][]string
}

var seqPattern = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

func newFixtureServer(dir string, latency time.Duration, verbose bool) (*fixtureServer, error) {
	s := &fixtureServer{
		dir:      dir,
		counts:   map[string]int{},
		seqFiles: map[string][]string{},
		latency:  latency,
		verbose:  verbose,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fixtures dir: %w", err)
	}
	type numbered struct {
		n    int
		path string
	}
	seq := map[string][]numbered{}
	for _, entry := range entries {
		m := seqPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[2])
		seq[m[1]] = append(seq[m[1]], numbered{n: n, path: filepath.Join(dir, entry.Name())})
	}
	for model, files := range seq {
		sort.Slice(files, func(i, j int) bool { return files[i].n < files[j].n })
		for _, f := range files {
			s.seqFiles[model] = append(s.seqFiles[model], f.path)
		}
	}
	return s, nil
}

// fixtureFor picks the fixture path for the model's next call.
func (s *fixtureServer) fixtureFor(model string) (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := s.counts[model]
	s.counts[model] = call + 1

	if files := s.seqFiles[model]; call < len(files) {
		return files[call], call + 1
	}
	return filepath.Join(s.dir, model+".json"), call + 1
}

// modelPattern matches "/v1beta/models/{model}:generateContent".
var modelPattern = regexp.MustCompile(`^/v1beta/models/([^:/]+):generateContent$`)

func (s *fixtureServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	m := modelPattern.FindStringSubmatch(r.URL.Path)
	if m == nil {
		http.NotFound(w, r)
		return
	}
	model := m[1]

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":400,"message":%q}}`, err.Error()), http.StatusBadRequest)
		return
	}

	path, call := s.fixtureFor(model)
	content, err := os.ReadFile(path)
	if err != nil {
		log.Printf("no fixture for model %q (call %d): %v", model, call, err)
		http.Error(w, fmt.Sprintf(`{"error":{"code":404,"message":"no fixture for model %s"}}`, model), http.StatusNotFound)
		return
	}

	if s.verbose {
		promptChars := 0
		for _, c := range req.Contents {
			for _, p := range c.Parts {
				promptChars += len(p.Text)
			}
		}
		log.Printf("model=%s call=%d fixture=%s prompt_chars=%d", model, call, filepath.Base(path), promptChars)
	}

	if s.latency > 0 {
		time.Sleep(s.latency)
	}

	var resp generateResponse
	c := candidate{FinishReason: "STOP"}
	c.Content.Role = "model"
	c.Content.Parts = []part{{Text: string(content)}}
	resp.Candidates = []candidate{c}
	resp.UsageMetadata = usageMetadata{
		PromptTokenCount:     128,
		CandidatesTokenCount: len(content) / 4,
		TotalTokenCount:      128 + len(content)/4,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func (s *fixtureServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := s.uploads.Add(1)

	var resp fileResponse
	resp.File.Name = fmt.Sprintf("files/mock-%d", n)
	resp.File.URI = fmt.Sprintf("https://mock.local/v1beta/files/mock-%d", n)
	resp.File.MIMEType = r.Header.Get("Content-Type")

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("encode upload response: %v", err)
	}
}

func (s *fixtureServer) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/v1beta/files/") {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "{}")
		return
	}
	http.NotFound(w, r)
}

func main() {
	fixtures := flag.String("fixtures", "fixtures", "directory of JSON fixture files named by model")
	port := flag.Int("port", 11434, "listen port")
	latency := flag.Duration("latency", 0, "artificial response delay (e.g. 500ms)")
	verbose := flag.Bool("verbose", false, "log every generation call")
	flag.Parse()

	server, err := newFixtureServer(*fixtures, *latency, *verbose)
	if err != nil {
		log.Fatalf("mock-llm: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1beta/models/", server.handleGenerate)
	mux.HandleFunc("/upload/v1beta/files", server.handleUpload)
	mux.HandleFunc("/v1beta/files/", server.handleFiles)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("mock-llm serving fixtures from %s on %s", *fixtures, addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
