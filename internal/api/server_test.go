package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BlacMeW/DataForge-Reader/internal/analyze"
	"github.com/BlacMeW/DataForge-Reader/internal/annotate"
	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
	"github.com/BlacMeW/DataForge-Reader/internal/export"
	"github.com/BlacMeW/DataForge-Reader/internal/extract"
	"github.com/BlacMeW/DataForge-Reader/internal/templates"
)

// newTestServer 组装一个全组件的测试服务器，目录都落在临时目录。
func newTestServer(t *testing.T, jwtSecret string) (*Server, *extract.Cache) {
	t.Helper()
	dir := t.TempDir()

	parseCache := extract.NewCache(filepath.Join(dir, "cache"))
	exportStore := export.NewStore(filepath.Join(dir, "exports"))

	ragCfg := rag.DefaultConfig()
	ragCfg.IndexFile = filepath.Join(dir, "rag_index.json")
	ragService := rag.NewService(ragCfg, extract.NewProvider(parseCache), exportStore)

	cfg := DefaultServerConfig()
	cfg.UploadDir = filepath.Join(dir, "uploads")
	cfg.ExportsDir = filepath.Join(dir, "exports")
	cfg.JWTSecret = jwtSecret

	server := NewServer(cfg, ragService)
	server.SetExtraction(extract.NewRegistry(), parseCache)
	server.SetExport(exportStore, export.NewWriter(filepath.Join(dir, "exports")))
	server.SetAnnotations(annotate.NewStore(filepath.Join(dir, "annotations")))
	server.SetTemplates(templates.NewCustomStore(filepath.Join(dir, "templates")))
	server.SetAnalyzer(analyze.NewAnalyzer())
	return server, parseCache
}

func doRequest(t *testing.T, handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not the standard envelope: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func signTestToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthGatedRoutes(t *testing.T) {
	server, _ := newTestServer(t, "test-secret")
	handler := server.Handler()
	token := signTestToken(t, "test-secret")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		wantStatus int
	}{
		{
			name:       "health bypasses auth",
			method:     "GET",
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "stats without token",
			method:     "GET",
			path:       "/api/v1/rag/stats",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "stats with garbage token",
			method:     "GET",
			path:       "/api/v1/rag/stats",
			token:      "not-a-jwt",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "stats with valid token",
			method:     "GET",
			path:       "/api/v1/rag/stats",
			token:      token,
			wantStatus: http.StatusOK,
		},
		{
			name:       "search without token",
			method:     "POST",
			path:       "/api/v1/rag/search",
			body:       `{"query":"fox"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "templates without token",
			method:     "GET",
			path:       "/api/v1/templates",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, handler, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestTokenSignedWithWrongSecret(t *testing.T) {
	server, _ := newTestServer(t, "right-secret")
	handler := server.Handler()
	token := signTestToken(t, "wrong-secret")

	rec := doRequest(t, handler, "GET", "/api/v1/rag/stats", token, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRAGRoutesWithoutAuth(t *testing.T) {
	server, parseCache := newTestServer(t, "")
	handler := server.Handler()

	// 预置一份解析好的文档
	err := parseCache.Save(&extract.ParsedDocument{
		FileID:           "f1",
		Filename:         "fox.pdf",
		TotalPages:       1,
		ExtractionMethod: "pdftext",
		Paragraphs: []extract.Paragraph{
			{
				ID: "p_1_0", Page: 1, ParagraphIndex: 0,
				Text:      "The quick brown fox jumps over the lazy dog near the river bank.",
				WordCount: 13, CharCount: 64,
				Annotations: map[string]any{},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("index missing file_id", func(t *testing.T) {
		rec := doRequest(t, handler, "POST", "/api/v1/rag/index", "", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("index unknown document", func(t *testing.T) {
		rec := doRequest(t, handler, "POST", "/api/v1/rag/index", "", `{"file_id":"ghost"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("index parsed document", func(t *testing.T) {
		rec := doRequest(t, handler, "POST", "/api/v1/rag/index", "", `{"file_id":"f1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("search empty query", func(t *testing.T) {
		rec := doRequest(t, handler, "POST", "/api/v1/rag/search", "", `{"query":""}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("search indexed document", func(t *testing.T) {
		rec := doRequest(t, handler, "POST", "/api/v1/rag/search", "",
			`{"query":"quick brown fox","topK":3,"threshold":0.0}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		resp := decodeResponse(t, rec)
		var result rag.SearchResult
		raw, _ := json.Marshal(resp.Data)
		if err := json.Unmarshal(raw, &result); err != nil {
			t.Fatalf("decode search result: %v", err)
		}
		if result.TotalResults != 1 || result.Results[0].Document.ID != "f1_p_1_0" {
			t.Fatalf("unexpected search result: %+v", result)
		}
	})

	t.Run("stats after index", func(t *testing.T) {
		rec := doRequest(t, handler, "GET", "/api/v1/rag/stats", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		resp := decodeResponse(t, rec)
		var stats rag.StatsResult
		raw, _ := json.Marshal(resp.Data)
		if err := json.Unmarshal(raw, &stats); err != nil {
			t.Fatalf("decode stats: %v", err)
		}
		if stats.TotalDocuments != 1 {
			t.Fatalf("total documents = %d, want 1", stats.TotalDocuments)
		}
		if !resp.Success || resp.Message != "ok" {
			t.Fatalf("envelope wrong: %+v", resp)
		}
	})

	t.Run("context build", func(t *testing.T) {
		rec := doRequest(t, handler, "POST", "/api/v1/rag/context", "",
			`{"query":"lazy dog","threshold":0.0}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("remove unknown dataset", func(t *testing.T) {
		rec := doRequest(t, handler, "DELETE", "/api/v1/rag/dataset/ghost", "", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("remove indexed dataset", func(t *testing.T) {
		rec := doRequest(t, handler, "DELETE", "/api/v1/rag/dataset/f1", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})
}

func TestAuxiliaryRoutes(t *testing.T) {
	server, _ := newTestServer(t, "")
	handler := server.Handler()

	t.Run("templates list", func(t *testing.T) {
		rec := doRequest(t, handler, "GET", "/api/v1/templates", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("template validate", func(t *testing.T) {
		rec := doRequest(t, handler, "POST", "/api/v1/templates/validate", "",
			`{"id":"t1","name":"T1","fields":[{"name":"text","type":"string"}]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("mine analyze", func(t *testing.T) {
		rec := doRequest(t, handler, "POST", "/api/v1/mine/analyze", "",
			`{"text":"Great release from Microsoft, contact sales@example.com."}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("mine analyze empty text", func(t *testing.T) {
		rec := doRequest(t, handler, "POST", "/api/v1/mine/analyze", "", `{"text":""}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("cors preflight", func(t *testing.T) {
		rec := doRequest(t, handler, "OPTIONS", "/api/v1/rag/stats", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatal("CORS header missing")
		}
	})
}
