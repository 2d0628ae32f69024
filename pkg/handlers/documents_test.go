package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/catalog"
	"github.com/opora-ai/docforge/pkg/models"
	"github.com/opora-ai/docforge/pkg/renderer"
	"github.com/opora-ai/docforge/pkg/services"
)

func newDocumentsServer(t *testing.T, assistant services.AssistantService) (*httptest.Server, string) {
	t.Helper()
	cat, err := catalog.NewService(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	generatedDir := t.TempDir()
	rend, err := renderer.NewService(cat, generatedDir, "http://localhost:8080", zap.NewNop())
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewDocumentsHandler(assistant, rend, zap.NewNop()).RegisterRoutes(mux)
	return httptest.NewServer(mux), generatedDir
}

func TestDocumentsHandler_Generate(t *testing.T) {
	assistant := &mockAssistantForHandler{
		chatResult: &services.ChatResult{
			Response: "Документ готов",
			Action:   services.ActionDocumentGenerated,
			Document: &models.GeneratedDocument{Completeness: 100},
		},
	}
	server, _ := newDocumentsServer(t, assistant)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/documents/generate", GenerateDocumentRequest{
		UserID:   "u1",
		Template: "Анкета",
		Message:  "ФИО Иванов Иван Иванович",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.ChatResult
	decodeData(t, resp, &result)
	assert.Equal(t, services.ActionDocumentGenerated, result.Action)
	require.NotNil(t, result.Document)
	assert.Equal(t, 100, result.Document.Completeness)
}

func TestDocumentsHandler_GenerateRequiresTemplate(t *testing.T) {
	server, _ := newDocumentsServer(t, &mockAssistantForHandler{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/documents/generate", GenerateDocumentRequest{
		UserID:  "u1",
		Message: "текст",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDocumentsHandler_Preview(t *testing.T) {
	assistant := &mockAssistantForHandler{
		previewResult: &services.PreviewResult{
			Preview: "Предпросмотр",
			Report:  &models.CompletenessReport{Completeness: 50},
		},
	}
	server, _ := newDocumentsServer(t, assistant)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/documents/preview", PreviewDocumentRequest{
		Template: "Анкета",
		Values:   map[string]string{"full_name": "Иванов Иван"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.PreviewResult
	decodeData(t, resp, &result)
	assert.Equal(t, "Предпросмотр", result.Preview)
	require.NotNil(t, result.Report)
	assert.Equal(t, 50, result.Report.Completeness)
}

func TestDocumentsHandler_Download(t *testing.T) {
	server, generatedDir := newDocumentsServer(t, &mockAssistantForHandler{})
	defer server.Close()

	content := []byte("generated document body")
	require.NoError(t, os.WriteFile(filepath.Join(generatedDir, "out_u1.docx"), content, 0o644))

	resp, err := http.Get(server.URL + "/api/documents/download?file=" + url.QueryEscape("out_u1.docx"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, body)
}

func TestDocumentsHandler_DownloadTraversalRejected(t *testing.T) {
	server, _ := newDocumentsServer(t, &mockAssistantForHandler{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/documents/download?file=" + url.QueryEscape("../secrets.txt"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDocumentsHandler_DownloadMissingParam(t *testing.T) {
	server, _ := newDocumentsServer(t, &mockAssistantForHandler{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/documents/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDocumentsHandler_DownloadUnknownFile(t *testing.T) {
	server, _ := newDocumentsServer(t, &mockAssistantForHandler{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/documents/download?file=missing.docx")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
