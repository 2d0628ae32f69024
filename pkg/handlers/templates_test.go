package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/catalog"
	"github.com/opora-ai/docforge/pkg/models"
)

func newTemplatesServer(t *testing.T) (*httptest.Server, catalog.Service) {
	t.Helper()
	cat, err := catalog.NewService(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewTemplatesHandler(cat, zap.NewNop()).RegisterRoutes(mux)
	return httptest.NewServer(mux), cat
}

func uploadTemplate(t *testing.T, serverURL, name, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("name", name))
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(serverURL+"/api/templates/upload", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestTemplatesHandler_UploadAndList(t *testing.T) {
	server, _ := newTemplatesServer(t)
	defer server.Close()

	resp := uploadTemplate(t, server.URL, "Анкета члена", "anketa.txt", "ФИО: {{full_name}}")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var tpl models.TemplateDescriptor
	decodeData(t, resp, &tpl)
	assert.Equal(t, "Анкета члена", tpl.Name)
	assert.Equal(t, models.TemplateKindText, tpl.Kind)

	listResp, err := http.Get(server.URL + "/api/templates")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	var list TemplateListResponse
	decodeData(t, listResp, &list)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Templates, 1)
	assert.Equal(t, tpl.ID, list.Templates[0].ID)
}

func TestTemplatesHandler_UploadUnsupportedKind(t *testing.T) {
	server, _ := newTemplatesServer(t)
	defer server.Close()

	resp := uploadTemplate(t, server.URL, "Макрос", "evil.docm", "x")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestTemplatesHandler_UploadMissingFile(t *testing.T) {
	server, _ := newTemplatesServer(t)
	defer server.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("name", "Без файла"))
	require.NoError(t, writer.Close())

	resp, err := http.Post(server.URL+"/api/templates/upload", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTemplatesHandler_Fields(t *testing.T) {
	server, cat := newTemplatesServer(t)
	defer server.Close()

	tpl, err := cat.Upload(context.Background(), "Анкета", "", "a.txt",
		strings.NewReader("{{full_name}} {{email}}"))
	require.NoError(t, err)

	resp, err := http.Get(server.URL + "/api/templates/" + tpl.ID.String() + "/fields")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var fields []map[string]string
	decodeData(t, resp, &fields)
	require.Len(t, fields, 2)
	assert.Equal(t, "full_name", fields[0]["field"])
	assert.Equal(t, "ФИО", fields[0]["label"])
	assert.Equal(t, "email", fields[1]["field"])
}

func TestTemplatesHandler_Delete(t *testing.T) {
	server, cat := newTemplatesServer(t)
	defer server.Close()

	tpl, err := cat.Upload(context.Background(), "Анкета", "", "a.txt", strings.NewReader("{{email}}"))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/templates/"+tpl.ID.String(), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = cat.Get(context.Background(), tpl.ID)
	assert.Error(t, err)
}

func TestTemplatesHandler_GetUnknown(t *testing.T) {
	server, _ := newTemplatesServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/templates/6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTemplatesHandler_InvalidID(t *testing.T) {
	server, _ := newTemplatesServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/templates/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
