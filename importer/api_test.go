package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/tenantimport/catalog"
)

func newTestRouter(t *testing.T) (*gin.Engine, *catalog.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := catalog.NewStore()
	api := NewAPI(NewStore(), store, store)
	router := gin.New()
	api.RegisterRoutes(router)
	return router, store
}

func uploadCSV(t *testing.T, router *gin.Engine, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

const sampleCSV = "Locataire,Email,Loyer,Bien\n" +
	"Awa Diop,awa@example.com,150000,Villa Almadies\n" +
	"Moussa Ba,moussa@example.com,90000,12 Rue X Dakar\n" +
	"Fatou Sall,fatou@example.com,120000,\n"

func TestImportFlow(t *testing.T) {
	router, store := newTestRouter(t)
	_, err := store.CreateProperty(context.Background(), "Villa Almadies", "Route des Almadies", decimal.NewFromInt(250000))
	require.NoError(t, err)

	// Upload.
	w := uploadCSV(t, router, "locataires.csv", sampleCSV)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	sessionID, _ := body["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.Equal(t, float64(3), body["row_count"])
	assert.Empty(t, body["missing_required"])

	// Reconcile.
	w = doJSON(t, router, http.MethodPost, "/api/v1/imports/"+sessionID+"/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	counts := body["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["linked"])
	assert.Equal(t, float64(1), counts["created"])
	assert.Equal(t, float64(1), counts["orphan"])
	assert.Equal(t, float64(0), counts["error"])

	// Execute and wait for completion.
	w = doJSON(t, router, http.MethodPost, "/api/v1/imports/"+sessionID+"/execute", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Eventually(t, func() bool {
		w := doJSON(t, router, http.MethodGet, "/api/v1/imports/"+sessionID+"/progress", nil)
		return decodeBody(t, w)["state"] == string(StateDone)
	}, 2*time.Second, 10*time.Millisecond)

	// Summary.
	w = doJSON(t, router, http.MethodGet, "/api/v1/imports/"+sessionID+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.TotalRows)
	assert.Equal(t, 1, summary.LinkedCount)
	assert.Equal(t, 1, summary.CreatedCount)
	assert.Equal(t, 1, summary.OrphanCount)
	assert.Equal(t, 0, summary.ErrorCount)
	assert.Empty(t, summary.FailureMessages)

	// The catalog gained one auto-provisioned property and three leases.
	properties, err := store.ListProperties(context.Background())
	require.NoError(t, err)
	assert.Len(t, properties, 2)
	leases, err := store.ListLeases(context.Background())
	require.NoError(t, err)
	assert.Len(t, leases, 3)
}

func TestUploadErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("Unsupported Extension", func(t *testing.T) {
		w := uploadCSV(t, router, "locataires.pdf", "donnees")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Format non supporté. Utilisez CSV, XLSX ou XLS.", decodeBody(t, w)["error"])
	})

	t.Run("Empty File", func(t *testing.T) {
		w := uploadCSV(t, router, "locataires.csv", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Le fichier est vide ou ne contient pas de données valides.", decodeBody(t, w)["error"])
	})

	t.Run("Header Only", func(t *testing.T) {
		w := uploadCSV(t, router, "locataires.csv", "Locataire,Email,Loyer\n")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Le fichier est vide ou ne contient pas de données valides.", decodeBody(t, w)["error"])
	})

	t.Run("Missing File Part", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/imports/", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMappingEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	csv := "Locataire,Contact,Loyer\nAwa Diop,awa@example.com,150000\n"
	w := uploadCSV(t, router, "locataires.csv", csv)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	sessionID := body["session_id"].(string)
	assert.Equal(t, []any{"Email"}, body["missing_required"])

	// Reconcile is blocked while a required field is uncovered.
	w = doJSON(t, router, http.MethodPost, "/api/v1/imports/"+sessionID+"/reconcile", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	// Map the contact column to email.
	w = doJSON(t, router, http.MethodPut, "/api/v1/imports/"+sessionID+"/mapping", gin.H{
		"overrides": []gin.H{{"column": 1, "field": "email"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decodeBody(t, w)["missing_required"])

	w = doJSON(t, router, http.MethodPost, "/api/v1/imports/"+sessionID+"/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	t.Run("Unknown Field Rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/v1/imports/"+sessionID+"/mapping", gin.H{
			"overrides": []gin.H{{"column": 0, "field": "couleur"}},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExecuteRequiresReconcile(t *testing.T) {
	router, _ := newTestRouter(t)
	w := uploadCSV(t, router, "locataires.csv", sampleCSV)
	sessionID := decodeBody(t, w)["session_id"].(string)

	w = doJSON(t, router, http.MethodPost, "/api/v1/imports/"+sessionID+"/execute", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSummaryBeforeDone(t *testing.T) {
	router, _ := newTestRouter(t)
	w := uploadCSV(t, router, "locataires.csv", sampleCSV)
	sessionID := decodeBody(t, w)["session_id"].(string)

	w = doJSON(t, router, http.MethodGet, "/api/v1/imports/"+sessionID+"/summary", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteSession(t *testing.T) {
	router, _ := newTestRouter(t)
	w := uploadCSV(t, router, "locataires.csv", sampleCSV)
	sessionID := decodeBody(t, w)["session_id"].(string)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/imports/"+sessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/imports/"+sessionID+"/progress", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidationErrorsInPreview(t *testing.T) {
	router, _ := newTestRouter(t)
	csv := "Locataire,Email,Loyer\n" +
		"Awa Diop,awa@example.com,150000\n" +
		",moussa@example.com,90000\n"
	w := uploadCSV(t, router, "locataires.csv", csv)
	sessionID := decodeBody(t, w)["session_id"].(string)

	w = doJSON(t, router, http.MethodPost, "/api/v1/imports/"+sessionID+"/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	rows := body["rows"].([]any)
	require.Len(t, rows, 2)
	second := rows[1].(map[string]any)
	assert.Equal(t, "error", second["status"])
	assert.Equal(t, "Ligne 3: champs manquants (Locataire)", second["error"])
	counts := body["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["error"])
}
