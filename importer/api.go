package importer

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/tenantimport/mapping"
	"example.com/tenantimport/reconcile"
	"example.com/tenantimport/tabular"
)

// User-facing upload error messages.
const (
	msgUnsupportedFormat = "Format non supporté. Utilisez CSV, XLSX ou XLS."
	msgEmptyFile         = "Le fichier est vide ou ne contient pas de données valides."
)

// API provides the HTTP handlers for the import flow.
type API struct {
	store    *Store
	provider CatalogProvider
	executor *Executor
}

// NewAPI creates a new API handler over the given session store and catalog.
func NewAPI(store *Store, provider CatalogProvider, leases LeaseCreator) *API {
	return &API{store: store, provider: provider, executor: NewExecutor(leases)}
}

// RegisterRoutes registers the import API routes with the given Gin router.
func (a *API) RegisterRoutes(router *gin.Engine) {
	imports := router.Group("/api/v1/imports")
	{
		imports.POST("/", a.uploadHandler)
		imports.PUT("/:session_id/mapping", a.updateMappingHandler)
		imports.POST("/:session_id/reconcile", a.reconcileHandler)
		imports.POST("/:session_id/execute", a.executeHandler)
		imports.GET("/:session_id/progress", a.progressHandler)
		imports.GET("/:session_id/summary", a.summaryHandler)
		imports.DELETE("/:session_id", a.deleteHandler)
	}
}

// uploadHandler parses the uploaded file and opens a session with a
// suggested column mapping.
func (a *API) uploadHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	table, err := tabular.Parse(data, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, tabular.ErrUnsupportedFormat):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgUnsupportedFormat})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": msgEmptyFile})
		}
		return
	}

	session := a.store.Create(fileHeader.Filename, table)
	log.Printf("import %s: parsed %q (%d columns, %d rows)",
		session.ID, session.Filename, len(table.Columns), len(table.Rows))

	c.JSON(http.StatusCreated, gin.H{
		"session_id":       session.ID,
		"columns":          table.Columns,
		"row_count":        len(table.Rows),
		"assignments":      session.Mapping.Assignments,
		"missing_required": labelsOf(session.Mapping.MissingRequired()),
	})
}

// updateMappingHandler applies user overrides to the suggested mapping.
func (a *API) updateMappingHandler(c *gin.Context) {
	session, ok := a.store.Get(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var req struct {
		Overrides []Override `json:"overrides" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	for _, o := range req.Overrides {
		if !o.Field.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown target field: " + string(o.Field)})
			return
		}
	}

	assignments, missing, ok := session.ApplyOverrides(req.Overrides)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Import already started"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assignments":      assignments,
		"missing_required": labelsOf(missing),
	})
}

// reconcileHandler normalizes every row, matches it against a fresh catalog
// snapshot and returns the per-row preview.
func (a *API) reconcileHandler(c *gin.Context) {
	session, ok := a.store.Get(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	candidates, err := Snapshot(c.Request.Context(), a.provider)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog: " + err.Error()})
		return
	}

	records, missing, ok := session.Reconcile(candidates)
	if !ok {
		if len(missing) > 0 {
			c.JSON(http.StatusConflict, gin.H{
				"error":            "Champs obligatoires non associés",
				"missing_required": labelsOf(missing),
			})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "Import already started"})
		return
	}

	type rowPreview struct {
		RowNumber     int    `json:"row_number"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		Status        string `json:"status"`
		PropertyTitle string `json:"property_title,omitempty"`
		Error         string `json:"error,omitempty"`
	}
	preview := make([]rowPreview, len(records))
	counts := make(map[reconcile.Outcome]int)

	for i, rec := range records {
		outcome := reconcile.OutcomeOf(rec)
		counts[outcome]++
		preview[i] = rowPreview{
			RowNumber:     rec.RowNumber,
			Name:          rec.Name,
			Email:         rec.Email,
			Status:        string(outcome),
			PropertyTitle: rec.MatchedPropertyTitle,
			Error:         rec.ValidationError,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"rows": preview,
		"counts": gin.H{
			"total":   len(preview),
			"linked":  counts[reconcile.OutcomeLinked],
			"created": counts[reconcile.OutcomeCreate],
			"orphan":  counts[reconcile.OutcomeOrphan],
			"error":   counts[reconcile.OutcomeError],
		},
	})
}

// executeHandler starts the batch executor in the background.
func (a *API) executeHandler(c *gin.Context) {
	session, ok := a.store.Get(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	if !session.begin(cancel) {
		cancel()
		c.JSON(http.StatusConflict, gin.H{"error": "Session is not ready to execute"})
		return
	}

	go func() {
		summary := a.executor.Run(ctx, session, nil)
		session.finish(summary)
		cancel()
		log.Printf("import %s: done (%d linked, %d created, %d orphan, %d errors)",
			session.ID, summary.LinkedCount, summary.CreatedCount, summary.OrphanCount, summary.ErrorCount)
	}()

	c.JSON(http.StatusAccepted, gin.H{"session_id": session.ID, "state": string(StateRunning)})
}

// progressHandler reports live execution progress.
func (a *API) progressHandler(c *gin.Context) {
	session, ok := a.store.Get(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"progress": session.Progress(),
		"state":    string(session.State()),
	})
}

// summaryHandler returns the final summary once execution is done.
func (a *API) summaryHandler(c *gin.Context) {
	session, ok := a.store.Get(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if session.State() != StateDone {
		c.JSON(http.StatusConflict, gin.H{"error": "Import is not finished"})
		return
	}
	c.JSON(http.StatusOK, session.FinalSummary())
}

// deleteHandler cancels any running execution and discards the session.
// Applied rows stay applied.
func (a *API) deleteHandler(c *gin.Context) {
	if !a.store.Delete(c.Param("session_id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func labelsOf(fields []mapping.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = mapping.Label(f)
	}
	return out
}
