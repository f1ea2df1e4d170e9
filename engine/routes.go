package engine

import (
	"bytes"
	"database/sql"
	"errors"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/drummonds/goPDFView/database"
	"github.com/drummonds/goPDFView/pagecache"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

const (
	ppmContentType = "image/x-portable-pixmap"
	pgmContentType = "image/x-portable-graymap"
)

type sessionResponse struct {
	SessionID    string `json:"sessionID"`
	DocumentULID string `json:"documentULID,omitempty"`
	PageCount    int    `json:"pageCount"`
}

type openRequest struct {
	Path string `json:"path"`
}

type zoomRequest struct {
	DirX int `json:"dx"`
	DirY int `json:"dy"`
}

// CreateSession opens a document and returns a new viewer session.
// An unreadable document is a 422 carrying the repair diagnostic.
func (serverHandler *ServerHandler) CreateSession(context echo.Context) error {
	var request openRequest
	if err := context.Bind(&request); err != nil {
		return context.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if request.Path == "" {
		return context.JSON(http.StatusBadRequest, map[string]string{"error": "path is required"})
	}

	session, err := serverHandler.OpenSession(request.Path)
	if err != nil {
		diagnostic := serverHandler.openDiagnostic(request.Path)
		Logger.Error("Unable to open document", "path", request.Path, "error", err)
		return context.JSON(http.StatusUnprocessableEntity, map[string]string{
			"error":      err.Error(),
			"diagnostic": diagnostic,
		})
	}

	response := sessionResponse{
		SessionID: session.ID.String(),
		PageCount: session.PageCount,
	}
	if session.DocumentULID != (ulid.ULID{}) {
		response.DocumentULID = session.DocumentULID.String()
	}
	return context.JSON(http.StatusCreated, response)
}

// DeleteSession closes the session's document and discards its caches
func (serverHandler *ServerHandler) DeleteSession(context echo.Context) error {
	sessionID, err := uuid.Parse(context.Param("id"))
	if err != nil {
		return context.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	if err := serverHandler.CloseSession(sessionID); err != nil {
		return context.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusOK, "Session Closed")
}

// GetSessionPage renders a whole page scaled to fit the viewport
func (serverHandler *ServerHandler) GetSessionPage(context echo.Context) error {
	session, pageIndex, err := serverHandler.sessionPageFromRequest(context)
	if err != nil {
		return err
	}

	viewportW, viewportH := serverHandler.viewportFromRequest(context)
	image, origin, err := session.RenderPage(pageIndex, viewportW, viewportH)
	if err != nil {
		return renderErrorResponse(context, err)
	}

	setClipOriginHeaders(context, origin.X, origin.Y)
	return context.Blob(http.StatusOK, ppmContentType, image)
}

// ZoomSessionPage renders the quarter-page zoom window one arrow step
// from where this session last looked at the page
func (serverHandler *ServerHandler) ZoomSessionPage(context echo.Context) error {
	session, pageIndex, err := serverHandler.sessionPageFromRequest(context)
	if err != nil {
		return err
	}

	var request zoomRequest
	if err := context.Bind(&request); err != nil {
		return context.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if request.DirX < -1 || request.DirX > 1 || request.DirY < -1 || request.DirY > 1 {
		return context.JSON(http.StatusBadRequest, map[string]string{"error": "zoom directions must be -1, 0 or 1"})
	}

	viewportW, viewportH := serverHandler.viewportFromRequest(context)
	image, origin, err := session.RenderZoom(pageIndex, viewportW, viewportH, request.DirX, request.DirY)
	if err != nil {
		return renderErrorResponse(context, err)
	}

	setClipOriginHeaders(context, origin.X, origin.Y)
	return context.Blob(http.StatusOK, ppmContentType, image)
}

// GetSessionCropPage renders the unscaled grayscale page image used by
// the margin-cropping pipeline
func (serverHandler *ServerHandler) GetSessionCropPage(context echo.Context) error {
	session, pageIndex, err := serverHandler.sessionPageFromRequest(context)
	if err != nil {
		return err
	}

	image, err := session.RenderCrop(pageIndex)
	if err != nil {
		return renderErrorResponse(context, err)
	}
	return context.Blob(http.StatusOK, pgmContentType, image)
}

// GetRecentDocuments lists the registry's most recently viewed documents
func (serverHandler *ServerHandler) GetRecentDocuments(context echo.Context) error {
	documents, err := database.FetchRecentDocuments(serverHandler.ServerConfig.RecentDocumentNumber, serverHandler.DB)
	if err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusOK, documents)
}

// GetDocument returns the registry record for one document
func (serverHandler *ServerHandler) GetDocument(context echo.Context) error {
	document, err := database.FetchDocument(context.Param("id"), serverHandler.DB)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return context.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
		}
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusOK, document)
}

// DeleteDocument removes a document from the registry. The file on
// disk is left alone; the registry only records viewing history.
func (serverHandler *ServerHandler) DeleteDocument(context echo.Context) error {
	err := database.DeleteDocument(context.Param("id"), serverHandler.DB)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return context.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
		}
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusOK, "Document Deleted")
}

// GetDocumentThumbnail renders a small PNG preview of the first page
func (serverHandler *ServerHandler) GetDocumentThumbnail(context echo.Context) error {
	document, err := database.FetchDocument(context.Param("id"), serverHandler.DB)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return context.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
		}
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	width := serverHandler.ServerConfig.ThumbnailWidth
	if value := context.QueryParam("width"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			width = parsed
		}
	}

	thumbnail, err := serverHandler.renderThumbnail(document.Path, width)
	if err != nil {
		Logger.Error("Unable to render thumbnail", "path", document.Path, "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumbnail); err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// GetDocumentText returns the document's plain text, extracted without
// rendering. Scanned documents come back empty.
func (serverHandler *ServerHandler) GetDocumentText(context echo.Context) error {
	document, err := database.FetchDocument(context.Param("id"), serverHandler.DB)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return context.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
		}
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	fullText, err := pdfTextExtraction(document.Path)
	if err != nil {
		Logger.Warn("Text extraction failed", "path", document.Path, "error", err)
		return context.JSON(http.StatusOK, map[string]string{"text": ""})
	}
	return context.JSON(http.StatusOK, map[string]string{"text": *fullText})
}

// GetAboutInfo reports what this server is running
func (serverHandler *ServerHandler) GetAboutInfo(context echo.Context) error {
	return context.JSON(http.StatusOK, map[string]interface{}{
		"name":         "goPDFView",
		"renderer":     serverHandler.Renderer.Name(),
		"databaseType": serverHandler.ServerConfig.DatabaseType,
		"sessions":     serverHandler.SessionCount(),
		"time":         time.Now().Format(time.RFC3339),
	})
}

// sessionPageFromRequest resolves the :id and :page parameters shared
// by all the session render routes
func (serverHandler *ServerHandler) sessionPageFromRequest(context echo.Context) (*ViewerSession, int, error) {
	sessionID, err := uuid.Parse(context.Param("id"))
	if err != nil {
		return nil, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	session, ok := serverHandler.Session(sessionID)
	if !ok {
		return nil, 0, echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	pageIndex, err := strconv.Atoi(context.Param("page"))
	if err != nil {
		return nil, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid page number")
	}
	return session, pageIndex, nil
}

// viewportFromRequest reads the viewport size, falling back to the
// configured default display area
func (serverHandler *ServerHandler) viewportFromRequest(context echo.Context) (float64, float64) {
	viewportW := float64(serverHandler.ServerConfig.ViewportWidth)
	viewportH := float64(serverHandler.ServerConfig.ViewportHeight)
	if value := context.QueryParam("width"); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed > 0 {
			viewportW = parsed
		}
	}
	if value := context.QueryParam("height"); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed > 0 {
			viewportH = parsed
		}
	}
	return viewportW, viewportH
}

func renderErrorResponse(context echo.Context, err error) error {
	if errors.Is(err, pagecache.ErrPageOutOfRange) {
		return context.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	if errors.Is(err, pagecache.ErrNoDocument) {
		return context.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func setClipOriginHeaders(context echo.Context, x, y float64) {
	context.Response().Header().Set("X-Clip-Origin-X", strconv.FormatFloat(x, 'f', -1, 64))
	context.Response().Header().Set("X-Clip-Origin-Y", strconv.FormatFloat(y, 'f', -1, 64))
}
