package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/drummonds/goPDFView/config"
	"github.com/drummonds/goPDFView/database"
	"github.com/drummonds/goPDFView/pagecache"
	"github.com/drummonds/goPDFView/render"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Renderer     render.Engine

	sessionsMu sync.Mutex
	sessions   map[uuid.UUID]*ViewerSession
}

// NewServerHandler wires the handler with an empty session table
func NewServerHandler(db database.Repository, e *echo.Echo, serverConfig config.ServerConfig, renderer render.Engine) *ServerHandler {
	return &ServerHandler{
		DB:           db,
		Echo:         e,
		ServerConfig: serverConfig,
		Renderer:     renderer,
		sessions:     make(map[uuid.UUID]*ViewerSession),
	}
}

// ViewerSession is one client's view onto one open document: the page
// cache plus the zoom origin the GUI used to keep per page. The mutex
// serializes all access to the cache, which has no internal locking.
type ViewerSession struct {
	ID           uuid.UUID
	DocumentULID ulid.ULID
	Path         string
	PageCount    int

	mu         sync.Mutex
	cache      *pagecache.PageCache
	clipOrigin map[int]render.Point
	lastAccess time.Time
}

// OpenSession opens the document at path, records it in the registry
// and creates a viewer session for it.
func (serverHandler *ServerHandler) OpenSession(path string) (*ViewerSession, error) {
	cache := pagecache.New(serverHandler.Renderer)
	pageCount, err := cache.OpenDocument(path)
	if err != nil {
		return nil, err
	}

	document, err := database.RegisterDocument(path, pageCount, serverHandler.DB)
	if err != nil {
		Logger.Error("Unable to register document, session continues unregistered", "path", path, "error", err)
	}

	session := &ViewerSession{
		ID:         uuid.New(),
		Path:       path,
		PageCount:  pageCount,
		cache:      cache,
		clipOrigin: make(map[int]render.Point),
		lastAccess: time.Now(),
	}
	if document != nil {
		session.DocumentULID = document.ULID
	}

	serverHandler.sessionsMu.Lock()
	serverHandler.sessions[session.ID] = session
	serverHandler.sessionsMu.Unlock()

	Logger.Info("Opened viewer session", "session", session.ID, "path", path, "pages", pageCount)
	return session, nil
}

// Session looks up a viewer session and refreshes its idle timer
func (serverHandler *ServerHandler) Session(id uuid.UUID) (*ViewerSession, bool) {
	serverHandler.sessionsMu.Lock()
	defer serverHandler.sessionsMu.Unlock()
	session, ok := serverHandler.sessions[id]
	if ok {
		session.mu.Lock()
		session.lastAccess = time.Now()
		session.mu.Unlock()
	}
	return session, ok
}

// CloseSession closes the session's document and removes the session
func (serverHandler *ServerHandler) CloseSession(id uuid.UUID) error {
	serverHandler.sessionsMu.Lock()
	session, ok := serverHandler.sessions[id]
	delete(serverHandler.sessions, id)
	serverHandler.sessionsMu.Unlock()
	if !ok {
		return fmt.Errorf("no session %s", id)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	err := session.cache.CloseDocument()
	Logger.Info("Closed viewer session", "session", id)
	return err
}

// SessionCount reports the number of live sessions
func (serverHandler *ServerHandler) SessionCount() int {
	serverHandler.sessionsMu.Lock()
	defer serverHandler.sessionsMu.Unlock()
	return len(serverHandler.sessions)
}

// closeIdleSessions closes every session unused for longer than limit
func (serverHandler *ServerHandler) closeIdleSessions(limit time.Duration) {
	cutoff := time.Now().Add(-limit)

	serverHandler.sessionsMu.Lock()
	var idle []*ViewerSession
	for id, session := range serverHandler.sessions {
		session.mu.Lock()
		stale := session.lastAccess.Before(cutoff)
		session.mu.Unlock()
		if stale {
			idle = append(idle, session)
			delete(serverHandler.sessions, id)
		}
	}
	serverHandler.sessionsMu.Unlock()

	for _, session := range idle {
		session.mu.Lock()
		if err := session.cache.CloseDocument(); err != nil {
			Logger.Error("Error closing idle session", "session", session.ID, "error", err)
		} else {
			Logger.Info("Closed idle viewer session", "session", session.ID, "path", session.Path)
		}
		session.mu.Unlock()
	}
}

// RenderPage renders the whole page at the fit-scale for the given
// viewport and resets the session's zoom origin for that page.
func (session *ViewerSession) RenderPage(pageIndex int, viewportW, viewportH float64) ([]byte, render.Point, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	image, origin, err := session.cache.Page(pageIndex, pagecache.ViewOptions{
		ViewportWidth:  viewportW,
		ViewportHeight: viewportH,
	})
	if err != nil {
		return nil, render.Point{}, err
	}
	session.clipOrigin[pageIndex] = origin
	return image, origin, nil
}

// RenderZoom renders a quarter-page window moved one arrow step from
// the session's previous origin for that page.
func (session *ViewerSession) RenderZoom(pageIndex int, viewportW, viewportH float64, dirX, dirY int) ([]byte, render.Point, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	zoom := &pagecache.ZoomState{
		TopLeft: session.clipOrigin[pageIndex],
		DirX:    dirX,
		DirY:    dirY,
	}
	image, origin, err := session.cache.Page(pageIndex, pagecache.ViewOptions{
		ViewportWidth:  viewportW,
		ViewportHeight: viewportH,
		Zoom:           zoom,
	})
	if err != nil {
		return nil, render.Point{}, err
	}
	session.clipOrigin[pageIndex] = origin
	return image, origin, nil
}

// RenderCrop renders the unscaled grayscale image the cropping
// pipeline works from.
func (session *ViewerSession) RenderCrop(pageIndex int) ([]byte, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.cache.PageForCrop(pageIndex)
}

// openDiagnostic builds the user-facing message for a document the
// rendering engine could not read, suggesting a Ghostscript repair
// when one is available.
func (serverHandler *ServerHandler) openDiagnostic(path string) string {
	message := fmt.Sprintf("The rendering engine could not read the document %q in order to display it.", path)
	if serverHandler.ServerConfig.GhostscriptPath != "" {
		message += fmt.Sprintf(" Consider repairing it with Ghostscript: %s -o repaired.pdf -sDEVICE=pdfwrite %q",
			serverHandler.ServerConfig.GhostscriptPath, path)
	} else {
		message += " If you have Ghostscript installed, rewriting the file with it may repair the document."
	}
	return message
}
