package engine

import (
	"bytes"
	"errors"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drummonds/goPDFView/config"
	"github.com/drummonds/goPDFView/database"
	"github.com/drummonds/goPDFView/render"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

// stubEngine implements render.Engine with fixed-size in-memory pages
// so the session machinery can be tested without a PDF library.
type stubEngine struct {
	pages    int
	width    float64
	height   float64
	failOpen bool

	opened []*stubDocument
}

func (e *stubEngine) Open(path string) (render.Document, error) {
	if e.failOpen {
		return nil, errors.New("broken file header")
	}
	doc := &stubDocument{engine: e}
	e.opened = append(e.opened, doc)
	return doc, nil
}

func (e *stubEngine) Name() string { return "stub" }
func (e *stubEngine) Close() error { return nil }

type stubDocument struct {
	engine *stubEngine
	closed bool
}

func (d *stubDocument) NumPages() int { return d.engine.pages }

func (d *stubDocument) Page(index int) (render.Page, error) {
	if index < 0 || index >= d.engine.pages {
		return nil, errors.New("page out of range")
	}
	return &stubPage{engine: d.engine}, nil
}

func (d *stubDocument) Close() error {
	d.closed = true
	return nil
}

type stubPage struct {
	engine *stubEngine
}

func (p *stubPage) DisplayList() (render.DisplayList, error) {
	return &stubDisplayList{rect: render.Rect{X1: p.engine.width, Y1: p.engine.height}}, nil
}

type stubDisplayList struct {
	rect render.Rect
}

func (l *stubDisplayList) Bounds() render.Rect { return l.rect }

func (l *stubDisplayList) Render(scale float64, colorspace render.Colorspace, clip *render.Rect) (render.Pixmap, error) {
	return &stubPixmap{gray: colorspace == render.ColorspaceGray}, nil
}

type stubPixmap struct {
	gray bool
}

func (p *stubPixmap) Image() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

func (p *stubPixmap) PPM() ([]byte, error) {
	if p.gray {
		return []byte("P5\n1 1\n255\n\x00"), nil
	}
	return []byte("P6\n1 1\n255\n\x00\x00\x00"), nil
}

func newTestHandler(t *testing.T, engine render.Engine) *ServerHandler {
	t.Helper()
	if Logger == nil {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		Logger = logger
		config.Logger = logger
		database.Logger = logger
	}
	db := database.NewRepository(config.ServerConfig{DatabaseType: "sqlite", DatabaseDbname: ":memory:"})
	t.Cleanup(func() { db.Close() })

	serverConfig := config.ServerConfig{
		ViewportWidth:        800,
		ViewportHeight:       1000,
		RecentDocumentNumber: 10,
	}
	return NewServerHandler(db, echo.New(), serverConfig, engine)
}

func writeTestDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "letter.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 stub"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenSessionRegistersDocument(t *testing.T) {
	stub := &stubEngine{pages: 3, width: 600, height: 800}
	handler := newTestHandler(t, stub)
	path := writeTestDocument(t)

	session, err := handler.OpenSession(path)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if session.PageCount != 3 {
		t.Errorf("expected 3 pages, got %d", session.PageCount)
	}
	if session.DocumentULID == (ulid.ULID{}) {
		t.Error("expected the session to carry the registered document ULID")
	}
	if handler.SessionCount() != 1 {
		t.Errorf("expected 1 live session, got %d", handler.SessionCount())
	}

	document, err := handler.DB.GetDocumentByPath(path)
	if err != nil || document == nil {
		t.Fatalf("expected the document in the registry, got %v, %v", document, err)
	}
	if document.PageCount != 3 {
		t.Errorf("registry page count = %d, want 3", document.PageCount)
	}
}

func TestOpenSessionUnreadableDocument(t *testing.T) {
	stub := &stubEngine{failOpen: true}
	handler := newTestHandler(t, stub)

	_, err := handler.OpenSession("/no/such/file.pdf")
	if err == nil {
		t.Fatal("expected an error opening an unreadable document")
	}
	if !strings.Contains(err.Error(), "/no/such/file.pdf") {
		t.Errorf("error should name the document path, got %q", err)
	}
	if handler.SessionCount() != 0 {
		t.Errorf("no session should survive a failed open, got %d", handler.SessionCount())
	}
}

func TestCloseSession(t *testing.T) {
	stub := &stubEngine{pages: 1, width: 600, height: 800}
	handler := newTestHandler(t, stub)
	session, err := handler.OpenSession(writeTestDocument(t))
	if err != nil {
		t.Fatal(err)
	}

	if err := handler.CloseSession(session.ID); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if handler.SessionCount() != 0 {
		t.Errorf("expected 0 sessions after close, got %d", handler.SessionCount())
	}
	if !stub.opened[0].closed {
		t.Error("closing the session should close the underlying document")
	}
	if err := handler.CloseSession(session.ID); err == nil {
		t.Error("closing a closed session should error")
	}
}

func TestCloseIdleSessions(t *testing.T) {
	stub := &stubEngine{pages: 1, width: 600, height: 800}
	handler := newTestHandler(t, stub)
	stale, err := handler.OpenSession(writeTestDocument(t))
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := handler.OpenSession(writeTestDocument(t))
	if err != nil {
		t.Fatal(err)
	}

	stale.mu.Lock()
	stale.lastAccess = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	handler.closeIdleSessions(30 * time.Minute)

	if handler.SessionCount() != 1 {
		t.Fatalf("expected 1 surviving session, got %d", handler.SessionCount())
	}
	if _, ok := handler.Session(fresh.ID); !ok {
		t.Error("the fresh session should survive the sweep")
	}
	if _, ok := handler.Session(stale.ID); ok {
		t.Error("the stale session should have been swept")
	}
}

func TestRenderPageResetsZoomOrigin(t *testing.T) {
	stub := &stubEngine{pages: 1, width: 600, height: 800}
	handler := newTestHandler(t, stub)
	session, err := handler.OpenSession(writeTestDocument(t))
	if err != nil {
		t.Fatal(err)
	}

	image, origin, err := session.RenderPage(0, 300, 800)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if !bytes.HasPrefix(image, []byte("P6")) {
		t.Errorf("page render should be a colour pixmap, got %q", image[:2])
	}
	if origin.X != 0 || origin.Y != 0 {
		t.Errorf("whole-page origin = %v, want (0,0)", origin)
	}

	// Each arrow step moves half a zoom window, a quarter page
	_, origin, err = session.RenderZoom(0, 300, 800, 1, 0)
	if err != nil {
		t.Fatalf("RenderZoom: %v", err)
	}
	if origin.X != 150 || origin.Y != 0 {
		t.Errorf("first zoom step origin = %v, want (150,0)", origin)
	}
	_, origin, _ = session.RenderZoom(0, 300, 800, 1, 0)
	if origin.X != 300 {
		t.Errorf("second zoom step origin.X = %v, want 300", origin.X)
	}
	_, origin, _ = session.RenderZoom(0, 300, 800, 1, 0)
	if origin.X != 300 {
		t.Errorf("zoom window must stay inside the page, origin.X = %v", origin.X)
	}

	// Rendering the whole page again resets the stored origin
	_, _, err = session.RenderPage(0, 300, 800)
	if err != nil {
		t.Fatal(err)
	}
	_, origin, _ = session.RenderZoom(0, 300, 800, 0, 1)
	if origin.X != 0 || origin.Y != 200 {
		t.Errorf("origin after reset and down step = %v, want (0,200)", origin)
	}
}

func TestRenderCropIsGrayscale(t *testing.T) {
	stub := &stubEngine{pages: 1, width: 600, height: 800}
	handler := newTestHandler(t, stub)
	session, err := handler.OpenSession(writeTestDocument(t))
	if err != nil {
		t.Fatal(err)
	}

	image, err := session.RenderCrop(0)
	if err != nil {
		t.Fatalf("RenderCrop: %v", err)
	}
	if !bytes.HasPrefix(image, []byte("P5")) {
		t.Errorf("crop render should be a grayscale pixmap, got %q", image[:2])
	}
}

func TestOpenDiagnostic(t *testing.T) {
	handler := &ServerHandler{ServerConfig: config.ServerConfig{GhostscriptPath: "/usr/bin/gs"}}
	message := handler.openDiagnostic("broken.pdf")
	if !strings.Contains(message, "/usr/bin/gs") || !strings.Contains(message, "pdfwrite") {
		t.Errorf("diagnostic should include a Ghostscript repair command, got %q", message)
	}

	handler.ServerConfig.GhostscriptPath = ""
	message = handler.openDiagnostic("broken.pdf")
	if !strings.Contains(message, "Ghostscript") {
		t.Errorf("generic diagnostic should still mention Ghostscript, got %q", message)
	}
}
