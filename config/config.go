package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP         string
	ListenAddrPort       string
	DatabaseType         string
	DatabaseHost         string
	DatabasePort         string
	DatabaseUser         string
	DatabasePassword     string `json:"-"`
	DatabaseDbname       string
	DatabaseSslmode      string
	DocumentPath         string // absolute path to the document storage folder
	RendererBackend      string // fitz or pdfium
	GhostscriptPath      string // used for the repair hint on unreadable documents
	ViewportWidth        int    // default display area when the client sends none
	ViewportHeight       int
	ThumbnailWidth       int
	SessionIdleLimit     int // minutes a viewer session may sit unused before the sweeper closes it
	SessionSweepEvery    int // minutes between sweeper runs
	RecentDocumentNumber int
	UseReverseProxy      bool
	BaseURL              string
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	// Load configuration from environment variables with defaults

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Database configuration
	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "gopdfview")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", "gopdfview")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "")

	logger.Info("Database configuration loaded", "type", serverConfigLive.DatabaseType)

	// Document storage configuration
	documentPathRelative := filepath.ToSlash(getEnv("DOCUMENT_PATH", "documents"))
	documentPathAbs, err := filepath.Abs(documentPathRelative)
	if err != nil {
		logger.Error("Error creating document path", "path", documentPathRelative, "error", err)
	}
	serverConfigLive.DocumentPath = documentPathAbs

	// Renderer configuration
	serverConfigLive.RendererBackend = getEnv("RENDERER_BACKEND", "fitz")
	serverConfigLive.ViewportWidth = getEnvInt("VIEWPORT_WIDTH", 800)
	serverConfigLive.ViewportHeight = getEnvInt("VIEWPORT_HEIGHT", 1000)
	serverConfigLive.ThumbnailWidth = getEnvInt("THUMBNAIL_WIDTH", 256)

	// Viewer session configuration
	serverConfigLive.SessionIdleLimit = getEnvInt("SESSION_IDLE_MINUTES", 30)
	serverConfigLive.SessionSweepEvery = getEnvInt("SESSION_SWEEP_INTERVAL", 5)
	serverConfigLive.RecentDocumentNumber = getEnvInt("RECENT_DOCUMENT_COUNT", 10)

	// Ghostscript is only used to suggest a repair command when a
	// document cannot be read, so a missing binary just downgrades
	// the diagnostic.
	ghostscriptPathConfig := getEnv("GHOSTSCRIPT_PATH", "/usr/bin/gs")
	logger.Info("Checking ghostscript executable path...")
	if err := checkExecutables(ghostscriptPathConfig, logger); err == nil {
		serverConfigLive.GhostscriptPath = ghostscriptPathConfig
		logger.Info("Ghostscript found, repair hints enabled", "path", ghostscriptPathConfig)
	} else {
		logger.Warn("Ghostscript executable not found, repair hints will be generic", "path", ghostscriptPathConfig)
		serverConfigLive.GhostscriptPath = ""
	}

	// Reverse proxy configuration
	serverConfigLive.UseReverseProxy = getEnvBool("PROXY_ENABLED", false)
	serverConfigLive.BaseURL = getEnv("BASE_URL", "https://gopdfview.domain.org")

	if serverConfigLive.UseReverseProxy {
		logger.Info("Using Reverse Proxy", "baseURL", serverConfigLive.BaseURL)
	} else {
		logger.Info("Using relative URLs for API calls")
	}

	fmt.Println("\n========================================")
	fmt.Println("   goPDFView - PDF page preview server")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Renderer backend: %s\n", serverConfigLive.RendererBackend)
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "gopdfview.log"))
	fmt.Println("Initializing...")

	return serverConfigLive, logger
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "gopdfview.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

// checkExecutables verifies that an executable exists at the given path
func checkExecutables(executablePath string, logger *slog.Logger) error {
	_, err := os.Stat(executablePath)
	if err != nil {
		logger.Error("Cannot find executable at location specified", "path", executablePath)
		return err
	}
	logger.Debug("Executable found", "path", executablePath)
	return nil
}
