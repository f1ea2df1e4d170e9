package engine

import (
	"fmt"
	"os"

	"github.com/drummonds/goPDFView/config"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	ghostscriptChecks(serverHandler.ServerConfig)
	return documentDirectoryChecks(serverHandler.ServerConfig)
}

func ghostscriptChecks(serverConfig config.ServerConfig) error {
	if serverConfig.GhostscriptPath == "" {
		Logger.Info("Ghostscript not configured, repair hints will be generic")
		return nil
	}

	ghostscriptInfo, err := os.Stat(serverConfig.GhostscriptPath)
	if err != nil {
		Logger.Warn("Ghostscript executable not found, repair hints will be generic", "path", serverConfig.GhostscriptPath, "error", err)
		return nil // Don't return error, just continue without repair hints
	}
	if ghostscriptInfo.IsDir() {
		Logger.Warn("Ghostscript path is a directory, not an executable", "path", serverConfig.GhostscriptPath)
		return nil
	}
	Logger.Info("Ghostscript executable found and validated", "path", serverConfig.GhostscriptPath)
	return nil
}

// documentDirectoryChecks ensures the document storage directory exists
func documentDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.DocumentPath == "" {
		Logger.Warn("Document path not configured")
		return nil
	}

	// Check if directory exists
	docInfo, err := os.Stat(serverConfig.DocumentPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create the directory
			Logger.Info("Creating document directory", "path", serverConfig.DocumentPath)
			err = os.MkdirAll(serverConfig.DocumentPath, 0755)
			if err != nil {
				Logger.Error("Failed to create document directory", "path", serverConfig.DocumentPath, "error", err)
				return err
			}
			Logger.Info("Document directory created successfully", "path", serverConfig.DocumentPath)
			return nil
		}
		Logger.Error("Error checking document directory", "path", serverConfig.DocumentPath, "error", err)
		return err
	}

	// Check if it's actually a directory
	if !docInfo.IsDir() {
		Logger.Error("Document path exists but is not a directory", "path", serverConfig.DocumentPath)
		return fmt.Errorf("document path is not a directory: %s", serverConfig.DocumentPath)
	}

	Logger.Info("Document directory exists", "path", serverConfig.DocumentPath)
	return nil
}
