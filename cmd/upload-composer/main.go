package main

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/ahmedjamion/pdf-merger/internal/config"
	"github.com/ahmedjamion/pdf-merger/internal/services"
)

var (
	uploadComposer *services.UploadComposerFunction
	once           sync.Once
	initErr        error
)

func init() {
	functions.HTTP("ComposeUpload", handleComposeUpload)
}

func main() {}

// handleComposeUpload composes the uploaded files and returns the document.
func handleComposeUpload(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		var cfg *config.Config
		cfg, initErr = config.Load()
		if initErr != nil {
			return
		}
		slog.SetDefault(cfg.Log.NewLogger())
		uploadComposer = services.NewUploadComposer(cfg)
	})
	if initErr != nil {
		slog.Error("Critical: upload composer initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	uploadComposer.ServeHTTP(w, r)
}
