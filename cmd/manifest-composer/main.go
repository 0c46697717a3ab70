package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/ahmedjamion/pdf-merger/internal/config"
	"github.com/ahmedjamion/pdf-merger/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	cfg              *config.Config
	manifestComposer *services.ManifestComposerFunction
	once             sync.Once
	initErr          error
)

func init() {
	cfg, initErr = config.Load()
	if initErr == nil {
		slog.SetDefault(cfg.Log.NewLogger())
	}

	functions.CloudEvent("ComposeFromManifest", composeFromManifest)
}

// main is required by the Go Functions Framework.
func main() {}

// composeFromManifest runs for every object finalized in the manifest bucket.
func composeFromManifest(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		if initErr != nil {
			return
		}
		manifestComposer, initErr = services.NewManifestComposer(context.Background(), cfg)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Process logs with job context and marks the job FAILED before returning.
	return manifestComposer.Process(ctx, gcsEvent)
}
