package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"github.com/ahmedjamion/pdf-merger/internal/config"
	"github.com/ahmedjamion/pdf-merger/internal/editor"
	"github.com/ahmedjamion/pdf-merger/internal/gcp"
	"github.com/ahmedjamion/pdf-merger/internal/hasher"
	"github.com/ahmedjamion/pdf-merger/internal/models"
	"golang.org/x/sync/errgroup"
)

const maxManifestSize = 1 << 20

// GCSEvent is the payload of a storage object-finalize CloudEvent.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ManifestComposerFunction composes a document for every manifest uploaded
// to the trigger bucket and records the job in Firestore.
type ManifestComposerFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	config           *config.Config
}

// NewManifestComposer creates the clients the function needs. The workflow
// client is only created when a hand-off workflow is configured.
func NewManifestComposer(ctx context.Context, cfg *config.Config) (*ManifestComposerFunction, error) {
	if err := cfg.RequireCloud(); err != nil {
		return nil, err
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.GCP.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	f := &ManifestComposerFunction{
		firestoreClient: firestoreClient,
		storageClient:   storageClient,
		config:          cfg,
	}
	if cfg.GCP.WorkflowID != "" {
		f.executionsClient, err = executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
	}
	slog.Info("Manifest composer initialized.", "outputBucket", cfg.GCP.OutputBucket, "workflowId", cfg.GCP.WorkflowID)
	return f, nil
}

// Process runs one compose job. Objects that are not JSON manifests and
// manifests already processed are skipped without error.
func (f *ManifestComposerFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.HasSuffix(strings.ToLower(e.Name), ".json") {
		logCtx.Info("Ignoring non-manifest object.")
		return nil
	}
	logCtx.Info("Processing new manifest.")

	obj, err := gcp.DownloadObject(ctx, f.storageClient, e.Bucket, e.Name, maxManifestSize)
	if err != nil {
		logCtx.Error("Failed to download manifest", "error", err)
		return err
	}
	if obj.Data == nil {
		return fmt.Errorf("%w: manifest exceeds %d bytes", ErrInvalidManifest, maxManifestSize)
	}
	manifestHash := hasher.Sum(obj.Data)
	logCtx = logCtx.With("manifestHash", manifestHash)

	isDuplicate, jobID, err := f.isDuplicate(ctx, manifestHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate manifest detected. Skipping.", "existingJobId", jobID)
		return nil
	}

	docRef, err := f.createInitialDocument(ctx, manifestHash, obj.URI())
	if err != nil {
		logCtx.Error("Failed to create initial Firestore document", "error", err)
		return err
	}
	logCtx = logCtx.With("jobId", docRef.ID)
	logCtx.Info("Created compose job in Firestore.")

	manifest, settings, err := ParseManifest(obj.Data)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to parse manifest", err)
	}

	payloads, err := f.downloadSources(ctx, logCtx, e.Bucket, manifest.Sources)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "one or more sources failed to download", err)
	}

	if err := gcp.UpdateStatus(ctx, docRef, models.StatusComposing, ""); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to update status to COMPOSING", err)
	}

	opts := editor.OptionsFromConfig(f.config)
	opts.Logger = logCtx
	result, err := Assemble(ctx, opts, payloads, settings, manifest.Pages)
	if result != nil && len(result.Rejected) > 0 {
		f.recordRejected(ctx, logCtx, docRef, result.Rejected)
	}
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to compose document", err)
	}
	logCtx = logCtx.With("pageCount", result.PageCount)

	objectName := fmt.Sprintf("%s/%s", docRef.ID, result.FileName)
	if err := gcp.UploadWithRetry(ctx, f.storageClient.Bucket(f.config.GCP.OutputBucket), objectName, "application/pdf", result.Data); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to upload composed document", err)
	}
	outputURI := gcp.ObjectURI(f.config.GCP.OutputBucket, objectName)

	updates := []firestore.Update{
		{Path: "pageCount", Value: result.PageCount},
		{Path: "acceptedFiles", Value: len(result.Accepted)},
		{Path: "outputUri", Value: outputURI},
	}
	if err := gcp.UpdateStatus(ctx, docRef, models.StatusCompleted, "", updates...); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to update status to COMPLETED", err)
	}
	logCtx.Info("Compose job completed.", "outputUri", outputURI)

	if f.executionsClient != nil {
		if err := f.triggerWorkflow(ctx, logCtx, docRef, outputURI, result.PageCount); err != nil {
			return err
		}
		logCtx.Info("Hand-off to workflow complete.")
	}
	return nil
}

func (f *ManifestComposerFunction) isDuplicate(ctx context.Context, manifestHash string) (bool, string, error) {
	ref, err := gcp.FindFirst(ctx, f.firestoreClient.Collection(f.config.GCP.FirestoreCollection), "manifestHash", manifestHash)
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if ref != nil {
		return true, ref.ID, nil
	}
	return false, "", nil
}

func (f *ManifestComposerFunction) createInitialDocument(ctx context.Context, manifestHash, manifestURI string) (*firestore.DocumentRef, error) {
	job := models.ComposeJob{
		ManifestHash:   manifestHash,
		ManifestObject: manifestURI,
		Status:         models.StatusValidating,
		CreatedAt:      time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.GCP.FirestoreCollection).Add(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create compose job: %w", err)
	}
	return docRef, nil
}

// downloadSources fetches every source concurrently and returns the payloads
// in manifest order. Sources over the per-file cap are not downloaded; their
// payload carries the real size so validation rejects them.
func (f *ManifestComposerFunction) downloadSources(ctx context.Context, logCtx *slog.Logger, defaultBucket string, sources []models.ManifestSource) ([]models.Payload, error) {
	logCtx.Info("Starting concurrent download of sources.", "sourceCount", len(sources))
	limit := f.config.Limits.Intake().MaxFileSize
	payloads := make([]models.Payload, len(sources))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.config.GCP.MaxConcurrentDownloads)
	for i, src := range sources {
		bucket := src.Bucket
		if bucket == "" {
			bucket = defaultBucket
		}
		eg.Go(func() error {
			obj, err := gcp.DownloadObject(gctx, f.storageClient, bucket, src.Object, limit)
			if err != nil {
				return fmt.Errorf("source %d: %w", i, err)
			}
			p := models.NewPayload(sourceName(src), obj.ContentType, obj.Updated, obj.Data)
			p.Size = obj.Size
			payloads[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	logCtx.Info("All sources downloaded.")
	return payloads, nil
}

func (f *ManifestComposerFunction) recordRejected(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, rejected []models.RejectedFile) {
	logCtx.Info("Some sources were rejected.", "rejectedCount", len(rejected))
	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "rejectedFiles", Value: rejected}}); err != nil {
		logCtx.Error("Failed to record rejected sources.", "error", err)
	}
}

func (f *ManifestComposerFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, outputURI string, pageCount int) error {
	logCtx.Info("Triggering workflow.")
	parent := gcp.WorkflowParent(f.config.GCP.ProjectID, f.config.GCP.WorkflowLocation, f.config.GCP.WorkflowID)
	execName, err := gcp.TriggerWorkflow(ctx, f.executionsClient, parent, models.ComposeCompletedPayload{
		JobID:     docRef.ID,
		OutputURI: outputURI,
		PageCount: pageCount,
	})
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}
	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "workflowExecutionId", Value: execName}}); err != nil {
		logCtx.Warn("Failed to record workflow execution.", "error", err)
	}
	return nil
}

func (f *ManifestComposerFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := gcp.UpdateStatus(ctx, docRef, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}
