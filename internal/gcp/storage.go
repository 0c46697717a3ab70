package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Object is a downloaded GCS object. Data is nil when the object was larger
// than the download limit; Size still reports its real size.
type Object struct {
	Bucket      string
	Name        string
	ContentType string
	Size        int64
	Updated     time.Time
	Data        []byte
}

// URI returns the gs:// address of the object.
func (o Object) URI() string { return ObjectURI(o.Bucket, o.Name) }

// ObjectURI formats a gs:// address.
func ObjectURI(bucket, name string) string { return fmt.Sprintf("gs://%s/%s", bucket, name) }

// DownloadObject reads an object into memory. Objects over maxBytes are not
// read; pass a non-positive maxBytes to read everything.
func DownloadObject(ctx context.Context, client *storage.Client, bucket, name string, maxBytes int64) (Object, error) {
	reader, err := client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return Object{}, fmt.Errorf("failed to get GCS object reader for %s: %w", ObjectURI(bucket, name), err)
	}
	defer reader.Close()

	obj := Object{
		Bucket:      bucket,
		Name:        name,
		ContentType: reader.Attrs.ContentType,
		Size:        reader.Attrs.Size,
		Updated:     reader.Attrs.LastModified,
	}
	if maxBytes > 0 && obj.Size > maxBytes {
		slog.Warn("Skipping download of oversized object.", "gcsObject", obj.URI(), "size", obj.Size, "limit", maxBytes)
		return obj, nil
	}

	var buf bytes.Buffer
	buf.Grow(int(obj.Size))
	if _, err := io.Copy(&buf, reader); err != nil {
		return Object{}, fmt.Errorf("failed to read GCS object %s: %w", obj.URI(), err)
	}
	obj.Data = buf.Bytes()
	return obj, nil
}

// SaveToGCSAtomically writes data to a GCS object only if it doesn't already
// exist. An existing object counts as success.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, data []byte) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists. Skipping.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists. Skipping.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// UploadWithRetry saves data with SaveToGCSAtomically, retrying failed
// attempts with exponential backoff.
func UploadWithRetry(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, data []byte) error {
	const maxRetries = 4
	backoff := 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
			defer cancel()
			return SaveToGCSAtomically(writeCtx, bucket, objectName, contentType, data)
		}()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", objectName,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", objectName, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", objectName, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", objectName, lastErr)
}
