package models

import (
	"fmt"
	"time"

	"github.com/ahmedjamion/pdf-merger/internal/handles"
)

// MediaKind is the normalized type of an accepted source file.
type MediaKind string

const (
	KindDocument MediaKind = "application/pdf"
	KindJPEG     MediaKind = "image/jpeg"
	KindPNG      MediaKind = "image/png"
	KindWebP     MediaKind = "image/webp"
)

// IsDocument reports whether the kind carries structural pages.
func (k MediaKind) IsDocument() bool { return k == KindDocument }

// IsImage reports whether the kind is one of the accepted raster formats.
func (k MediaKind) IsImage() bool {
	return k == KindJPEG || k == KindPNG || k == KindWebP
}

// Payload is one raw file handed to the intake by a collaborator.
type Payload struct {
	Name         string
	Size         int64
	DeclaredType string
	LastModified time.Time
	Data         []byte
}

// NewPayload builds a payload whose size is taken from data.
func NewPayload(name, declaredType string, lastModified time.Time, data []byte) Payload {
	return Payload{
		Name:         name,
		Size:         int64(len(data)),
		DeclaredType: declaredType,
		LastModified: lastModified,
		Data:         data,
	}
}

// MetadataKey is the cheap duplicate key: name, size and modification time.
func MetadataKey(name string, size int64, lastModified time.Time) string {
	return fmt.Sprintf("%s:%d:%d", name, size, lastModified.UnixMilli())
}

// SourceFile is an accepted input whose bytes contribute pages to the output.
type SourceFile struct {
	ID           string
	Name         string
	Size         int64
	Kind         MediaKind
	LastModified time.Time
	PageCount    int
	// Preview references the raw bytes of the file. It is owned by the intake
	// and released when the file is removed or cleared.
	Preview *handles.Handle
	// Digest is empty when hashing failed at intake time.
	Digest string

	data []byte
}

// NewSourceFile creates a SourceFile taking exclusive ownership of data.
func NewSourceFile(id string, p Payload, kind MediaKind, pageCount int, data []byte) *SourceFile {
	return &SourceFile{
		ID:           id,
		Name:         p.Name,
		Size:         p.Size,
		Kind:         kind,
		LastModified: p.LastModified,
		PageCount:    pageCount,
		data:         data,
	}
}

// Bytes returns the file payload. Callers must not modify it.
func (f *SourceFile) Bytes() []byte { return f.data }

// Key returns the metadata duplicate key of the file.
func (f *SourceFile) Key() string { return MetadataKey(f.Name, f.Size, f.LastModified) }

// RejectedFile records why an incoming file was not accepted.
type RejectedFile struct {
	ID      string   `json:"id" firestore:"id"`
	Name    string   `json:"name" firestore:"name"`
	Reasons []string `json:"reasons" firestore:"reasons"`
}
