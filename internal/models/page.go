package models

import (
	"fmt"

	"github.com/ahmedjamion/pdf-merger/internal/handles"
)

// PageRecord is one curated output page.
//
// SourceFileName and SourceKind are snapshots taken when the record was
// derived, so a record can still be displayed after its file is gone.
type PageRecord struct {
	ID              string
	SourceFileID    string
	SourceFileName  string
	SourceKind      MediaKind
	SourcePageIndex int
	Rotation        int
	// Preview is set for image sources and borrows the file's handle.
	Preview   *handles.Handle
	OriginKey string
}

// OriginKey formats the stable sort key of a source page.
func OriginKey(fileID string, pageIndex int) string {
	return fmt.Sprintf("%s:%d", fileID, pageIndex)
}
