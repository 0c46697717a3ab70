package models

// These structs define the JSON payloads exchanged with the cloud functions
// and the downstream workflow.

// ComposeManifest describes a compose job stored as a JSON object in GCS.
type ComposeManifest struct {
	Sources  []ManifestSource `json:"sources"`
	Settings ManifestSettings `json:"settings"`
	// Pages is optional. When empty every page of every accepted source is
	// composed in source order.
	Pages []ManifestPage `json:"pages,omitempty"`
}

// ManifestSource points at one input object. An empty bucket means the
// bucket the manifest was uploaded to.
type ManifestSource struct {
	Bucket string `json:"bucket,omitempty"`
	Object string `json:"object"`
}

// ManifestSettings is the string form of ExportSettings.
type ManifestSettings struct {
	FileName    string `json:"fileName,omitempty"`
	PageSize    string `json:"pageSize,omitempty"`
	Orientation string `json:"orientation,omitempty"`
	Quality     string `json:"quality,omitempty"`
}

// ManifestPage selects one page of a source by zero-based indices.
type ManifestPage struct {
	Source   int `json:"source"`
	Page     int `json:"page"`
	Rotation int `json:"rotation,omitempty"`
}

// UploadRejectedResponse is returned by the upload composer when nothing
// could be composed.
type UploadRejectedResponse struct {
	Error    string         `json:"error"`
	Rejected []RejectedFile `json:"rejected"`
}

// ComposeCompletedPayload is the argument of the hand-off workflow execution.
type ComposeCompletedPayload struct {
	JobID     string `json:"jobId"`
	OutputURI string `json:"outputUri"`
	PageCount int    `json:"pageCount"`
}
