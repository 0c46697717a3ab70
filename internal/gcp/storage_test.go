package gcp

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestObjectURI(t *testing.T) {
	assert.Equal(t, "gs://out/job/report.pdf", ObjectURI("out", "job/report.pdf"))
	assert.Equal(t, "gs://in/a.pdf", Object{Bucket: "in", Name: "a.pdf"}.URI())
}

func TestIsPreconditionFailed(t *testing.T) {
	conflict := &googleapi.Error{Code: http.StatusPreconditionFailed}
	assert.True(t, isPreconditionFailed(conflict))
	assert.True(t, isPreconditionFailed(fmt.Errorf("close: %w", conflict)))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isPreconditionFailed(fmt.Errorf("network down")))
}

func TestWorkflowParent(t *testing.T) {
	assert.Equal(t,
		"projects/p/locations/us-central1/workflows/merged-handoff",
		WorkflowParent("p", "us-central1", "merged-handoff"))
}
