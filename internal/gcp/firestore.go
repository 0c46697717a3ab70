package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// NewFirestoreClient creates a Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FindFirst returns the first document of col whose field equals value, or
// nil when there is none.
func FindFirst(ctx context.Context, col *firestore.CollectionRef, field string, value interface{}) (*firestore.DocumentRef, error) {
	docs, err := col.Where(field, "==", value).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", col.ID, field, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0].Ref, nil
}

// UpdateStatus sets the status of a job document, plus errorDetails when
// given and any extra updates.
func UpdateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string, extra ...firestore.Update) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	updates = append(updates, extra...)
	if _, err := docRef.Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update status to %s: %w", status, err)
	}
	return nil
}
