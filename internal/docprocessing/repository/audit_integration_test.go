//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/internal/docprocessing/repository"
	"github.com/docscan/docscan-backend/pkg/testutil"
)

func TestAuditRepository_Postgres(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAuditRepository(testutil.PostgresDB(t))
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx), "schema creation is idempotent")

	consent := time.Now().UTC().Add(-time.Minute).Truncate(time.Microsecond)
	entry := &domain.ProcessingAuditEntry{
		JobID:                "job-42",
		DocumentType:         string(domain.DocumentTypeIDCard),
		Processor:            "vision",
		ConsentTimestamp:     consent,
		ConsentGivenBy:       "user-7",
		FieldsExtracted:      []string{domain.FieldDocumentNumber, domain.FieldDateOfBirth},
		ProcessingDurationMs: 140,
		ImageDeletedAt:       consent.Add(time.Second),
	}
	require.NoError(t, repo.Create(ctx, entry))
	require.NoError(t, repo.Create(ctx, &domain.ProcessingAuditEntry{
		JobID:            "job-42",
		DocumentType:     string(domain.DocumentTypeIDCard),
		Processor:        "mrz",
		ConsentTimestamp: consent,
		ImageDeletedAt:   consent,
	}))

	entries, err := repo.ListByJob(ctx, "job-42")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, []string{"document_number", "date_of_birth"}, entries[0].FieldsExtracted)
	assert.True(t, consent.Equal(entries[0].ConsentTimestamp))
	assert.Empty(t, entries[1].FieldsExtracted)

	// Negative durations violate the check constraint.
	err = repo.Create(ctx, &domain.ProcessingAuditEntry{JobID: "job-43", DocumentType: "passport", Processor: "mrz", ProcessingDurationMs: -1})
	assert.Error(t, err)
}
