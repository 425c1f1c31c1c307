package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-go/helpdesk/internal/repository"
)

func TestCreateReferenceDataRequiresAdmin(t *testing.T) {
	svc := NewRefDataService(newFakeRefDataRepo())

	_, err := svc.CreateCategory(context.Background(), manager, "Facilities")
	assert.True(t, apperrorsIsCode(err, "FORBIDDEN"))

	category, err := svc.CreateCategory(context.Background(), adminUser, "Facilities")
	require.NoError(t, err)
	assert.Equal(t, "Facilities", category.Label)
}

func TestCreateReferenceDataRejectsDuplicatesAndBlankLabels(t *testing.T) {
	svc := NewRefDataService(newFakeRefDataRepo())

	_, err := svc.CreateStatus(context.Background(), adminUser, "  ")
	assert.True(t, apperrorsIsCode(err, "VALIDATION_FAILED"))

	_, err = svc.CreateStatus(context.Background(), adminUser, "Ouvert")
	assert.True(t, apperrorsIsCode(err, "CONFLICT"))

	_, err = svc.CreatePriority(context.Background(), adminUser, "P5 - Planning", -1)
	assert.True(t, apperrorsIsCode(err, "VALIDATION_FAILED"))

	priority, err := svc.CreatePriority(context.Background(), adminUser, "P5 - Planning", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, priority.Level)
}

func TestDeleteReferenceDataWarnsWhenReferenced(t *testing.T) {
	repo := newFakeRefDataRepo()
	svc := NewRefDataService(repo)

	repo.deleteErr = repository.ErrReferenced
	warning, err := svc.DeleteCategory(context.Background(), adminUser, "cat-hardware")
	require.NoError(t, err)
	assert.Equal(t, WarnCategoryReferenced, warning)

	warning, err = svc.DeleteStatus(context.Background(), adminUser, "status-open")
	require.NoError(t, err)
	assert.Equal(t, WarnStatusReferenced, warning)

	repo.deleteErr = nil
	warning, err = svc.DeletePriority(context.Background(), adminUser, "prio-4")
	require.NoError(t, err)
	assert.Empty(t, warning)
}

func TestDeleteReferenceDataUnknownID(t *testing.T) {
	svc := NewRefDataService(newFakeRefDataRepo())

	_, err := svc.DeleteCategory(context.Background(), adminUser, "missing")
	assert.True(t, apperrorsIsCode(err, "NOT_FOUND"))
}
