package datastore

import pipelineerrors "github.com/salescontrol/pipeline/internal/errors"

// Sentinel not-found errors, returned by repository lookups instead of
// gorm.ErrRecordNotFound so callers never need to import gorm directly.
var (
	ErrDeviceNotFound     = pipelineerrors.Newf("device not found").Component("datastore").Category(pipelineerrors.CategoryNotFound).Build()
	ErrChunkNotFound      = pipelineerrors.Newf("chunk not found").Component("datastore").Category(pipelineerrors.CategoryNotFound).Build()
	ErrDialogueNotFound   = pipelineerrors.Newf("dialogue not found").Component("datastore").Category(pipelineerrors.CategoryNotFound).Build()
	ErrTranscriptNotFound = pipelineerrors.Newf("transcript not found").Component("datastore").Category(pipelineerrors.CategoryNotFound).Build()
)
