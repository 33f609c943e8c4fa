package ingestion_engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFileKind is returned for objects whose extension has no handler.
	ErrUnsupportedFileKind = errors.New("unsupported file kind")
	// ErrAlignment means the embedding provider returned a different number of
	// vectors than units were sent.
	ErrAlignment = errors.New("embedding count does not match unit count")
)

// Stage names a step of document processing.
type Stage string

const (
	StageDispatching Stage = "dispatching"
	StageDownloading Stage = "downloading"
	StageExtracting  Stage = "extracting"
	StageUploading   Stage = "uploading"
	StageEmbedding   Stage = "embedding"
	StageAssembling  Stage = "assembling"
	StageCommitting  Stage = "committing"
)

// StageError reports which stage failed a document.
type StageError struct {
	Stage      Stage
	DocumentID string
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("document %s: %s: %v", e.DocumentID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, docID string, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, DocumentID: docID, Err: err}
}
