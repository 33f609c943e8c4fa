package ingestion_engine

import (
	"fmt"

	"github.com/markdave123-py/flowllm/internal/models"
)

// AssetKey is the blob key of the ordinal-th uploaded image of a document.
// The uploader and the assembler both use it, so paths always agree.
func AssetKey(docPath string, ordinal int) string {
	return fmt.Sprintf("%s/image%d.png", docPath, ordinal)
}

// RecordID is the vector id of a document's ordinal-th unit.
func RecordID(docID string, ordinal int) string {
	return fmt.Sprintf("%s_%d", docID, ordinal)
}

// buildUnits lays chunks then captions out on one gapless ordinal sequence.
func buildUnits(chunks, captions []string) []models.TextUnit {
	units := make([]models.TextUnit, 0, len(chunks)+len(captions))
	for i, c := range chunks {
		units = append(units, models.TextUnit{Ordinal: len(units), Kind: models.UnitChunk, Index: i, Text: c})
	}
	for i, c := range captions {
		units = append(units, models.TextUnit{Ordinal: len(units), Kind: models.UnitCaption, Index: i, Text: c})
	}
	return units
}

// Assemble pairs units with vectors by position and attaches metadata.
// Text is never used to correlate, so duplicate chunks stay distinct.
func Assemble(doc models.Document, units []models.TextUnit, vectors [][]float32) ([]models.VectorRecord, error) {
	if len(units) != len(vectors) {
		return nil, fmt.Errorf("%w: %d units, %d vectors", ErrAlignment, len(units), len(vectors))
	}

	records := make([]models.VectorRecord, len(units))
	for i, u := range units {
		meta := map[string]string{
			models.MetaText:       u.Text,
			models.MetaDocumentID: doc.ID,
			models.MetaObjectName: doc.ObjectName,
		}
		if u.Kind == models.UnitCaption {
			meta[models.MetaImagePath] = imagePath(doc, u)
		}
		records[i] = models.VectorRecord{
			ID:       RecordID(doc.ID, i),
			Values:   vectors[i],
			Metadata: meta,
		}
	}
	return records, nil
}

// imagePath points caption records at their image. An image document is its
// own image and already lives in blob storage under its object key.
func imagePath(doc models.Document, u models.TextUnit) string {
	if doc.Kind == models.FileKindImage {
		return doc.ObjectKey
	}
	return AssetKey(doc.ID, u.Index)
}
