package ingestion_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/flowllm/internal/models"
)

func vectorsFor(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i)}
	}
	return out
}

func TestBuildUnits(t *testing.T) {
	units := buildUnits([]string{"a", "b"}, []string{"cap0", "cap1"})
	require.Len(t, units, 4)
	for i, u := range units {
		assert.Equal(t, i, u.Ordinal)
	}
	assert.Equal(t, models.UnitChunk, units[1].Kind)
	assert.Equal(t, 1, units[1].Index)
	assert.Equal(t, models.UnitCaption, units[2].Kind)
	assert.Equal(t, 0, units[2].Index)
	assert.Equal(t, 1, units[3].Index)
}

func TestAssemble_PDF(t *testing.T) {
	doc := models.NewDocument("user-1/f1/report.pdf", "user-1")
	units := buildUnits([]string{"one", "two"}, []string{"a chart"})

	records, err := Assemble(doc, units, vectorsFor(3))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "user-1/f1/report_0", records[0].ID)
	assert.Equal(t, "user-1/f1/report_1", records[1].ID)
	assert.Equal(t, "user-1/f1/report_2", records[2].ID)

	assert.Equal(t, map[string]string{
		models.MetaText:       "one",
		models.MetaDocumentID: "user-1/f1/report",
		models.MetaObjectName: "report.pdf",
	}, records[0].Metadata)
	assert.NotContains(t, records[1].Metadata, models.MetaImagePath)

	assert.Equal(t, "a chart", records[2].Metadata[models.MetaText])
	assert.Equal(t, "user-1/f1/report/image0.png", records[2].Metadata[models.MetaImagePath])
	assert.Equal(t, []float32{2}, records[2].Values)
}

func TestAssemble_ImageDocumentPointsAtSourceObject(t *testing.T) {
	doc := models.NewDocument("user-1/f1/photo.jpg", "user-1")
	records, err := Assemble(doc, buildUnits(nil, []string{"a beach"}), vectorsFor(1))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "user-1/f1/photo_0", records[0].ID)
	assert.Equal(t, "user-1/f1/photo.jpg", records[0].Metadata[models.MetaImagePath])
}

func TestAssemble_DuplicateTextStaysPositional(t *testing.T) {
	doc := models.NewDocument("u/f/notes.txt", "u")
	units := buildUnits([]string{"same", "same", "same"}, nil)

	records, err := Assemble(doc, units, vectorsFor(3))
	require.NoError(t, err)
	for i, r := range records {
		assert.Equal(t, []float32{float32(i)}, r.Values)
		assert.Equal(t, RecordID("u/f/notes", i), r.ID)
	}
}

func TestAssemble_CountMismatch(t *testing.T) {
	doc := models.NewDocument("u/f/notes.txt", "u")
	_, err := Assemble(doc, buildUnits([]string{"a", "b"}, nil), vectorsFor(1))
	assert.ErrorIs(t, err, ErrAlignment)
}

func TestAssetKey(t *testing.T) {
	assert.Equal(t, "report/image0.png", AssetKey("report", 0))
	assert.Equal(t, "report/image12.png", AssetKey("report", 12))
}
