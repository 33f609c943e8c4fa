package models

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// FileKind is the coarse document type used for dispatch.
type FileKind string

const (
	FileKindPDF     FileKind = "pdf"
	FileKindImage   FileKind = "image"
	FileKindText    FileKind = "text"
	FileKindUnknown FileKind = ""
)

var extensionKinds = map[string]FileKind{
	".pdf":   FileKindPDF,
	".png":   FileKindImage,
	".jpg":   FileKindImage,
	".jpeg":  FileKindImage,
	".gif":   FileKindImage,
	".webp":  FileKindImage,
	".txt":   FileKindText,
	".md":    FileKindText,
	".csv":   FileKindText,
	".json":  FileKindText,
	".log":   FileKindText,
	".docx":  FileKindText,
	".doc":   FileKindText,
	".odt":   FileKindText,
	".rtf":   FileKindText,
	".html":  FileKindText,
	".htm":   FileKindText,
	".xml":   FileKindText,
	".pages": FileKindText,
	".pptx":  FileKindText,
}

// KindOf classifies a file name by its extension (case-insensitive).
func KindOf(name string) FileKind {
	return extensionKinds[strings.ToLower(path.Ext(name))]
}

// WorkItem is one queued request to ingest an object for an owner.
type WorkItem struct {
	FileURL string `json:"fileUrl"`
	UserID  string `json:"userId"`
}

// ErrInvalidWorkItem marks a queued item that cannot be turned into an object key.
var ErrInvalidWorkItem = errors.New("invalid work item")

// ObjectKey maps the item to its document-bucket key:
// "<userId>/<second-to-last URL segment>/<last URL segment>".
func (w WorkItem) ObjectKey() (string, error) {
	if w.FileURL == "" || w.UserID == "" {
		return "", fmt.Errorf("%w: fileUrl and userId are required", ErrInvalidWorkItem)
	}
	parts := strings.Split(strings.TrimSuffix(w.FileURL, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-1] == "" || parts[len(parts)-2] == "" {
		return "", fmt.Errorf("%w: fileUrl %q has fewer than two path segments", ErrInvalidWorkItem, w.FileURL)
	}
	return w.UserID + "/" + parts[len(parts)-2] + "/" + parts[len(parts)-1], nil
}

// Document is a single object being ingested.
//
// ID:         object key without extension; prefixes vector ids and image paths,
//             so two objects that share a file name never share either.
// ObjectName: file name as stored (e.g. "report.pdf").
// ObjectKey:  full key of the source object in the document bucket.
// Namespace:  owner partition in the vector store.
// LocalPath:  downloaded working copy; removed once processing ends.
type Document struct {
	ID         string
	ObjectName string
	ObjectKey  string
	Namespace  string
	Kind       FileKind
	LocalPath  string
}

// NewDocument derives a Document from an object key and namespace.
func NewDocument(objectKey, namespace string) Document {
	name := path.Base(objectKey)
	return Document{
		ID:         strings.TrimSuffix(objectKey, path.Ext(name)),
		ObjectName: name,
		ObjectKey:  objectKey,
		Namespace:  namespace,
		Kind:       KindOf(name),
	}
}

// ImageAsset is an image extracted from a document (or the document itself).
//
// Page is the zero-based source page, or -1 when the image is not from a PDF.
// Ordinal is the encounter order of the image within its page.
type ImageAsset struct {
	Data    []byte
	Format  string // "png", "jpeg", ...
	Page    int
	Ordinal int
}

// MIMEType returns the image content type.
func (a ImageAsset) MIMEType() string {
	if a.Format == "" {
		return "image/png"
	}
	return "image/" + a.Format
}

// UnitKind tells whether a text unit came from body text or an image caption.
type UnitKind string

const (
	UnitChunk   UnitKind = "chunk"
	UnitCaption UnitKind = "caption"
)

// TextUnit is one embeddable string plus its provenance.
//
// Ordinal is the unit's position in the document-wide embedding sequence.
// Index is the chunk index for chunks, or the document-wide image ordinal for captions.
type TextUnit struct {
	Ordinal int
	Kind    UnitKind
	Index   int
	Text    string
}

// Metadata keys persisted with every vector record.
const (
	MetaText       = "text"
	MetaDocumentID = "document_id"
	MetaObjectName = "object_name"
	MetaImagePath  = "image_path"
)

// VectorRecord is the unit of commit to the vector store.
type VectorRecord struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata"`
}
