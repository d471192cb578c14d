// Package record implements the VectorEntry codec: parsing NDJSON input
// lines into an Entry, deriving its content address, and encoding it for
// storage.
package record

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/rahulunair/vekta/internal/vektaerr"
	"github.com/rahulunair/vekta/internal/vectormath"
)

// Metadata is the mandatory, opaque-to-the-core structured payload attached
// to every entry.
type Metadata struct {
	FilePath       string `json:"file_path" msgpack:"file_path"`
	FileName       string `json:"file_name" msgpack:"file_name"`
	ChunkIndex     int    `json:"chunk_index" msgpack:"chunk_index"`
	StartLine      int    `json:"start_line" msgpack:"start_line"`
	EndLine        int    `json:"end_line" msgpack:"end_line"`
	ContentPreview string `json:"content_preview" msgpack:"content_preview"`
}

// Entry is the stored vector record.
type Entry struct {
	Label    string    `json:"label" msgpack:"label"`
	UniqueID string    `json:"unique_id" msgpack:"unique_id"`
	Vector   []float32 `json:"vector" msgpack:"vector"`
	Metadata Metadata  `json:"metadata" msgpack:"metadata"`
}

// rawInput mirrors the wire shape of an NDJSON input line: vector elements
// arrive as float64 and are narrowed to float32 after parsing.
type rawInput struct {
	Label    *string      `json:"label"`
	UniqueID *string      `json:"unique_id"`
	Vector   []float64    `json:"vector"`
	Metadata *rawMetadata `json:"metadata"`
}

type rawMetadata struct {
	FilePath       *string `json:"file_path"`
	FileName       *string `json:"file_name"`
	ChunkIndex     *int    `json:"chunk_index"`
	StartLine      *int    `json:"start_line"`
	EndLine        *int    `json:"end_line"`
	ContentPreview *string `json:"content_preview"`
}

// Parse decodes one NDJSON input line into an Entry, enforcing field
// presence, typing, and dimension agreement. The returned entry's vector has
// NOT yet been normalized; the caller normalizes before hashing or storing.
// When the input omits unique_id, it is left empty here: the content
// address depends on the normalized vector, so the caller must derive it
// (via UniqueIDFor) only after calling Normalize.
func Parse(line []byte, dimensions int) (Entry, error) {
	var raw rawInput
	if err := json.Unmarshal(line, &raw); err != nil {
		return Entry{}, vektaerr.Wrap("record.Parse", fmt.Errorf("%w: %v", vektaerr.ErrBadInput, err))
	}
	if raw.Label == nil {
		return Entry{}, vektaerr.Wrap("record.Parse", fmt.Errorf("%w: missing label", vektaerr.ErrBadInput))
	}
	if raw.Vector == nil {
		return Entry{}, vektaerr.Wrap("record.Parse", fmt.Errorf("%w: missing vector", vektaerr.ErrBadInput))
	}
	if raw.Metadata == nil {
		return Entry{}, vektaerr.Wrap("record.Parse", fmt.Errorf("%w: missing metadata", vektaerr.ErrBadInput))
	}
	md, err := parseMetadata(raw.Metadata)
	if err != nil {
		return Entry{}, err
	}

	if len(raw.Vector) != dimensions {
		return Entry{}, vektaerr.Wrap("record.Parse", fmt.Errorf("%w: expected %d, got %d",
			vektaerr.ErrDimensionMismatch, dimensions, len(raw.Vector)))
	}

	vector := make([]float32, len(raw.Vector))
	for i, x := range raw.Vector {
		vector[i] = float32(x)
	}

	entry := Entry{
		Label:    sanitizeUTF8(*raw.Label),
		Vector:   vector,
		Metadata: md,
	}
	if raw.UniqueID != nil {
		entry.UniqueID = sanitizeUTF8(*raw.UniqueID)
	}
	return entry, nil
}

func parseMetadata(raw *rawMetadata) (Metadata, error) {
	if raw.FilePath == nil || raw.FileName == nil || raw.ChunkIndex == nil ||
		raw.StartLine == nil || raw.EndLine == nil || raw.ContentPreview == nil {
		return Metadata{}, vektaerr.Wrap("record.Parse", fmt.Errorf("%w: incomplete metadata", vektaerr.ErrBadInput))
	}
	if *raw.ChunkIndex < 0 || *raw.StartLine < 0 || *raw.EndLine < 0 {
		return Metadata{}, vektaerr.Wrap("record.Parse", fmt.Errorf("%w: negative metadata field", vektaerr.ErrBadInput))
	}
	return Metadata{
		FilePath:       sanitizeUTF8(*raw.FilePath),
		FileName:       sanitizeUTF8(*raw.FileName),
		ChunkIndex:     *raw.ChunkIndex,
		StartLine:      *raw.StartLine,
		EndLine:        *raw.EndLine,
		ContentPreview: sanitizeUTF8(*raw.ContentPreview),
	}, nil
}

// sanitizeUTF8 coerces s to valid UTF-8, replacing invalid byte sequences
// with the Unicode replacement character via the same decoder family the
// corpus uses for untrusted text input (golang.org/x/text/encoding).
func sanitizeUTF8(s string) string {
	decoder := unicode.UTF8.NewDecoder()
	out, _, err := transform.String(decoder, s)
	if err != nil {
		return string([]rune(s))
	}
	return out
}

// Normalize normalizes e.Vector in place.
func (e *Entry) Normalize() {
	vectormath.Normalize(e.Vector)
}

// UniqueIDFor computes the content address hex(SHA256(label || LE(vector) ||
// canonical(metadata))) for the given label, already-normalized vector, and
// metadata. canonical(metadata) uses encoding/json's struct-field-order
// serialization, which is stable within one process image.
func UniqueIDFor(label string, vector []float32, md Metadata) (string, error) {
	h := sha256.New()
	h.Write([]byte(label))

	buf := make([]byte, 4)
	for _, x := range vector {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
		h.Write(buf)
	}

	mdJSON, err := json.Marshal(md)
	if err != nil {
		return "", vektaerr.Wrap("record.UniqueIDFor", err)
	}
	h.Write(mdJSON)

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ContentHashFor computes a hash over (vector, metadata) only — distinct
// from UniqueIDFor, used by the store to decide whether a re-submission
// under the same label is a content-identical no-op.
func ContentHashFor(vector []float32, md Metadata) (string, error) {
	return UniqueIDFor("", vector, md)
}

// Encode serializes e with the self-describing msgpack codec.
func Encode(e Entry) ([]byte, error) {
	b, err := msgpack.Marshal(e)
	if err != nil {
		return nil, vektaerr.Wrap("record.Encode", err)
	}
	return b, nil
}

// Decode deserializes bytes previously produced by Encode back into an
// equal Entry.
func Decode(data []byte) (Entry, error) {
	var e Entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return Entry{}, vektaerr.Wrap("record.Decode", err)
	}
	return e, nil
}
