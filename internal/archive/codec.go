// Package archive serializes a document's full chunk set into a versioned
// binary record and moves those records through an object storage boundary.
package archive

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// SchemaVersion is the current archival record version. Decoders reject
// records carrying any other version.
const SchemaVersion = 1

// Wire layout, protobuf encoding without generated code.
//
//	ContentChunks: 1=version (varint), 2=chunk (repeated bytes)
//	Chunk:         1=id, 2=url, 3=type, 4=title, 5=content (bytes),
//	               6=vector (packed fixed32)
const (
	fieldVersion = 1
	fieldChunk   = 2

	chunkFieldID      = 1
	chunkFieldURL     = 2
	chunkFieldType    = 3
	chunkFieldTitle   = 4
	chunkFieldContent = 5
	chunkFieldVector  = 6
)

// ErrSchemaMismatch indicates a record encoded with an unsupported version.
var ErrSchemaMismatch = errors.New("archive schema version mismatch")

// CodecError wraps an encode or decode failure. Decoding never returns a
// partially populated record alongside an error.
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("archive codec %s: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// Chunk is one archived chunk with its embedding.
type Chunk struct {
	ID      string
	URL     string
	Type    string
	Title   string
	Content string
	Vector  []float32
}

// ContentChunks is the archival record for one document.
type ContentChunks struct {
	Chunks []Chunk
}

// Encode serializes the record with the current schema version.
func Encode(data ContentChunks) []byte {
	buf := protowire.AppendTag(nil, fieldVersion, protowire.VarintType)
	buf = protowire.AppendVarint(buf, SchemaVersion)

	for _, chunk := range data.Chunks {
		buf = protowire.AppendTag(buf, fieldChunk, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeChunk(chunk))
	}
	return buf
}

func encodeChunk(chunk Chunk) []byte {
	buf := appendStringField(nil, chunkFieldID, chunk.ID)
	buf = appendStringField(buf, chunkFieldURL, chunk.URL)
	buf = appendStringField(buf, chunkFieldType, chunk.Type)
	buf = appendStringField(buf, chunkFieldTitle, chunk.Title)
	buf = appendStringField(buf, chunkFieldContent, chunk.Content)

	if len(chunk.Vector) > 0 {
		packed := make([]byte, 0, 4*len(chunk.Vector))
		for _, v := range chunk.Vector {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v))
		}
		buf = protowire.AppendTag(buf, chunkFieldVector, protowire.BytesType)
		buf = protowire.AppendBytes(buf, packed)
	}
	return buf
}

func appendStringField(buf []byte, num protowire.Number, value string) []byte {
	if value == "" {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendString(buf, value)
}

// Decode parses an archival record. The buffer must match the schema
// exactly; unknown fields, wrong wire types, and foreign versions are all
// rejected with a CodecError.
func Decode(buf []byte) (ContentChunks, error) {
	var (
		data        ContentChunks
		versionSeen bool
	)

	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return ContentChunks{}, &CodecError{Op: "decode", Err: protowire.ParseError(n)}
		}
		buf = buf[n:]

		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			version, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return ContentChunks{}, &CodecError{Op: "decode", Err: protowire.ParseError(n)}
			}
			buf = buf[n:]
			if version != SchemaVersion {
				return ContentChunks{}, &CodecError{
					Op:  "decode",
					Err: fmt.Errorf("%w: got version %d, want %d", ErrSchemaMismatch, version, SchemaVersion),
				}
			}
			versionSeen = true

		case num == fieldChunk && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return ContentChunks{}, &CodecError{Op: "decode", Err: protowire.ParseError(n)}
			}
			buf = buf[n:]

			chunk, err := decodeChunk(raw)
			if err != nil {
				return ContentChunks{}, err
			}
			data.Chunks = append(data.Chunks, chunk)

		default:
			return ContentChunks{}, &CodecError{
				Op:  "decode",
				Err: fmt.Errorf("unexpected field %d with wire type %d", num, typ),
			}
		}
	}

	if !versionSeen {
		return ContentChunks{}, &CodecError{Op: "decode", Err: errors.New("record carries no schema version")}
	}
	return data, nil
}

func decodeChunk(buf []byte) (Chunk, error) {
	var chunk Chunk

	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return Chunk{}, &CodecError{Op: "decode chunk", Err: protowire.ParseError(n)}
		}
		buf = buf[n:]

		if typ != protowire.BytesType {
			return Chunk{}, &CodecError{
				Op:  "decode chunk",
				Err: fmt.Errorf("unexpected wire type %d for field %d", typ, num),
			}
		}

		raw, n := protowire.ConsumeBytes(buf)
		if n < 0 {
			return Chunk{}, &CodecError{Op: "decode chunk", Err: protowire.ParseError(n)}
		}
		buf = buf[n:]

		switch num {
		case chunkFieldID:
			chunk.ID = string(raw)
		case chunkFieldURL:
			chunk.URL = string(raw)
		case chunkFieldType:
			chunk.Type = string(raw)
		case chunkFieldTitle:
			chunk.Title = string(raw)
		case chunkFieldContent:
			chunk.Content = string(raw)
		case chunkFieldVector:
			if len(raw)%4 != 0 {
				return Chunk{}, &CodecError{Op: "decode chunk", Err: errors.New("vector bytes not a multiple of 4")}
			}
			chunk.Vector = make([]float32, 0, len(raw)/4)
			for len(raw) > 0 {
				bits, n := protowire.ConsumeFixed32(raw)
				if n < 0 {
					return Chunk{}, &CodecError{Op: "decode chunk", Err: protowire.ParseError(n)}
				}
				raw = raw[n:]
				chunk.Vector = append(chunk.Vector, math.Float32frombits(bits))
			}
		default:
			return Chunk{}, &CodecError{Op: "decode chunk", Err: fmt.Errorf("unexpected field %d", num)}
		}
	}
	return chunk, nil
}
