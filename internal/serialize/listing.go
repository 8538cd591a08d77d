// Package serialize encodes the service listing returned by ListFlights as
// zstd-compressed Arrow IPC.
package serialize

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/klauspost/compress/zstd"
)

// Entry kinds.
const (
	KindTool  = "tool"
	KindTable = "table"
)

// Entry is one row of the listing.
type Entry struct {
	Kind        string
	Name        string
	Description string
}

// ListingSchema is the Arrow schema of the serialized listing.
var ListingSchema = arrow.NewSchema([]arrow.Field{
	{Name: "kind", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "description", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// SerializeListing writes entries as a single-record Arrow IPC stream.
func SerializeListing(entries []Entry, allocator memory.Allocator) ([]byte, error) {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	builder := array.NewRecordBuilder(allocator, ListingSchema)
	defer builder.Release()

	kinds := builder.Field(0).(*array.StringBuilder)
	names := builder.Field(1).(*array.StringBuilder)
	descriptions := builder.Field(2).(*array.StringBuilder)
	for _, e := range entries {
		kinds.Append(e.Kind)
		names.Append(e.Name)
		if e.Description == "" {
			descriptions.AppendNull()
		} else {
			descriptions.Append(e.Description)
		}
	}

	record := builder.NewRecordBatch()
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(ListingSchema), ipc.WithAllocator(allocator))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write IPC record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return buf.Bytes(), nil
}

// CompressListing compresses a serialized listing with zstd. An empty listing
// compresses to an empty payload.
func CompressListing(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// ReadListing reverses CompressListing and SerializeListing.
func ReadListing(compressed []byte, allocator memory.Allocator) ([]Entry, error) {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	if len(compressed) == 0 {
		return nil, nil
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	data, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress listing: %w", err)
	}
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to open IPC reader: %w", err)
	}
	defer reader.Release()

	var out []Entry
	for reader.Next() {
		rec := reader.RecordBatch()
		kinds := rec.Column(0).(*array.String)
		names := rec.Column(1).(*array.String)
		descriptions := rec.Column(2).(*array.String)
		for i := 0; i < int(rec.NumRows()); i++ {
			e := Entry{Kind: kinds.Value(i), Name: names.Value(i)}
			if descriptions.IsValid(i) {
				e.Description = descriptions.Value(i)
			}
			out = append(out, e)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to read IPC stream: %w", err)
	}
	return out, nil
}
