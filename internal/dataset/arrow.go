package dataset

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// VectorColumn is the column holding vectors in dataset files.
const VectorColumn = "vector"

// readArrow decodes an Arrow IPC stream whose "vector" column is a
// FixedSizeList of float32 or float64. Values are copied out of Arrow memory
// so the result outlives the reader.
func readArrow(ctx context.Context, r io.Reader, alloc memory.Allocator) ([][]float32, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(alloc))
	if err != nil {
		return nil, err
	}
	defer rdr.Release()

	idx := rdr.Schema().FieldIndices(VectorColumn)
	if len(idx) == 0 {
		return nil, fmt.Errorf("schema has no %q column", VectorColumn)
	}
	col := idx[0]

	var out [][]float32
	for rdr.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := rdr.Record()
		out, err = appendVectors(out, rec.Column(col))
		if err != nil {
			return nil, err
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func appendVectors(out [][]float32, col arrow.Array) ([][]float32, error) {
	list, ok := col.(*array.FixedSizeList)
	if !ok {
		return nil, fmt.Errorf("%q column must be a fixed size list, got %s", VectorColumn, col.DataType())
	}
	width := int(list.DataType().(*arrow.FixedSizeListType).Len())

	for row := 0; row < list.Len(); row++ {
		if list.IsNull(row) {
			return nil, fmt.Errorf("row %d has a null vector", row)
		}
	}

	start, _ := list.ValueOffsets(0)
	switch values := list.ListValues().(type) {
	case *array.Float32:
		raw := values.Float32Values()
		for row := 0; row < list.Len(); row++ {
			lo := int(start) + row*width
			vec := make([]float32, width)
			copy(vec, raw[lo:lo+width])
			out = append(out, vec)
		}
	case *array.Float64:
		raw := values.Float64Values()
		for row := 0; row < list.Len(); row++ {
			lo := int(start) + row*width
			vec := make([]float32, width)
			for j := range vec {
				vec[j] = float32(raw[lo+j])
			}
			out = append(out, vec)
		}
	default:
		return nil, fmt.Errorf("unsupported vector element type %s", list.ListValues().DataType())
	}
	return out, nil
}

// WriteArrow encodes vectors as an Arrow IPC stream with a single
// FixedSizeList<float32> "vector" column, batchSize rows per record.
func WriteArrow(w io.Writer, vectors [][]float32, batchSize int, alloc memory.Allocator) error {
	if len(vectors) == 0 {
		return fmt.Errorf("no vectors to write")
	}
	if batchSize <= 0 {
		batchSize = len(vectors)
	}
	dims := len(vectors[0])
	schema := arrow.NewSchema([]arrow.Field{
		{Name: VectorColumn, Type: arrow.FixedSizeListOf(int32(dims), arrow.PrimitiveTypes.Float32)},
	}, nil)

	wr := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(alloc))
	for lo := 0; lo < len(vectors); lo += batchSize {
		hi := min(lo+batchSize, len(vectors))
		if err := writeBatch(wr, schema, vectors[lo:hi], alloc); err != nil {
			_ = wr.Close()
			return err
		}
	}
	return wr.Close()
}

func writeBatch(wr *ipc.Writer, schema *arrow.Schema, vectors [][]float32, alloc memory.Allocator) error {
	b := array.NewRecordBuilder(alloc, schema)
	defer b.Release()

	listBuilder := b.Field(0).(*array.FixedSizeListBuilder)
	valueBuilder := listBuilder.ValueBuilder().(*array.Float32Builder)
	for _, v := range vectors {
		listBuilder.Append(true)
		valueBuilder.AppendValues(v, nil)
	}

	rec := b.NewRecord()
	defer rec.Release()
	return wr.Write(rec)
}
