package export

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/roach88/ssmgen/internal/datagen"
)

// ArrowExt is the extension of Arrow IPC round files.
const ArrowExt = "arrow"

// ArrowWriter writes rounds as Arrow IPC files.
type ArrowWriter struct {
	dir  string
	pool memory.Allocator
}

// NewArrowWriter creates a writer into dir. The folder is created on the
// first write.
func NewArrowWriter(dir string) *ArrowWriter {
	return &ArrowWriter{dir: dir, pool: memory.NewGoAllocator()}
}

// WriteRun writes the run metadata file.
func (w *ArrowWriter) WriteRun(_ context.Context, run datagen.RunInfo) error {
	return writeRunFile(w.dir, run)
}

// WriteRound writes one IPC file holding every training row of the round.
func (w *ArrowWriter) WriteRound(ctx context.Context, round datagen.Round) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	schema := arrowSchema(round)
	rec := w.buildRecord(schema, round)
	defer rec.Release()

	path := RoundPath(w.dir, round.Model, round.RunID, round.Index, ArrowExt)
	return writeAtomic(path, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("create %s: %w", tmp, err)
		}
		defer f.Close()

		fw, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(w.pool))
		if err != nil {
			return fmt.Errorf("arrow writer: %w", err)
		}
		if err := fw.Write(rec); err != nil {
			fw.Close()
			return fmt.Errorf("write round %d: %w", round.Index, err)
		}
		if err := fw.Close(); err != nil {
			return fmt.Errorf("close arrow writer: %w", err)
		}
		return f.Sync()
	})
}

func arrowSchema(round datagen.Round) *arrow.Schema {
	fields := []arrow.Field{
		{Name: ColParamSetID, Type: arrow.BinaryTypes.String},
		{Name: ColIndex, Type: arrow.PrimitiveTypes.Int64},
	}
	for _, name := range round.FeatureNames {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float32})
	}
	fields = append(fields, arrow.Field{Name: ColLabel, Type: arrow.PrimitiveTypes.Float32})

	md := arrow.NewMetadata(
		[]string{"model", "round", "run_id"},
		[]string{round.Model, fmt.Sprint(round.Index), round.RunID},
	)
	return arrow.NewSchema(fields, &md)
}

func (w *ArrowWriter) buildRecord(schema *arrow.Schema, round datagen.Round) arrow.Record {
	b := array.NewRecordBuilder(w.pool, schema)
	defer b.Release()

	ids := b.Field(0).(*array.StringBuilder)
	idx := b.Field(1).(*array.Int64Builder)
	nFeatures := len(round.FeatureNames)
	labels := b.Field(2 + nFeatures).(*array.Float32Builder)

	for _, rec := range round.Records {
		for i, row := range rec.Data {
			ids.Append(rec.ID)
			idx.Append(int64(rec.Index))
			for j := 0; j < nFeatures; j++ {
				b.Field(2 + j).(*array.Float32Builder).Append(row[j])
			}
			labels.Append(rec.Labels[i])
		}
	}
	return b.NewRecord()
}

// Table is a decoded round file.
type Table struct {
	Columns  []string
	Metadata map[string]string
	IDs      []string
	Indices  []int64

	// Features holds one row per training sample, in Columns order
	// between idx and label.
	Features [][]float32
	Labels   []float32
}

// ReadArrow decodes an Arrow IPC round file.
func ReadArrow(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("arrow reader: %w", err)
	}
	defer r.Close()

	schema := r.Schema()
	t := &Table{Metadata: make(map[string]string)}
	for _, field := range schema.Fields() {
		t.Columns = append(t.Columns, field.Name)
	}
	md := schema.Metadata()
	for i, k := range md.Keys() {
		t.Metadata[k] = md.Values()[i]
	}
	if len(t.Columns) < 3 {
		return nil, fmt.Errorf("%s: expected at least 3 columns, got %d", path, len(t.Columns))
	}
	nFeatures := len(t.Columns) - 3

	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("read record batch %d: %w", i, err)
		}
		ids := rec.Column(0).(*array.String)
		idx := rec.Column(1).(*array.Int64)
		labels := rec.Column(2 + nFeatures).(*array.Float32)
		for row := 0; row < int(rec.NumRows()); row++ {
			t.IDs = append(t.IDs, ids.Value(row))
			t.Indices = append(t.Indices, idx.Value(row))
			features := make([]float32, nFeatures)
			for j := range features {
				features[j] = rec.Column(2 + j).(*array.Float32).Value(row)
			}
			t.Features = append(t.Features, features)
			t.Labels = append(t.Labels, labels.Value(row))
		}
	}
	return t, nil
}
