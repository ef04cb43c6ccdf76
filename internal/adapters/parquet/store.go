package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/compress"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/metrics"
	"github.com/bft-labs/snapmerge/pkg/log"
)

const (
	rowGroupSize = 4096
	filePerm     = 0o644

	// pandas writes its index under this prefix; it is not a column.
	pandasIndexPrefix = "__index_level_"
)

// Store implements ports.DatasetStore on the local filesystem.
type Store struct {
	mem     memory.Allocator
	logger  log.Logger
	metrics *metrics.Metrics

	writeTable func(w io.Writer, table arrow.Table) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics records write outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates a Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		mem:    memory.NewGoAllocator(),
		logger: log.NoopLogger{},
	}
	s.writeTable = s.encode
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save replaces the file at path with ds.
func (s *Store) Save(ctx context.Context, path string, ds *domain.Dataset) (err error) {
	defer func() { s.metrics.ObserveStoreWrite(err) }()

	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "save", Path: path, Err: err}
	}
	table, err := s.toTable(ds)
	if err != nil {
		return &domain.StoreError{Op: "encode", Path: path, Err: err}
	}
	defer table.Release()

	write := func(w io.Writer) error { return s.writeTable(w, table) }
	if err := writeFileAtomic(path, filePerm, write); err != nil {
		return &domain.StoreError{Op: "save", Path: path, Err: err}
	}
	s.logger.Debug("dataset saved",
		log.String("path", path),
		log.String("dataset", ds.Schema.Name),
		log.Int("rows", ds.Len()))
	return nil
}

func (s *Store) encode(w io.Writer, table arrow.Table) error {
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Zstd))
	return pqarrow.WriteTable(table, w, rowGroupSize, props, pqarrow.DefaultWriterProps())
}

// Load reads the file at path. Declared columns keep their declared types
// and file values are coerced to them; columns only the file carries are
// added with the file's type. A missing file yields nil, nil.
func (s *Store) Load(ctx context.Context, path string, schema domain.Schema) (*domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &domain.StoreError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, &domain.StoreError{Op: "read", Path: path, Err: err}
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, s.mem)
	if err != nil {
		return nil, &domain.StoreError{Op: "read", Path: path, Err: err}
	}
	table, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, &domain.StoreError{Op: "read", Path: path, Err: err}
	}
	defer table.Release()

	ds, err := fromTable(table, schema)
	if err != nil {
		return nil, &domain.StoreError{Op: "decode", Path: path, Err: err}
	}
	return ds, nil
}

func arrowType(t domain.FieldType) arrow.DataType {
	switch t {
	case domain.TypeInt:
		return arrow.PrimitiveTypes.Int64
	case domain.TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case domain.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

func (s *Store) toTable(ds *domain.Dataset) (arrow.Table, error) {
	fields := make([]arrow.Field, len(ds.Schema.Fields))
	cols := make([]arrow.Array, 0, len(ds.Schema.Fields))
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for i, f := range ds.Schema.Fields {
		fields[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Type), Nullable: true}
		col, err := s.buildColumn(f, ds.Rows)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}

	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, cols, int64(len(ds.Rows)))
	defer rec.Release()
	return array.NewTableFromRecords(schema, []arrow.Record{rec}), nil
}

func (s *Store) buildColumn(f domain.Field, rows []domain.Record) (arrow.Array, error) {
	values := make([]any, len(rows))
	for i, r := range rows {
		v, err := domain.Coerce(f.Type, r[f.Name])
		if err != nil {
			return nil, fmt.Errorf("row %d column %s: %w", i, f.Name, err)
		}
		values[i] = v
	}

	switch f.Type {
	case domain.TypeInt:
		b := array.NewInt64Builder(s.mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(int64))
		}
		return b.NewArray(), nil
	case domain.TypeFloat:
		b := array.NewFloat64Builder(s.mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(float64))
		}
		return b.NewArray(), nil
	case domain.TypeBool:
		b := array.NewBooleanBuilder(s.mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(bool))
		}
		return b.NewArray(), nil
	default:
		b := array.NewStringBuilder(s.mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(string))
		}
		return b.NewArray(), nil
	}
}

func fromTable(table arrow.Table, declared domain.Schema) (*domain.Dataset, error) {
	n := int(table.NumRows())
	rows := make([]domain.Record, n)
	for i := range rows {
		rows[i] = make(domain.Record)
	}

	extra := domain.Schema{}
	sch := table.Schema()
	for c := 0; c < int(table.NumCols()); c++ {
		af := sch.Field(c)
		if strings.HasPrefix(af.Name, pandasIndexPrefix) {
			continue
		}
		fileType, err := fieldType(af.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", af.Name, err)
		}
		target, declaredCol := declared.Field(af.Name)
		if !declaredCol {
			target = domain.Field{Name: af.Name, Type: fileType}
			extra.Fields = append(extra.Fields, target)
		}

		offset := 0
		for _, chunk := range table.Column(c).Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				if chunk.IsNull(i) {
					continue
				}
				v, err := domain.Coerce(target.Type, value(chunk, i))
				if err != nil {
					return nil, fmt.Errorf("row %d column %s: %w", offset+i, af.Name, err)
				}
				rows[offset+i][af.Name] = v
			}
			offset += chunk.Len()
		}
	}

	schema, err := declared.Union(extra)
	if err != nil {
		return nil, err
	}
	return &domain.Dataset{Schema: schema, Rows: rows}, nil
}

func fieldType(t arrow.DataType) (domain.FieldType, error) {
	switch t.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return domain.TypeString, nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return domain.TypeInt, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return domain.TypeFloat, nil
	case arrow.BOOL:
		return domain.TypeBool, nil
	default:
		return 0, fmt.Errorf("%w: unsupported parquet type %s", domain.ErrFieldType, t)
	}
}

func value(arr arrow.Array, i int) any {
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Boolean:
		return a.Value(i)
	default:
		return nil
	}
}
