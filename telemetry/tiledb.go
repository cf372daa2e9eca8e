package telemetry

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	stgpsr "github.com/yuin/stagparser"
)

// ErrCreateArray mirrors sixy6e-go-gsf's per-array sentinel errors
// (ErrCreateAttitudeTdb, ErrCreateSvpTdb, ...), collapsed to one
// sentinel since this package persists a single array shape.
var ErrCreateArray = errors.New("error creating telemetry tiledb array")

// ErrWriteArray mirrors ErrWriteAttitudeTdb/ErrWriteSvpTdb.
var ErrWriteArray = errors.New("error writing telemetry tiledb array")

// FrameSeries accumulates FrameRecords column-wise, the same shape
// Attitude/SVP's parallel-slice structs use, so the whole run can be
// flushed to TileDB in one dense write. Field tags mirror
// sixy6e-go-gsf's `tiledb:"dtype=...,ftype=attr" filters:"zstd(level=16)"`
// convention; weather and the two boolean flags are stored as int8
// codes since TileDB has no native bool attribute in that convention.
type FrameSeries struct {
	Frame         []int64   `tiledb:"dtype=int64,ftype=attr" filters:"zstd(level=16)"`
	TimestampUnix []int64   `tiledb:"dtype=int64,ftype=attr" filters:"zstd(level=16)"`
	WeatherCode   []int8    `tiledb:"dtype=int8,ftype=attr" filters:"zstd(level=16)"`
	RangeM        []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	PathLossDB    []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	FadeValue     []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	RxPowerW      []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	SNRdB         []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	BER           []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	FECCorrected  []int64   `tiledb:"dtype=int64,ftype=attr" filters:"zstd(level=16)"`
	FECFailed     []int8    `tiledb:"dtype=int8,ftype=attr" filters:"zstd(level=16)"`
	TrackerAz     []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	TrackerEl     []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	Misaligned    []int8    `tiledb:"dtype=int8,ftype=attr" filters:"zstd(level=16)"`
}

var weatherCodes = map[string]int8{"clear": 0, "fog": 1, "rain": 2, "snow": 3, "high_turbulence": 4}

func boolCode(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

// Append folds one FrameRecord onto the series.
func (s *FrameSeries) Append(r FrameRecord) {
	s.Frame = append(s.Frame, int64(r.Frame))
	s.TimestampUnix = append(s.TimestampUnix, r.TimestampUnix)
	s.WeatherCode = append(s.WeatherCode, weatherCodes[r.Weather])
	s.RangeM = append(s.RangeM, r.RangeM)
	s.PathLossDB = append(s.PathLossDB, r.PathLossDB)
	s.FadeValue = append(s.FadeValue, r.FadeValue)
	s.RxPowerW = append(s.RxPowerW, r.RxPowerW)
	s.SNRdB = append(s.SNRdB, r.SNRdB)
	s.BER = append(s.BER, r.BER)
	s.FECCorrected = append(s.FECCorrected, int64(r.FECCorrected))
	s.FECFailed = append(s.FECFailed, boolCode(r.FECFailed))
	s.TrackerAz = append(s.TrackerAz, r.TrackerAz)
	s.TrackerEl = append(s.TrackerEl, r.TrackerEl)
	s.Misaligned = append(s.Misaligned, boolCode(r.Misaligned))
}

// schemaAttrs walks FrameSeries' exported fields via stagparser, the
// same reflect.TypeOf + stgpsr.ParseStruct(t, "tiledb"/"filters") loop
// Attitude.schemaAttrs runs, generalized to this package's own
// createAttr instead of importing another module's unexported helper.
func schemaAttrs(schema *tiledb.ArraySchema, ctx *tiledb.Context) error {
	s := &FrameSeries{}
	values := reflect.ValueOf(s).Elem()
	types := values.Type()

	filterDefs, _ := stgpsr.ParseStruct(s, "filters")
	tdbDefs, _ := stgpsr.ParseStruct(s, "tiledb")

	for i := 0; i < values.NumField(); i++ {
		name := types.Field(i).Name

		fieldTdbDefs := make(map[string]stgpsr.Definition)
		for _, v := range tdbDefs[name] {
			fieldTdbDefs[v.Name()] = v
		}
		def, ok := fieldTdbDefs["ftype"]
		if !ok {
			return errors.Join(ErrCreateArray, fmt.Errorf("field %s: ftype tag not found", name))
		}
		ftype, _ := def.Attribute("ftype")
		if ftype == "dim" {
			continue
		}

		if err := createAttr(name, filterDefs[name], fieldTdbDefs, schema, ctx); err != nil {
			return errors.Join(ErrCreateArray, err)
		}
	}
	return nil
}

// createAttr builds one TileDB attribute plus its zstd filter pipeline
// from parsed struct tags, a narrowed copy of sixy6e-go-gsf/tiledb.go's
// CreateAttr limited to the dtype/filter combinations FrameSeries
// actually uses (int64, int8, float64, zstd).
func createAttr(fieldName string, filterDefs []stgpsr.Definition, tiledbDefs map[string]stgpsr.Definition, schema *tiledb.ArraySchema, ctx *tiledb.Context) error {
	def, ok := tiledbDefs["dtype"]
	if !ok {
		return fmt.Errorf("field %s: dtype tag not found", fieldName)
	}
	dtype, _ := def.Attribute("dtype")

	var tdbDtype tiledb.Datatype
	switch dtype {
	case "int8":
		tdbDtype = tiledb.TILEDB_INT8
	case "int64":
		tdbDtype = tiledb.TILEDB_INT64
	case "float64":
		tdbDtype = tiledb.TILEDB_FLOAT64
	default:
		return fmt.Errorf("field %s: unsupported dtype %v", fieldName, dtype)
	}

	attrFilts, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return err
	}
	defer attrFilts.Free()

	for _, filter := range filterDefs {
		if filter.Name() != "zstd" {
			continue
		}
		level, ok := filter.Attribute("level")
		if !ok {
			return fmt.Errorf("field %s: zstd level not defined", fieldName)
		}
		filt, err := ZstdFilter(ctx, int32(level.(int64)))
		if err != nil {
			return err
		}
		defer filt.Free()
		if err := attrFilts.AddFilter(filt); err != nil {
			return err
		}
	}

	attr, err := tiledb.NewAttribute(ctx, fieldName, tdbDtype)
	if err != nil {
		return err
	}
	defer attr.Free()

	if err := attr.SetFilterList(attrFilts); err != nil {
		return err
	}
	return schema.AddAttributes(attr)
}

// ZstdFilter mirrors sixy6e-go-gsf/tiledb.go's helper of the same name.
func ZstdFilter(ctx *tiledb.Context, level int32) (*tiledb.Filter, error) {
	filt, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_ZSTD)
	if err != nil {
		return nil, err
	}
	if err := filt.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
		filt.Free()
		return nil, err
	}
	return filt, nil
}

// buildArray constructs the dense __tiledb_rows-indexed schema and
// empty array on disk, the same dimension/domain/schema sequence
// Attitude.attitude_tiledb_array runs.
func buildArray(fileURI string, ctx *tiledb.Context, nrows uint64) error {
	tileSz := uint64(math.Min(50000, float64(nrows)))

	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	defer domain.Free()

	dim, err := tiledb.NewDimension(ctx, "__tiledb_rows", tiledb.TILEDB_UINT64, []uint64{0, nrows - 1}, tileSz)
	if err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	defer dim.Free()

	dimFilters, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	defer dimFilters.Free()

	ddFilt, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_POSITIVE_DELTA)
	if err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	defer ddFilt.Free()

	zstdFilt, err := ZstdFilter(ctx, 16)
	if err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	defer zstdFilt.Free()

	if err := dimFilters.AddFilter(ddFilt); err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	if err := dimFilters.AddFilter(zstdFilt); err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	if err := dim.SetFilterList(dimFilters); err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	if err := domain.AddDimensions(dim); err != nil {
		return errors.Join(ErrCreateArray, err)
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_DENSE)
	if err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	defer schema.Free()

	if err := schema.SetDomain(domain); err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	if err := schema.SetCellOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	if err := schema.SetTileOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	if err := schemaAttrs(schema, ctx); err != nil {
		return err
	}

	array, err := tiledb.NewArray(ctx, fileURI)
	if err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	defer array.Free()

	if err := array.Create(schema); err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	return nil
}

// ToTileDB persists the whole series as a dense TileDB array in one
// query, the same build-schema/open-write/SetDataBuffer-per-field/
// subarray/Submit/Finalize flow as Attitude.ToTileDB.
func (s *FrameSeries) ToTileDB(fileURI string, ctx *tiledb.Context) error {
	nrows := uint64(len(s.Frame))
	if nrows == 0 {
		return errors.Join(ErrWriteArray, fmt.Errorf("no frames recorded"))
	}

	if err := buildArray(fileURI, ctx, nrows); err != nil {
		return err
	}

	array, err := tiledb.NewArray(ctx, fileURI)
	if err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	defer array.Free()

	if err := array.Open(tiledb.TILEDB_WRITE); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	defer array.Close()

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	defer query.Free()

	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrWriteArray, err)
	}

	buffers := map[string]any{
		"Frame":         s.Frame,
		"TimestampUnix": s.TimestampUnix,
		"WeatherCode":   s.WeatherCode,
		"RangeM":        s.RangeM,
		"PathLossDB":    s.PathLossDB,
		"FadeValue":     s.FadeValue,
		"RxPowerW":      s.RxPowerW,
		"SNRdB":         s.SNRdB,
		"BER":           s.BER,
		"FECCorrected":  s.FECCorrected,
		"FECFailed":     s.FECFailed,
		"TrackerAz":     s.TrackerAz,
		"TrackerEl":     s.TrackerEl,
		"Misaligned":    s.Misaligned,
	}
	for name, data := range buffers {
		if _, err := query.SetDataBuffer(name, data); err != nil {
			return errors.Join(ErrWriteArray, fmt.Errorf("field %s: %w", name, err))
		}
	}

	subarr, err := array.NewSubarray()
	if err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	defer subarr.Free()

	rng := tiledb.MakeRange(uint64(0), nrows-1)
	if err := subarr.AddRangeByName("__tiledb_rows", rng); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	if err := query.SetSubarray(subarr); err != nil {
		return errors.Join(ErrWriteArray, err)
	}

	if err := query.Submit(); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	return query.Finalize()
}
