// Package telemetry persists a simulation run's per-frame metrics and
// end-of-run summary: CSV and TileDB time series, a JSON summary, and
// run-start calendar/date-naming helpers. Grounded on
// doismellburning-samoyed/src/log.go's log_write (CSV header-once,
// append-mode writer) and sixy6e-go-gsf/json.go's WriteJson/
// JsonIndentDumps. The core (channel/tracker/reedsolomon/ldpc/
// modulation) never imports this package — it only consumes the values
// a run loop reports into a FrameRecord.
package telemetry

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// FrameRecord is one frame's worth of link metrics, the unit this
// package persists (spec.md §7's per-frame report fields).
type FrameRecord struct {
	Frame         int
	TimestampUnix int64
	Weather       string
	RangeM        float64
	PathLossDB    float64
	FadeValue     float64
	RxPowerW      float64
	SNRdB         float64
	BitErrors     int
	BitsSent      int
	BER           float64
	FECDetected   int
	FECCorrected  int
	FECFailed     bool
	TrackerAz     float64
	TrackerEl     float64
	TrackerSignal float64
	Misaligned    bool
}

var csvHeader = []string{
	"frame", "utime", "weather", "range_m", "path_loss_db", "fade",
	"rx_power_w", "snr_db", "bit_errors", "bits_sent", "ber",
	"fec_detected", "fec_corrected", "fec_failed",
	"tracker_az", "tracker_el", "tracker_signal", "misaligned",
}

func (r FrameRecord) row() []string {
	return []string{
		strconv.Itoa(r.Frame),
		strconv.FormatInt(r.TimestampUnix, 10),
		r.Weather,
		strconv.FormatFloat(r.RangeM, 'g', -1, 64),
		strconv.FormatFloat(r.PathLossDB, 'g', -1, 64),
		strconv.FormatFloat(r.FadeValue, 'g', -1, 64),
		strconv.FormatFloat(r.RxPowerW, 'g', -1, 64),
		strconv.FormatFloat(r.SNRdB, 'g', -1, 64),
		strconv.Itoa(r.BitErrors),
		strconv.Itoa(r.BitsSent),
		strconv.FormatFloat(r.BER, 'g', -1, 64),
		strconv.Itoa(r.FECDetected),
		strconv.Itoa(r.FECCorrected),
		strconv.FormatBool(r.FECFailed),
		strconv.FormatFloat(r.TrackerAz, 'g', -1, 64),
		strconv.FormatFloat(r.TrackerEl, 'g', -1, 64),
		strconv.FormatFloat(r.TrackerSignal, 'g', -1, 64),
		strconv.FormatBool(r.Misaligned),
	}
}

// CSVWriter appends FrameRecords to a CSV file, writing the header only
// when the file does not already exist, the same already_there check
// log_write uses before deciding whether to emit a header line.
type CSVWriter struct {
	f *os.File
	w *csv.Writer
}

// NewCSVWriter opens path for append, creating it and writing the
// header if it doesn't yet exist.
func NewCSVWriter(path string) (*CSVWriter, error) {
	_, statErr := os.Stat(path)
	alreadyThere := statErr == nil

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("telemetry.NewCSVWriter: %w", err)
	}

	w := csv.NewWriter(f)
	if !alreadyThere {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("telemetry.NewCSVWriter: writing header: %w", err)
		}
		w.Flush()
	}
	return &CSVWriter{f: f, w: w}, nil
}

// Write appends one record and flushes.
func (c *CSVWriter) Write(r FrameRecord) error {
	if err := c.w.Write(r.row()); err != nil {
		return fmt.Errorf("telemetry.CSVWriter.Write: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}

// Close closes the underlying file.
func (c *CSVWriter) Close() error { return c.f.Close() }

// Summary is the end-of-run JSON report (spec.md §7).
type Summary struct {
	ScenarioName   string  `json:"scenario_name"`
	Frames         int     `json:"frames"`
	MeanBER        float64 `json:"mean_ber"`
	MeanSNRdB      float64 `json:"mean_snr_db"`
	MeanRxPowerW   float64 `json:"mean_rx_power_w"`
	FECFailures    int     `json:"fec_failures"`
	FECCorrected   int     `json:"fec_total_corrected"`
	MisalignEvents int     `json:"misalignment_events"`
	TrackerScans   int     `json:"tracker_scans"`
	TrackerUpdates int     `json:"tracker_updates"`
	Converged      bool    `json:"tracker_converged"`
}

// WriteSummary serialises a Summary as indented JSON, the
// json.MarshalIndent(data, "", "    ") convention of
// sixy6e-go-gsf/json.go's JsonIndentDumps, generalized from that
// helper's TileDB-VFS-backed writer to a plain local file since a run
// summary has no object-store destination to abstract over.
func WriteSummary(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("telemetry.WriteSummary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("telemetry.WriteSummary: %w", err)
	}
	return nil
}

// Accumulator folds FrameRecords into a Summary incrementally, so a run
// loop need not retain every frame to report final statistics.
type Accumulator struct {
	scenarioName string
	n            int
	sumBER       float64
	sumSNR       float64
	sumRx        float64
	fecFailures  int
	fecCorrected int
	misaligns    int
	wasMisaligned bool
}

// NewAccumulator starts an Accumulator for the named scenario.
func NewAccumulator(scenarioName string) *Accumulator {
	return &Accumulator{scenarioName: scenarioName}
}

// Add folds one FrameRecord's statistics in.
func (a *Accumulator) Add(r FrameRecord) {
	a.n++
	a.sumBER += r.BER
	a.sumSNR += r.SNRdB
	a.sumRx += r.RxPowerW
	a.fecCorrected += r.FECCorrected
	if r.FECFailed {
		a.fecFailures++
	}
	if r.Misaligned && !a.wasMisaligned {
		a.misaligns++
	}
	a.wasMisaligned = r.Misaligned
}

// Summary builds the final Summary, folding in the tracker's own
// counters since those aren't carried per-frame.
func (a *Accumulator) Summary(trackerScans, trackerUpdates int, converged bool) Summary {
	s := Summary{
		ScenarioName:   a.scenarioName,
		Frames:         a.n,
		FECFailures:    a.fecFailures,
		FECCorrected:   a.fecCorrected,
		MisalignEvents: a.misaligns,
		TrackerScans:   trackerScans,
		TrackerUpdates: trackerUpdates,
		Converged:      converged,
	}
	if a.n > 0 {
		s.MeanBER = a.sumBER / float64(a.n)
		s.MeanSNRdB = a.sumSNR / float64(a.n)
		s.MeanRxPowerW = a.sumRx / float64(a.n)
	}
	return s
}
