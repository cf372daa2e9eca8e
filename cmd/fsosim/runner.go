package main

import (
	"fmt"
	"math"
	"time"

	"github.com/fso-sim/fsolink/channel"
	"github.com/fso-sim/fsolink/config"
	"github.com/fso-sim/fsolink/fso"
	"github.com/fso-sim/fsolink/ldpc"
	"github.com/fso-sim/fsolink/logx"
	"github.com/fso-sim/fsolink/modulation"
	"github.com/fso-sim/fsolink/reedsolomon"
	"github.com/fso-sim/fsolink/telemetry"
	"github.com/fso-sim/fsolink/tracker"
)

// fecCodec unifies reedsolomon.Codec and ldpc.Codec behind the
// frame-level shape a run loop needs: encode k symbols/bits to n,
// decode n back to k plus a correction count and a hard pass/fail.
type fecCodec struct {
	n, k       int
	symbolBits int // 8 for RS (byte symbols), 1 for LDPC (raw bits)

	rs   *reedsolomon.Codec
	ldpc *ldpc.Codec
}

func newFECCodec(cfg config.FEC, log logx.Logger) (*fecCodec, error) {
	switch cfg.Kind {
	case config.FECReedSolomon:
		rs, err := reedsolomon.New(cfg.N, cfg.K, reedsolomon.Config{
			FCR:           cfg.FCR,
			SymbolSize:    cfg.SymbolSize,
			PrimitivePoly: cfg.PrimitivePoly,
			Logger:        log,
		})
		if err != nil {
			return nil, err
		}
		return &fecCodec{n: cfg.N, k: cfg.K, symbolBits: 8, rs: rs}, nil
	case config.FECLDPC:
		c, err := ldpc.New(cfg.N, cfg.K, ldpc.Config{MaxIterations: cfg.MaxIterations, Logger: log})
		if err != nil {
			return nil, err
		}
		return &fecCodec{n: cfg.N, k: cfg.K, symbolBits: 1, ldpc: c}, nil
	case config.FECNone:
		return &fecCodec{n: cfg.K, k: cfg.K, symbolBits: 8}, nil
	default:
		return nil, fmt.Errorf("unknown fec kind %q", cfg.Kind)
	}
}

// Encode turns k symbols/bits of payload into n coded symbols/bits.
func (f *fecCodec) Encode(payload []int) ([]int, error) {
	switch {
	case f.rs != nil:
		return f.rs.Encode(payload)
	case f.ldpc != nil:
		return f.ldpc.Encode(payload)
	default:
		out := make([]int, len(payload))
		copy(out, payload)
		return out, nil
	}
}

// Decode recovers k symbols/bits from n received symbols/bits, along
// with how many errors were corrected and whether decoding failed.
func (f *fecCodec) Decode(received []int) (payload []int, corrected int, failed bool, err error) {
	switch {
	case f.rs != nil:
		out, stats, err := f.rs.Decode(received)
		if err != nil {
			return nil, 0, false, err
		}
		return out, stats.Corrected, stats.Uncorrectable, nil
	case f.ldpc != nil:
		out, corrected, converged, err := f.ldpc.Decode(received)
		if err != nil {
			return nil, 0, false, err
		}
		return out[:f.k], corrected, !converged, nil
	default:
		out := make([]int, f.k)
		copy(out, received[:f.k])
		return out, 0, false, nil
	}
}

func newModulator(cfg config.Modulation) (modulation.Modulator, error) {
	switch cfg.Kind {
	case config.ModOOK:
		return modulation.NewOOK(), nil
	case config.ModPPM:
		return modulation.NewPPM(cfg.Order)
	case config.ModDPSK:
		return modulation.NewDPSK(), nil
	default:
		return nil, fmt.Errorf("unknown modulation kind %q", cfg.Kind)
	}
}

// fillPayload fills n entries with pseudo-random 0/1 (or 0-255 for
// byte symbols) payload values, deterministic per-frame via the
// scenario's shared RNG so a run is reproducible end to end.
func fillPayload(rng *fso.DefaultRNG, n int, symbolBits int) []int {
	out := make([]int, n)
	max := 1 << symbolBits
	for i := range out {
		out[i] = rng.IntN(max)
	}
	return out
}

func bitErrors(a, b []int) int {
	n := 0
	for i := range a {
		if i >= len(b) || a[i] != b[i] {
			n++
		}
	}
	return n
}

// symbolsToBytes packs symbolBits-wide ints MSB-first into bytes, the
// wire representation a Modulator.Modulate call consumes.
func symbolsToBytes(symbols []int, symbolBits int) []byte {
	bitLen := len(symbols) * symbolBits
	out := make([]byte, (bitLen+7)/8)
	bitPos := 0
	for _, s := range symbols {
		for b := symbolBits - 1; b >= 0; b-- {
			if (s>>uint(b))&1 == 1 {
				out[bitPos/8] |= 1 << uint(7-bitPos%8)
			}
			bitPos++
		}
	}
	return out
}

func bytesToSymbols(data []byte, count, symbolBits int) []int {
	out := make([]int, count)
	bitPos := 0
	for i := 0; i < count; i++ {
		v := 0
		for b := 0; b < symbolBits; b++ {
			bit := (data[bitPos/8] >> uint(7-bitPos%8)) & 1
			v = (v << 1) | int(bit)
			bitPos++
		}
		out[i] = v
	}
	return out
}

// Simulator wires every core package into one end-to-end frame loop:
// FEC encode, modulate, propagate through the atmospheric channel,
// demodulate, FEC decode, and drive the beam tracker off the channel's
// own fade as a stand-in received-signal-strength probe.
type Simulator struct {
	scn config.Scenario
	log logx.Logger

	rng   *fso.DefaultRNG
	ch    *channel.Model
	fec   *fecCodec
	modem modulation.Modulator
	trk   *tracker.BeamTracker

	acc *telemetry.Accumulator
}

// NewSimulator builds every component from a loaded Scenario.
func NewSimulator(scn config.Scenario, log logx.Logger) (*Simulator, error) {
	rng := fso.NewRNG(scn.Seed, 0)

	ch, err := channel.New(channel.Params{
		DistanceM:    scn.Link.DistanceM,
		WavelengthNM: scn.Link.WavelengthNM,
		BeamDivRad:   scn.Link.BeamDivRad,
		Weather:      parseWeather(scn.Atmosphere.Weather),
		Cn2:          scn.Atmosphere.Cn2,
		TemperatureC: scn.Atmosphere.TemperatureC,
		Humidity:     scn.Atmosphere.Humidity,
		VisibilityKM: scn.Atmosphere.VisibilityKM,
		RainRateMMH:  scn.Atmosphere.RainRateMMH,
		SnowRateMMH:  scn.Atmosphere.SnowRateMMH,
		CorrelationS: scn.Atmosphere.CorrelationS,
	}, rng)
	if err != nil {
		return nil, fmt.Errorf("channel: %w", err)
	}
	ch.UpdateCalculations()

	fec, err := newFECCodec(scn.FEC, log)
	if err != nil {
		return nil, fmt.Errorf("fec: %w", err)
	}

	modem, err := newModulator(scn.Modulation)
	if err != nil {
		return nil, fmt.Errorf("modulation: %w", err)
	}

	trk, err := tracker.New(0, 0, -0.3, 0.3, -0.3, 0.3, 61, 61, tracker.Config{
		StepInit:              scn.Tracker.StepInitCfg,
		StepMin:               scn.Tracker.StepMinCfg,
		StepMax:               scn.Tracker.StepMaxCfg,
		Gamma:                 scn.Tracker.Gamma,
		Beta:                  scn.Tracker.Beta,
		Epsilon:               scn.Tracker.Epsilon,
		ConvergenceThreshold:  scn.Tracker.ConvergenceThreshold,
		MisalignmentThreshold: scn.Tracker.MisalignmentThreshold,
		KP:                    scn.Tracker.KP,
		KI:                    scn.Tracker.KI,
		KD:                    scn.Tracker.KD,
		ILimit:                scn.Tracker.ILimit,
		UpdateRateHz:          scn.Tracker.UpdateRateHz,
		Logger:                log,
	})
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}

	return &Simulator{
		scn: scn, log: log,
		rng: rng, ch: ch, fec: fec, modem: modem, trk: trk,
		acc: telemetry.NewAccumulator(scn.Name),
	}, nil
}

func parseWeather(s string) channel.Weather {
	switch s {
	case "fog":
		return channel.Fog
	case "rain":
		return channel.Rain
	case "snow":
		return channel.Snow
	case "high_turbulence":
		return channel.HighTurbulence
	default:
		return channel.Clear
	}
}

// RunFrame executes one frame end to end and returns its telemetry
// record.
func (s *Simulator) RunFrame(frameIdx int, dt time.Duration) telemetry.FrameRecord {
	payload := fillPayload(s.rng, s.fec.k, s.fec.symbolBits)
	coded, err := s.fec.Encode(payload)
	if err != nil {
		s.log.Errorf("sim", "frame %d: encode: %v", frameIdx, err)
	}

	wire := symbolsToBytes(coded, s.fec.symbolBits)
	symbols := s.modem.Modulate(wire)

	pTx := s.scn.TxPowerW
	pRx := s.ch.ApplyEffects(pTx, s.scn.NoisePowerW, dt.Seconds())
	snrLinear := pRx / math.Max(s.scn.NoisePowerW, 1e-18)
	snrDB := 10 * math.Log10(math.Max(snrLinear, 1e-18))

	faded := make([]complex128, len(symbols))
	scale := math.Sqrt(math.Max(pRx/math.Max(pTx, 1e-18), 0))
	for i, sym := range symbols {
		faded[i] = sym * complex(scale, 0)
	}

	demod, err := s.modem.Demodulate(faded, snrDB)
	if err != nil {
		s.log.Errorf("sim", "frame %d: demodulate: %v", frameIdx, err)
	}
	recovered := bytesToSymbols(demod, len(coded), s.fec.symbolBits)

	decoded, corrected, failed, err := s.fec.Decode(recovered)
	if err != nil {
		s.log.Errorf("sim", "frame %d: decode: %v", frameIdx, err)
		decoded = make([]int, s.fec.k)
	}

	errs := bitErrors(payload, decoded)
	bitsSent := s.fec.k * s.fec.symbolBits

	s.trk.Update(s.ch.LastFade())
	s.trk.CheckMisalignment(s.ch.LastFade())

	rec := telemetry.FrameRecord{
		Frame:         frameIdx,
		TimestampUnix: 0,
		Weather:       s.scn.Atmosphere.Weather,
		RangeM:        s.scn.Link.DistanceM,
		PathLossDB:    s.ch.PathLossDB(),
		FadeValue:     s.ch.LastFade(),
		RxPowerW:      pRx,
		SNRdB:         snrDB,
		BitErrors:     errs,
		BitsSent:      bitsSent,
		BER:           float64(errs) / float64(bitsSent),
		FECDetected:   corrected,
		FECCorrected:  corrected,
		FECFailed:     failed,
		TrackerSignal: s.ch.LastFade(),
		Misaligned:    s.trk.IsMisaligned(),
	}
	rec.TrackerAz, rec.TrackerEl = s.trk.Position()

	s.acc.Add(rec)
	return rec
}

// Summary returns the accumulated run summary.
func (s *Simulator) Summary() telemetry.Summary {
	return s.acc.Summary(s.trk.ScanCount(), s.trk.UpdateCount(), s.trk.IsConverged())
}
