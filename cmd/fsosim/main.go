// Command fsosim drives the FSO link simulation core end to end from a
// scenario file: run frames, benchmark FEC/modem throughput, or drive
// the beam tracker against a synthetic field. Grounded on
// sixy6e-go-gsf/cmd/main.go's cli.App{Commands: [...]} structure (one
// *cli.Command per subcommand, flags mirrored onto cCtx accessors
// inside Action) and its convert_gsf_list's pond-pool-with-
// signal.NotifyContext pattern for the bench command's parallel path.
package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	"github.com/alitto/pond"
	"github.com/urfave/cli/v2"

	"github.com/fso-sim/fsolink/config"
	"github.com/fso-sim/fsolink/geo"
	"github.com/fso-sim/fsolink/logx"
	"github.com/fso-sim/fsolink/telemetry"
)

func loadScenario(cCtx *cli.Context) (config.Scenario, error) {
	path := cCtx.String("scenario")
	if path == "" {
		return config.Defaults(), nil
	}
	return config.Load(path)
}

func runScenario(cCtx *cli.Context) error {
	scn, err := loadScenario(cCtx)
	if err != nil {
		return err
	}
	if n := cCtx.Int("frames"); n > 0 {
		scn.Frames = n
	}

	if cCtx.IsSet("target-lat") {
		origin := geo.Station{LatDeg: cCtx.Float64("origin-lat"), LonDeg: cCtx.Float64("origin-lon"), AltM: cCtx.Float64("origin-alt")}
		target := geo.Station{LatDeg: cCtx.Float64("target-lat"), LonDeg: cCtx.Float64("target-lon"), AltM: cCtx.Float64("target-alt")}
		rangeM, _, _ := geo.LineOfSight(origin, target)
		scn.Link.DistanceM = rangeM
	}

	level := logx.LevelInfo
	if cCtx.Bool("verbose") {
		level = logx.LevelDebug
	}
	logger := logx.NewStderr(level)

	sim, err := NewSimulator(scn, logger)
	if err != nil {
		return err
	}

	outdir := cCtx.String("outdir")
	if outdir == "" {
		outdir = "."
	}

	var csvWriter *telemetry.CSVWriter
	if outdir != "" {
		csvWriter, err = telemetry.NewCSVWriter(filepath.Join(outdir, scn.Name+"-frames.csv"))
		if err != nil {
			return err
		}
		defer csvWriter.Close()
	}

	var series telemetry.FrameSeries
	dt := time.Second / time.Duration(maxInt(int(scn.Tracker.UpdateRateHz), 1))

	for i := 0; i < scn.Frames; i++ {
		rec := sim.RunFrame(i, dt)
		if csvWriter != nil {
			if err := csvWriter.Write(rec); err != nil {
				return err
			}
		}
		series.Append(rec)
	}

	summary := sim.Summary()
	if err := telemetry.WriteSummary(filepath.Join(outdir, scn.Name+"-summary.json"), summary); err != nil {
		return err
	}
	log.Printf("run complete: frames=%d mean_ber=%.3e mean_snr_db=%.2f fec_failures=%d",
		summary.Frames, summary.MeanBER, summary.MeanSNRdB, summary.FECFailures)

	if uri := cCtx.String("tiledb-uri"); uri != "" {
		tdbConfig, err := tiledb.NewConfig()
		if err != nil {
			return err
		}
		defer tdbConfig.Free()
		ctx, err := tiledb.NewContext(tdbConfig)
		if err != nil {
			return err
		}
		defer ctx.Free()
		if err := series.ToTileDB(uri, ctx); err != nil {
			return err
		}
		log.Printf("wrote telemetry array to %s", uri)
	}

	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// benchScenario measures encode/decode throughput for the configured
// FEC+modem pair by running N frames across a pond pool sized to
// 2*NumCPU, the same fixed-pool sizing convert_gsf_list uses, plus the
// signal.NotifyContext cancellation that file's pool omits.
func benchScenario(cCtx *cli.Context) error {
	scn, err := loadScenario(cCtx)
	if err != nil {
		return err
	}
	n := cCtx.Int("frames")
	if n <= 0 {
		n = 1000
	}

	logger := logx.Null
	sim, err := NewSimulator(scn, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	workers := runtime.NumCPU() * 2
	pool := pond.New(workers, 0, pond.MinWorkers(workers), pond.Context(ctx))

	start := time.Now()
	for i := 0; i < n; i++ {
		idx := i
		pool.Submit(func() {
			sim.RunFrame(idx, 0)
		})
	}
	pool.StopAndWait()
	elapsed := time.Since(start)

	summary := sim.Summary()
	fmt.Printf("frames=%d elapsed=%s frames/sec=%.1f mean_ber=%.3e\n",
		n, elapsed, float64(n)/elapsed.Seconds(), summary.MeanBER)
	return nil
}

// trackScenario drives the beam tracker against a synthetic Gaussian
// signal field for a fixed number of updates, printing convergence
// progress — useful for tuning Config gains without a full link run.
func trackScenario(cCtx *cli.Context) error {
	scn, err := loadScenario(cCtx)
	if err != nil {
		return err
	}
	logger := logx.NewStderr(logx.LevelInfo)
	sim, err := NewSimulator(scn, logger)
	if err != nil {
		return err
	}

	updates := cCtx.Int("updates")
	if updates <= 0 {
		updates = 200
	}

	probe := func(az, el float64) float64 {
		sigma := 0.05
		return math.Exp(-(az*az + el*el) / (2 * sigma * sigma))
	}
	if err := sim.trk.Scan(0.2, 0.2, 0.01, probe); err != nil {
		return err
	}
	for i := 0; i < updates; i++ {
		az, el := sim.trk.Position()
		sim.trk.Update(probe(az, el))
		if sim.trk.IsConverged() {
			log.Printf("converged after %d updates at az=%.4f el=%.4f", i+1, az, el)
			return nil
		}
	}
	az, el := sim.trk.Position()
	log.Printf("did not converge within %d updates, final az=%.4f el=%.4f", updates, az, el)
	return nil
}

func main() {
	scenarioFlag := &cli.StringFlag{Name: "scenario", Aliases: []string{"s"}, Usage: "path to a scenario YAML file; defaults to config.Defaults()"}
	framesFlag := &cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Usage: "override the scenario's frame count"}
	outdirFlag := &cli.StringFlag{Name: "outdir", Aliases: []string{"o"}, Usage: "directory for CSV/JSON reports", Value: "."}

	app := &cli.App{
		Name:  "fsosim",
		Usage: "free-space optical link simulator",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "execute a scenario end to end, writing per-frame and summary reports",
				Flags: []cli.Flag{
					scenarioFlag, framesFlag, outdirFlag,
					&cli.StringFlag{Name: "tiledb-uri", Usage: "optional TileDB array URI to persist per-frame telemetry"},
					&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug-level logging"},
					&cli.Float64Flag{Name: "origin-lat", Usage: "origin station latitude, degrees"},
					&cli.Float64Flag{Name: "origin-lon", Usage: "origin station longitude, degrees"},
					&cli.Float64Flag{Name: "origin-alt", Usage: "origin station altitude, meters"},
					&cli.Float64Flag{Name: "target-lat", Usage: "target station latitude, degrees; setting this derives link distance from geodetic geometry"},
					&cli.Float64Flag{Name: "target-lon", Usage: "target station longitude, degrees"},
					&cli.Float64Flag{Name: "target-alt", Usage: "target station altitude, meters"},
				},
				Action: runScenario,
			},
			{
				Name:  "bench",
				Usage: "measure frame throughput for the scenario's FEC/modem pair across a worker pool",
				Flags: []cli.Flag{scenarioFlag, framesFlag},
				Action: benchScenario,
			},
			{
				Name:  "track",
				Usage: "drive the beam tracker against a synthetic Gaussian field",
				Flags: []cli.Flag{
					scenarioFlag,
					&cli.IntFlag{Name: "updates", Usage: "maximum gradient-descent updates to run", Value: 200},
				},
				Action: trackScenario,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
