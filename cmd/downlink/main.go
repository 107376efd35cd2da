package main

import (
	"errors"
	"flag"

	"github.com/meridian3/downlink/internal/archive"
	"github.com/meridian3/downlink/internal/cleaner"
	"github.com/meridian3/downlink/internal/config"
	"github.com/meridian3/downlink/internal/logging"
	"github.com/meridian3/downlink/internal/observability"
	"github.com/meridian3/downlink/internal/pipeline"
	"github.com/meridian3/downlink/internal/simulator"
	"github.com/meridian3/downlink/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to link config TOML (built-in defaults when empty)")
	frames := flag.Int("frames", 60, "number of frames to run")
	timestep := flag.Float64("timestep", 1.0, "seconds between frames")
	seed := flag.Int64("seed", 42, "frame source seed")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := observability.InitLogger("downlink")

	cfg := config.DefaultLink()
	table := config.DefaultFields()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadLinkConfig(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load link config")
		}
		if cfg.Stream.FieldTable != "" {
			table, err = config.LoadFieldTable(cfg.Stream.FieldTable)
			if err != nil {
				logger.Fatal().Err(err).Msg("load field table")
			}
		}
	}

	store, err := archive.NewMemoryStore(cfg.Archive.Capacity)
	if err != nil {
		logger.Fatal().Err(err).Msg("archive init")
	}
	stream, err := pipeline.New(cfg, table, store)
	if err != nil {
		logger.Fatal().Err(err).Msg("pipeline init")
	}

	source := simulator.New(*seed, *timestep)
	skipped := 0
	for i := 0; i < *frames; i++ {
		if _, err := stream.Process(source.Next()); err != nil {
			if errors.Is(err, cleaner.ErrInsufficientHistory) {
				skipped++
				continue
			}
			logger.Fatal().Err(err).Msg("pipeline failure")
		}
	}
	stream.Close()

	stats := stream.Statistics()
	logger.Info().
		Uint64("packets", stats.Packetizer.TotalPackets).
		Float64("avg_packet_size", stats.Packetizer.AvgPacketSize).
		Msg("packetizer")
	logger.Info().
		Uint64("lost", stats.Corruptor.PacketsLost).
		Uint64("fields_corrupted", stats.Corruptor.FieldsCorrupted).
		Float64("observed_loss_rate", stats.Corruptor.ObservedLossRate).
		Msg("corruptor")
	logger.Info().
		Uint64("frames_repaired", stats.Cleaner.FramesRepaired).
		Uint64("fields_repaired", stats.Cleaner.FieldsRepaired).
		Uint64("checksum_failures", stats.Cleaner.ChecksumFailures).
		Float64("repair_rate", stats.Cleaner.RepairRate).
		Int("unrecoverable_skipped", skipped).
		Msg("cleaner")
	logger.Info().
		Uint64("threshold", stats.Detector.Threshold).
		Uint64("derivative", stats.Detector.Derivative).
		Uint64("statistical", stats.Detector.Statistical).
		Msg("detector")

	for _, f := range store.Latest(stream.ID(), 5) {
		logger.Info().
			Float64("timestamp", f.Timestamp).
			Str("quality", string(f.Meta.Quality)).
			Int("repairs", len(f.Meta.Repairs)).
			Int("anomalies", len(f.Meta.Anomalies)).
			Msg("archived frame")
	}
	for _, a := range store.Anomalies(stream.ID(), telemetry.SeverityCritical, 5) {
		logger.Info().
			Float64("timestamp", a.Timestamp).
			Str("field", a.Field).
			Str("kind", string(a.Kind)).
			Msg(a.Description)
	}
}
