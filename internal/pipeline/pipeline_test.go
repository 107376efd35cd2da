package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian3/downlink/internal/archive"
	"github.com/meridian3/downlink/internal/cleaner"
	"github.com/meridian3/downlink/internal/config"
	"github.com/meridian3/downlink/internal/simulator"
	"github.com/meridian3/downlink/internal/telemetry"
	"github.com/meridian3/downlink/internal/testutil/testlog"
)

// quietLink returns the default config with every fault source disabled.
func quietLink() config.LinkConfig {
	cfg := config.DefaultLink()
	cfg.Link.LossProbability = 0
	cfg.Link.FieldCorruptionProbability = 0
	cfg.Link.JitterStddev = 0
	return cfg
}

func TestCleanLinkProducesHighQuality(t *testing.T) {
	testlog.Start(t)

	store, err := archive.NewMemoryStore(100)
	require.NoError(t, err)
	s, err := New(quietLink(), config.DefaultFields(), store)
	require.NoError(t, err)

	gen := simulator.New(1, 1.0)
	for i := 0; i < 50; i++ {
		frame, err := s.Process(gen.Next())
		require.NoError(t, err)
		assert.Equal(t, telemetry.QualityHigh, frame.Meta.Quality, "frame %d", i)
		assert.True(t, frame.Meta.ChecksumValid)
		assert.Empty(t, frame.Meta.Repairs)
	}
	s.Close()

	got := store.Latest(s.ID(), 0)
	require.Len(t, got, 50)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Timestamp, got[i-1].Timestamp, "archive order broken at %d", i)
	}

	snap := s.Statistics()
	assert.Equal(t, uint64(50), snap.Packetizer.TotalPackets)
	assert.Equal(t, uint64(0), snap.Corruptor.PacketsLost)
	assert.Equal(t, uint64(50), snap.Cleaner.FramesProcessed)
	assert.Equal(t, uint64(50), snap.Detector.FramesAnalyzed)
}

func TestLossyLinkRecoversFrames(t *testing.T) {
	testlog.Start(t)

	cfg := quietLink()
	cfg.Link.LossProbability = 0.2
	cfg.Link.Seed = 7

	store, err := archive.NewMemoryStore(1000)
	require.NoError(t, err)
	s, err := New(cfg, config.DefaultFields(), store)
	require.NoError(t, err)
	defer s.Close()

	gen := simulator.New(2, 1.0)
	var delivered, synthesized, skipped int
	for i := 0; i < 500; i++ {
		frame, err := s.Process(gen.Next())
		if err != nil {
			require.ErrorIs(t, err, cleaner.ErrInsufficientHistory)
			skipped++
			continue
		}
		if frame.Meta.Quality == telemetry.QualityInterpolated {
			synthesized++
			assert.Equal(t, telemetry.FrameIDUnknown, frame.FrameID)
		} else {
			delivered++
		}
	}

	snap := s.Statistics()
	assert.NotZero(t, snap.Corruptor.PacketsLost)
	assert.Equal(t, uint64(synthesized), snap.Corruptor.PacketsLost-uint64(skipped))
	assert.Equal(t, delivered+synthesized+skipped, 500)
	assert.NotZero(t, synthesized, "a lossy link must force synthesis")
}

func TestCorruptedLinkRepairsFields(t *testing.T) {
	testlog.Start(t)

	cfg := quietLink()
	cfg.Link.FieldCorruptionProbability = 0.2
	cfg.Link.Seed = 11

	s, err := New(cfg, config.DefaultFields(), nil)
	require.NoError(t, err)

	gen := simulator.New(3, 1.0)
	var repaired int
	for i := 0; i < 200; i++ {
		frame, err := s.Process(gen.Next())
		require.NoError(t, err)
		if len(frame.Meta.Repairs) > 0 {
			repaired++
			assert.NotEqual(t, telemetry.QualityHigh, frame.Meta.Quality)
			for _, r := range frame.Meta.Repairs {
				assert.True(t, r.Method.Valid(), "method %q", r.Method)
			}
		}
		// Repairs keep every declared field populated and finite.
		for name := range config.DefaultFields().Fields {
			_, ok := frame.Data[name]
			assert.True(t, ok, "field %s missing from frame %d", name, i)
		}
	}
	assert.NotZero(t, repaired)

	snap := s.Statistics()
	assert.NotZero(t, snap.Corruptor.FieldsCorrupted)
	assert.NotZero(t, snap.Cleaner.ChecksumFailures)
	assert.NotZero(t, snap.Cleaner.FieldsRepaired)
}

func TestThresholdAnomaliesReachArchive(t *testing.T) {
	testlog.Start(t)

	store, err := archive.NewMemoryStore(100)
	require.NoError(t, err)
	s, err := New(quietLink(), config.DefaultFields(), store)
	require.NoError(t, err)

	// The drop stays under battery_soc's 5 units/s budget so the cleaner
	// passes the value through untouched for the detector to judge.
	_, err = s.Process(telemetry.RawFrame{Timestamp: 1, FrameID: 0, Values: map[string]any{
		"battery_soc": 18.0,
	}})
	require.NoError(t, err)

	frame, err := s.Process(telemetry.RawFrame{Timestamp: 2, FrameID: 1, Values: map[string]any{
		"battery_soc": 14.0,
	}})
	require.NoError(t, err)

	var critical []telemetry.Anomaly
	for _, a := range frame.Meta.Anomalies {
		if a.Severity == telemetry.SeverityCritical {
			critical = append(critical, a)
		}
	}
	require.NotEmpty(t, critical)
	assert.Equal(t, "battery_soc", critical[0].Field)

	s.Close()
	archived := store.Anomalies(s.ID(), telemetry.SeverityCritical, 0)
	assert.Equal(t, len(critical), len(archived))
}

type failingSink struct{ calls int }

func (f *failingSink) Store(string, telemetry.CleanFrame) error {
	f.calls++
	return errors.New("sink unavailable")
}

func TestArchiveFailureNeverFailsPipeline(t *testing.T) {
	testlog.Start(t)

	sink := &failingSink{}
	s, err := New(quietLink(), config.DefaultFields(), sink)
	require.NoError(t, err)

	gen := simulator.New(4, 1.0)
	for i := 0; i < 10; i++ {
		_, err := s.Process(gen.Next())
		require.NoError(t, err)
	}
	s.Close()
	assert.Equal(t, 10, sink.calls)
}

func TestNilSinkDisablesDelivery(t *testing.T) {
	testlog.Start(t)

	s, err := New(quietLink(), config.DefaultFields(), nil)
	require.NoError(t, err)
	defer s.Close()

	gen := simulator.New(5, 1.0)
	frame, err := s.Process(gen.Next())
	require.NoError(t, err)
	assert.Equal(t, telemetry.QualityHigh, frame.Meta.Quality)
}

func TestConstructionFailsFast(t *testing.T) {
	cfg := quietLink()
	cfg.Link.LossProbability = 2.0
	_, err := New(cfg, config.DefaultFields(), nil)
	require.Error(t, err)
}
