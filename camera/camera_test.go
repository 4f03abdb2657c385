package camera

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.jpl.nasa.gov/bdube/phasetec/imaq"
	"github.jpl.nasa.gov/bdube/phasetec/mct"
)

func init() {
	SetLogger(zerolog.Nop())
	imaq.SetLogger(zerolog.Nop())
}

func rawUniform(v uint16) mct.Frame {
	var img, raw mct.Frame
	for i := range img {
		img[i] = v
	}
	mct.Encode(&raw, &img)
	return raw
}

func playback(vals ...uint16) *imaq.Playback {
	p := &imaq.Playback{}
	for _, v := range vals {
		p.Frames = append(p.Frames, rawUniform(v))
	}
	return p
}

func testConfig(shots int) Config {
	cfg := DefaultConfig()
	cfg.Shots = shots
	return cfg
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(cfg.DeadPixels) != 51 {
		t.Errorf("expected 51 default dead pixels, got %d", len(cfg.DeadPixels))
	}
	b, err := cfg.YAML()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "Probe1") {
		t.Errorf("rendered config is missing the channels:\n%s", b)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Shots = 0
	cfg.Channels = append(cfg.Channels, Channel{Name: "Ref", Bottom: 4, Top: 4})
	cfg.Overwrite = "sometimes"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
	for _, frag := range []string{"shots", "defined twice", "empty", "overwrite"} {
		if !strings.Contains(err.Error(), frag) {
			t.Errorf("expected %q in error %q", frag, err)
		}
	}
}

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("missing file should yield defaults (-want +got):\n%s", diff)
	}
}

func TestLoadConfigUnreadablePathIsAnError(t *testing.T) {
	// a regular file where a directory is expected fails with ENOTDIR
	dir := filepath.Join(t.TempDir(), "notadir")
	if err := os.WriteFile(dir, nil, 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(filepath.Join(dir, "mct.yml"))
	if err == nil {
		t.Fatal("expected a stat failure other than not-exist to be returned")
	}
	if !strings.Contains(err.Error(), "mct.yml") {
		t.Errorf("expected the path in the error, got %q", err)
	}
}

func TestSetDeadPixelsNamesBadIndex(t *testing.T) {
	rdr, err := NewReader(playback(1), testConfig(1))
	if err != nil {
		t.Fatal(err)
	}
	err = rdr.SetDeadPixels([]int{5, mct.FrameSize + 7})
	if err == nil || !strings.Contains(err.Error(), "16391") {
		t.Errorf("expected error naming pixel 16391, got %v", err)
	}
	if err := rdr.SetDeadPixels([]int{5}); err != nil {
		t.Errorf("valid dead pixel list rejected: %v", err)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mct.yml")
	doc := `shots: 20
channels:
  - name: Probe1
    bottom: 60
    top: 70
deadPixels: []
layout: channel-major
retry:
  max: 3
  initial: 5ms
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Shots != 20 {
		t.Errorf("expected 20 shots, got %d", cfg.Shots)
	}
	if diff := cmp.Diff([]Channel{{Name: "Probe1", Bottom: 60, Top: 70}}, cfg.Channels); diff != "" {
		t.Errorf("channels not replaced (-want +got):\n%s", diff)
	}
	if len(cfg.DeadPixels) != 0 {
		t.Errorf("expected dead pixels to be cleared, got %d", len(cfg.DeadPixels))
	}
	if l, _ := cfg.LineLayout(); l != mct.ChannelMajor {
		t.Errorf("expected channel-major layout, got %v", l)
	}
	if cfg.Retry.Max != 3 || cfg.Retry.Initial != 5*time.Millisecond {
		t.Errorf("retry not loaded: %+v", cfg.Retry)
	}
	if cfg.Retry.MaxInterval != time.Second {
		t.Errorf("unset retry field should keep its default, got %v", cfg.Retry.MaxInterval)
	}
}

func TestReaderAdvancesFrameCounter(t *testing.T) {
	p := playback(100, 200, 300, 400, 500, 600)
	rdr, err := NewReader(p, testConfig(2))
	if err != nil {
		t.Fatal(err)
	}
	first, err := rdr.Read()
	if err != nil {
		t.Fatal(err)
	}
	second, err := rdr.Read()
	if err != nil {
		t.Fatal(err)
	}
	if first.StartFrame != 0 || second.StartFrame != 2 || rdr.NextFrame() != 4 {
		t.Errorf("frame counter did not advance by shots: %d, %d, next %d",
			first.StartFrame, second.StartFrame, rdr.NextFrame())
	}
	if second.Frame(1)[0] != 400 {
		t.Errorf("expected frame 3 to hold 400, got %d", second.Frame(1)[0])
	}
}

func TestSetBackgroundSubtractsMean(t *testing.T) {
	p := playback(500, 700, 600, 900)
	rdr, err := NewReader(p, testConfig(2))
	if err != nil {
		t.Fatal(err)
	}
	if err := rdr.SetBackground(); err != nil {
		t.Fatal(err)
	}
	back := rdr.Background()
	if back == nil || back[0] != 600 {
		t.Fatalf("expected background mean of 500 and 700, got %v", back)
	}
	out, err := rdr.Read()
	if err != nil {
		t.Fatal(err)
	}
	if out.Frame(0)[0] != 0 || out.Frame(1)[0] != 300 {
		t.Errorf("expected 600-600=0 and 900-600=300, got %d and %d", out.Frame(0)[0], out.Frame(1)[0])
	}
	rdr.ClearBackground()
	if rdr.Background() != nil {
		t.Errorf("background still set after ClearBackground")
	}
}

func TestReaderRetriesAfterOverwrite(t *testing.T) {
	ring := imaq.NewRing(2)
	ring.Timeout = time.Second
	for i := 0; i < 5; i++ {
		raw := rawUniform(uint16(i))
		ring.Push(&raw)
	}
	cfg := testConfig(2)
	cfg.Retry = Retry{Max: 1, Initial: time.Millisecond, MaxInterval: time.Millisecond}
	rdr, err := NewReader(ring, cfg)
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		for _, v := range []uint16{50, 60} {
			raw := rawUniform(v)
			ring.Push(&raw)
		}
	}()
	out, err := rdr.Read()
	if err != nil {
		t.Fatal(err)
	}
	if out.StartFrame != 5 {
		t.Errorf("expected reader to resync to frame 5, got %d", out.StartFrame)
	}
	if out.Frame(0)[0] != 50 || out.Frame(1)[0] != 60 {
		t.Errorf("expected fresh frames 50, 60, got %d, %d", out.Frame(0)[0], out.Frame(1)[0])
	}
	if rdr.NextFrame() != 7 {
		t.Errorf("expected next frame 7, got %d", rdr.NextFrame())
	}
}

func TestReaderWithoutRetryReturnsPartialReadout(t *testing.T) {
	p := playback(10, 20, 30)
	p.Strict = true
	rdr, err := NewReader(p, testConfig(5))
	if err != nil {
		t.Fatal(err)
	}
	out, err := rdr.Read()
	if !errors.Is(err, imaq.ErrFrameUnavailable) {
		t.Fatalf("expected ErrFrameUnavailable, got %v", err)
	}
	if out.Done != 3 {
		t.Errorf("expected 3 shots done, got %d", out.Done)
	}
	if rdr.NextFrame() != 0 {
		t.Errorf("failed read must not advance the counter, got %d", rdr.NextFrame())
	}
}

func TestMeanLinesAndStats(t *testing.T) {
	p := playback(900, 300, 900, 300)
	rdr, err := NewReader(p, testConfig(4))
	if err != nil {
		t.Fatal(err)
	}
	out, err := rdr.Read()
	if err != nil {
		t.Fatal(err)
	}
	ref, ok := out.Channel("Ref")
	if !ok {
		t.Fatal("Ref channel missing")
	}
	means := out.MeanLines()
	if len(means) != len(out.Channels) {
		t.Fatalf("expected %d mean lines, got %d", len(out.Channels), len(means))
	}
	for col, v := range means[ref] {
		if v != 600 {
			t.Fatalf("column %d: expected mean 600, got %f", col, v)
		}
	}
	mean, std := out.Stats(ref)
	want := math.Sqrt(4 * 300 * 300 / 3.)
	if mean[10] != 600 || math.Abs(std[10]-want) > 1e-9 {
		t.Errorf("expected 600 +/- %f, got %f +/- %f", want, mean[10], std[10])
	}
}

func TestChannelMajorLinesMatchShotMajor(t *testing.T) {
	lines := make([][]float64, 2)
	for i, layout := range []string{"shot-major", "channel-major"} {
		cfg := testConfig(3)
		cfg.Layout = layout
		rdr, err := NewReader(playback(1, 2, 3), cfg)
		if err != nil {
			t.Fatal(err)
		}
		out, err := rdr.Read()
		if err != nil {
			t.Fatal(err)
		}
		lines[i] = out.Line(2, 1)
	}
	if diff := cmp.Diff(lines[0], lines[1]); diff != "" {
		t.Errorf("layouts disagree (-shot +channel):\n%s", diff)
	}
}

func TestReadFrameFITS(t *testing.T) {
	var f mct.Frame
	for i := range f {
		f[i] = uint16(i % 300)
	}
	buf := &bytes.Buffer{}
	if err := imaq.WriteFITS(buf, nil, []mct.Frame{f}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "back.fits")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	rdr, err := NewReader(playback(1), testConfig(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := rdr.LoadBackground(path); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f[:], rdr.Background()[:]); diff != "" {
		t.Errorf("background mismatch (-want +got):\n%s", diff)
	}
}

func TestMeanFrameRounds(t *testing.T) {
	out := newReadout(2, 0, nil, mct.ShotMajor)
	out.Done = 2
	out.Frame(0)[0], out.Frame(1)[0] = 1, 2
	out.Frame(0)[1], out.Frame(1)[1] = 4, 4
	back := MeanFrame(out)
	if back[0] != 2 || back[1] != 4 {
		t.Errorf("expected 2 and 4, got %d and %d", back[0], back[1])
	}
	if MeanFrame(&Readout{}) != nil {
		t.Errorf("expected nil for an empty readout")
	}
}
