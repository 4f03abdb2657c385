package camera

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"

	"github.jpl.nasa.gov/bdube/phasetec/mct"
)

// DefaultDeadPixels are the known bad pixels of the lab's sensor, as indices
// into a corrected frame
var DefaultDeadPixels = []int{
	86, 148, 409, 559, 574, 672, 711, 799, 927, 1277,
	1359, 1487, 1769, 1777, 1836, 2763, 2822, 3213, 3459, 3741,
	3859, 4176, 4485, 4631, 5207, 5394, 5437, 5473, 5652, 6167,
	6425, 6440, 6589, 6700, 7451, 7580, 8367, 8522, 9392, 9442,
	9656, 9855, 10416, 11443, 11460, 11905, 12126, 14302, 14425, 15030,
	15225,
}

// Channel is a named band of rows
type Channel struct {
	// Name identifies the channel, e.g. Probe1 or Ref
	Name string `yaml:"name" koanf:"name"`

	// Bottom is the first row of the band
	Bottom int `yaml:"bottom" koanf:"bottom"`

	// Top is one past the last row of the band
	Top int `yaml:"top" koanf:"top"`
}

// Range returns the rows of the channel
func (c Channel) Range() mct.LineRange {
	return mct.LineRange{Bottom: c.Bottom, Top: c.Top}
}

// Retry configures how a Reader recovers from frames lost to the ring
type Retry struct {
	// Max is the number of retries after a failed read.  0 disables retrying.
	Max int `yaml:"max" koanf:"max"`

	// Initial is the wait before the first retry
	Initial time.Duration `yaml:"initial" koanf:"initial"`

	// MaxInterval caps the wait between retries
	MaxInterval time.Duration `yaml:"maxInterval" koanf:"maxInterval"`
}

// Config holds the setup of a Reader
type Config struct {
	// Shots is the number of frames per read
	Shots int `yaml:"shots" koanf:"shots"`

	// Channels are the row bands reduced to line profiles, in output order
	Channels []Channel `yaml:"channels" koanf:"channels"`

	// DeadPixels are repaired in every frame.  An empty list disables repair.
	DeadPixels []int `yaml:"deadPixels" koanf:"deadPixels"`

	// Overwrite is one of fail, oldest, newest
	Overwrite string `yaml:"overwrite" koanf:"overwrite"`

	// Layout is one of shot-major, channel-major
	Layout string `yaml:"layout" koanf:"layout"`

	// Retry is the recovery policy for lost frames
	Retry Retry `yaml:"retry" koanf:"retry"`
}

// DefaultConfig returns the configuration the lab's spectrometer runs with:
// two probe bands, a reference band and a background band.
func DefaultConfig() Config {
	dead := make([]int, len(DefaultDeadPixels))
	copy(dead, DefaultDeadPixels)
	return Config{
		Shots: 50,
		Channels: []Channel{
			{Name: "Probe1", Bottom: 83, Top: 88},
			{Name: "Probe2", Bottom: 48, Top: 53},
			{Name: "Ref", Bottom: 13, Top: 18},
			{Name: "back_line", Bottom: 90, Top: 110},
		},
		DeadPixels: dead,
		Overwrite:  mct.OverwriteFail.String(),
		Layout:     mct.ShotMajor.String(),
		Retry: Retry{
			Max:         0,
			Initial:     25 * time.Millisecond,
			MaxInterval: time.Second,
		},
	}
}

// LoadConfig layers the yaml file at path over DefaultConfig.  A missing file
// is not an error.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	cfg := Config{}
	err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil)
	if err != nil {
		return cfg, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("error loading config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug().Str("path", path).Msg("no config file, using defaults")
	default:
		return cfg, fmt.Errorf("error loading config %s: %w", path, err)
	}
	err = k.Unmarshal("", &cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// YAML renders the config as a yaml document
func (c Config) YAML() ([]byte, error) {
	return yml.Marshal(c)
}

// OverwritePolicy parses the Overwrite field
func (c Config) OverwritePolicy() (mct.OverwritePolicy, error) {
	for _, p := range []mct.OverwritePolicy{mct.OverwriteFail, mct.OverwriteGetOldest, mct.OverwriteGetNewest} {
		if strings.EqualFold(c.Overwrite, p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown overwrite policy %q, must be fail, oldest, or newest", c.Overwrite)
}

// LineLayout parses the Layout field
func (c Config) LineLayout() (mct.LineLayout, error) {
	for _, l := range []mct.LineLayout{mct.ShotMajor, mct.ChannelMajor} {
		if strings.EqualFold(c.Layout, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown line layout %q, must be shot-major or channel-major", c.Layout)
}

// Validate checks the config without touching any hardware
func (c Config) Validate() error {
	var strs []string
	if c.Shots <= 0 {
		strs = append(strs, fmt.Sprintf("shots %d must be positive", c.Shots))
	}
	strs = append(strs, checkChannels(c.Channels)...)
	for _, p := range c.DeadPixels {
		if p < 0 || p >= mct.FrameSize {
			strs = append(strs, fmt.Sprintf("dead pixel %d outside of frame", p))
		}
	}
	if _, err := c.OverwritePolicy(); err != nil {
		strs = append(strs, err.Error())
	}
	if _, err := c.LineLayout(); err != nil {
		strs = append(strs, err.Error())
	}
	if c.Retry.Max < 0 {
		strs = append(strs, fmt.Sprintf("retry max %d must not be negative", c.Retry.Max))
	}
	if len(strs) == 0 {
		return nil
	}
	return fmt.Errorf("camera: invalid config: %s", strings.Join(strs, "; "))
}

// checkChannels returns a description of every problem with chs
func checkChannels(chs []Channel) []string {
	var strs []string
	names := make(map[string]bool, len(chs))
	for _, ch := range chs {
		if err := ch.Range().Valid(); err != nil {
			strs = append(strs, fmt.Sprintf("channel %q: %v", ch.Name, err))
		}
		if names[ch.Name] {
			strs = append(strs, fmt.Sprintf("channel %q defined twice", ch.Name))
		}
		names[ch.Name] = true
	}
	return strs
}
