package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/homecage/reachscope/internal/reach/l2zones"
	"github.com/homecage/reachscope/internal/reach/l3events"
	"github.com/homecage/reachscope/internal/reach/l4trajectory"
	"github.com/homecage/reachscope/internal/reach/l6metrics"
	"github.com/homecage/reachscope/internal/reach/pipeline"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// TuningConfig represents the extraction parameters. Every field is
// optional; the Get* methods fall back to the rig defaults, so partial
// files are safe. The same keys are accepted in JSON and TOML.
type TuningConfig struct {
	// Segmentation params
	LikelihoodThreshold    *float64 `json:"likelihood_threshold,omitempty" toml:"likelihood_threshold"`
	MinFramesEventStart    *int     `json:"min_frames_event_start,omitempty" toml:"min_frames_event_start"`
	MaxFramesEventStop     *int     `json:"max_frames_event_stop,omitempty" toml:"max_frames_event_stop"`
	MinFramesBetweenEvents *int     `json:"min_frames_between_events,omitempty" toml:"min_frames_between_events"`
	EventEndPadding        *int     `json:"event_end_padding,omitempty" toml:"event_end_padding"`
	PreRollFrames          *int     `json:"pre_roll_frames,omitempty" toml:"pre_roll_frames"`

	// Zone filter
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty" toml:"confidence_threshold"`

	// Reconstruction and metrics
	ReachingHand *string  `json:"reaching_hand,omitempty" toml:"reaching_hand"` // LEFT or RIGHT
	FrameRateHz  *float64 `json:"frame_rate_hz,omitempty" toml:"frame_rate_hz"`

	// Workers bounds per-event parallelism; 0 means one per CPU.
	Workers *int `json:"workers,omitempty" toml:"workers"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to the
// rig default.
func DefaultTuningConfig() *TuningConfig {
	seg := l3events.DefaultParams()
	return &TuningConfig{
		LikelihoodThreshold:    ptrFloat64(seg.LikelihoodThreshold),
		MinFramesEventStart:    ptrInt(seg.MinFramesEventStart),
		MaxFramesEventStop:     ptrInt(seg.MaxFramesEventStop),
		MinFramesBetweenEvents: ptrInt(seg.MinFramesBetweenEvents),
		EventEndPadding:        ptrInt(seg.EventEndPadding),
		PreRollFrames:          ptrInt(seg.PreRollFrames),
		ConfidenceThreshold:    ptrFloat64(l2zones.DefaultConfidenceThreshold),
		ReachingHand:           ptrString(l4trajectory.Left.String()),
		FrameRateHz:            ptrFloat64(l6metrics.DefaultFrameRateHz),
		Workers:                ptrInt(0),
	}
}

// LoadTuningConfig loads a TuningConfig from a .json or .toml file of at
// most 1MB. Fields omitted from the file keep their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".toml" {
		return nil, fmt.Errorf("config file must have .json or .toml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.LikelihoodThreshold != nil {
		if v := *c.LikelihoodThreshold; v < 0 || v > 1 {
			return fmt.Errorf("likelihood_threshold must be between 0 and 1, got %f", v)
		}
	}
	if c.ConfidenceThreshold != nil {
		if v := *c.ConfidenceThreshold; v < 0 || v > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", v)
		}
	}
	if c.ReachingHand != nil {
		if _, err := l4trajectory.ParseHand(*c.ReachingHand); err != nil {
			return err
		}
	}
	if c.FrameRateHz != nil && *c.FrameRateHz <= 0 {
		return fmt.Errorf("frame_rate_hz must be positive, got %f", *c.FrameRateHz)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return c.SegmentParams().Validate()
}

// GetLikelihoodThreshold returns the likelihood_threshold value or the default.
func (c *TuningConfig) GetLikelihoodThreshold() float64 {
	if c.LikelihoodThreshold == nil {
		return l3events.DefaultParams().LikelihoodThreshold
	}
	return *c.LikelihoodThreshold
}

// GetMinFramesEventStart returns the min_frames_event_start value or the default.
func (c *TuningConfig) GetMinFramesEventStart() int {
	if c.MinFramesEventStart == nil {
		return l3events.DefaultParams().MinFramesEventStart
	}
	return *c.MinFramesEventStart
}

// GetMaxFramesEventStop returns the max_frames_event_stop value or the default.
func (c *TuningConfig) GetMaxFramesEventStop() int {
	if c.MaxFramesEventStop == nil {
		return l3events.DefaultParams().MaxFramesEventStop
	}
	return *c.MaxFramesEventStop
}

// GetMinFramesBetweenEvents returns the min_frames_between_events value or the default.
func (c *TuningConfig) GetMinFramesBetweenEvents() int {
	if c.MinFramesBetweenEvents == nil {
		return l3events.DefaultParams().MinFramesBetweenEvents
	}
	return *c.MinFramesBetweenEvents
}

// GetEventEndPadding returns the event_end_padding value or the default.
func (c *TuningConfig) GetEventEndPadding() int {
	if c.EventEndPadding == nil {
		return l3events.DefaultParams().EventEndPadding
	}
	return *c.EventEndPadding
}

// GetPreRollFrames returns the pre_roll_frames value or the default.
func (c *TuningConfig) GetPreRollFrames() int {
	if c.PreRollFrames == nil {
		return l3events.DefaultParams().PreRollFrames
	}
	return *c.PreRollFrames
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *TuningConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return l2zones.DefaultConfidenceThreshold
	}
	return *c.ConfidenceThreshold
}

// GetReachingHand returns the reaching hand, defaulting to the left hand.
// An unparseable value also yields the default; Validate reports it.
func (c *TuningConfig) GetReachingHand() l4trajectory.Hand {
	if c.ReachingHand == nil {
		return l4trajectory.Left
	}
	h, err := l4trajectory.ParseHand(*c.ReachingHand)
	if err != nil {
		return l4trajectory.Left
	}
	return h
}

// GetFrameRateHz returns the frame_rate_hz value or the default.
func (c *TuningConfig) GetFrameRateHz() float64 {
	if c.FrameRateHz == nil {
		return l6metrics.DefaultFrameRateHz
	}
	return *c.FrameRateHz
}

// GetWorkers returns the workers value or 0.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// SegmentParams assembles the segmenter parameters.
func (c *TuningConfig) SegmentParams() l3events.Params {
	return l3events.Params{
		LikelihoodThreshold:    c.GetLikelihoodThreshold(),
		MinFramesEventStart:    c.GetMinFramesEventStart(),
		MaxFramesEventStop:     c.GetMaxFramesEventStop(),
		MinFramesBetweenEvents: c.GetMinFramesBetweenEvents(),
		EventEndPadding:        c.GetEventEndPadding(),
		PreRollFrames:          c.GetPreRollFrames(),
	}
}

// PipelineConfig assembles a full pipeline configuration.
func (c *TuningConfig) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		ConfidenceThreshold: c.GetConfidenceThreshold(),
		Segment:             c.SegmentParams(),
		Hand:                c.GetReachingHand(),
		Workers:             c.GetWorkers(),
		FrameRateHz:         c.GetFrameRateHz(),
	}
}

// WithHand returns a copy of c with the reaching hand overridden.
func (c *TuningConfig) WithHand(h l4trajectory.Hand) *TuningConfig {
	out := *c
	out.ReachingHand = ptrString(h.String())
	return &out
}
