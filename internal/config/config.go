// Package config holds the process-wide configuration that is read once at start-up
// and passed by pointer to every component that needs credentials, paths, or tool locations.
package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/myrjola/ace/internal/envstruct"
	"github.com/myrjola/ace/internal/errors"
)

// Config is populated from the environment with [envstruct.Populate].
type Config struct {
	// Addr is the HTTP listen address of the web server.
	Addr string `env:"ACE_ADDR" envDefault:"localhost:4000"`
	// PprofAddr enables a pprof server on the loopback interface when set, e.g. ":6060".
	PprofAddr string `env:"ACE_PPROF_ADDR" envDefault:""`
	// DataDir is the root directory of the cached transcript and evaluation artifacts.
	DataDir string `env:"ACE_DATA_DIR" envDefault:"./data"`
	// MediaDir holds the session videos as <videoID>.mp4 and the checklist document served to the UI.
	MediaDir string `env:"ACE_MEDIA_DIR" envDefault:"./public"`
	// SqliteURL is the path of the generation run log database or ":memory:".
	SqliteURL string `env:"ACE_SQLITE_URL" envDefault:"./ace.sqlite3"`
	// DefaultVideo is the video served by the legacy single-video routes.
	DefaultVideo string `env:"ACE_DEFAULT_VIDEO" envDefault:"video1"`

	// OpenAIKey is the API credential for transcription and evaluation. Generation fails without it.
	OpenAIKey        string `env:"OPENAI_KEY" envDefault:""`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	TranscribeModel  string `env:"ACE_TRANSCRIBE_MODEL" envDefault:"gpt-4o-transcribe"`
	TranscribeFormat string `env:"ACE_TRANSCRIBE_FORMAT" envDefault:"json"`
	EvaluationModel  string `env:"ACE_EVALUATION_MODEL" envDefault:"gpt-5"`

	FFmpegPath  string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath string `env:"FFPROBE_PATH" envDefault:"ffprobe"`

	// MaxUploadBytes is the largest file submitted to the transcription endpoint in one piece.
	MaxUploadBytes int64 `env:"ACE_MAX_UPLOAD_BYTES" envDefault:"25165824"`
	// ChunkDuration is the length of the audio chunks a larger file is split into.
	ChunkDuration time.Duration `env:"ACE_CHUNK_DURATION" envDefault:"5m"`
	// ChunkConcurrency bounds how many chunks are transcribed at the same time.
	ChunkConcurrency int `env:"ACE_CHUNK_CONCURRENCY" envDefault:"2"`
}

var ErrInvalidConfig = errors.NewSentinel("invalid configuration")

// Load reads the configuration with lookupEnv, which has the same signature as [os.LookupEnv].
func Load(lookupEnv func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return nil, errors.Wrap(err, "populate config from environment")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxUploadBytes <= 0 {
		return errors.Wrap(ErrInvalidConfig, "max upload bytes must be positive",
			slog.Int64("max_upload_bytes", c.MaxUploadBytes))
	}
	if c.ChunkDuration < time.Second {
		return errors.Wrap(ErrInvalidConfig, "chunk duration must be at least one second",
			slog.Duration("chunk_duration", c.ChunkDuration))
	}
	if c.ChunkConcurrency < 1 {
		return errors.Wrap(ErrInvalidConfig, "chunk concurrency must be at least 1",
			slog.Int("chunk_concurrency", c.ChunkConcurrency))
	}
	return nil
}

// ChecklistPath returns the location of the review checklist document.
func (c *Config) ChecklistPath() string {
	return filepath.Join(c.MediaDir, "checklist.json")
}

// VideoPath returns the location of the session video identified by videoID.
func (c *Config) VideoPath(videoID string) string {
	return filepath.Join(c.MediaDir, videoID+".mp4")
}
