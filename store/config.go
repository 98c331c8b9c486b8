package store

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/arloliu/seqstore/compress"
	"github.com/arloliu/seqstore/errs"
	"github.com/arloliu/seqstore/format"
	"github.com/arloliu/seqstore/internal/options"
	"github.com/arloliu/seqstore/storage"
	"github.com/arloliu/seqstore/value"
)

// Config holds the settings of a Store. It is filled by Option values passed to New
// and cannot change afterwards.
type Config struct {
	path        string
	backend     storage.Backend
	tempDir     string
	revision    format.Revision
	compression format.CompressionType
	level       int
	levelSet    bool
	tag         value.Value
	logger      *slog.Logger
}

func newConfig() *Config {
	return &Config{
		revision:    format.DefaultRevision,
		compression: format.CompressionGzip,
		tag:         value.None(),
	}
}

// validate fills defaults that depend on other options and checks the combination.
func (c *Config) validate() error {
	if !c.levelSet {
		c.level = compress.DefaultLevel(c.compression)
	}
	if err := compress.ValidateLevel(c.compression, c.level); err != nil {
		return err
	}
	if c.backend == nil {
		c.backend = storage.NewLocal(c.tempDir)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return nil
}

// Path returns the explicit file name, or "" when the store uses a temporary file.
func (c *Config) Path() string { return c.path }

// Revision returns the value encoding revision used by write sessions.
func (c *Config) Revision() format.Revision { return c.revision }

// Compression returns the compression algorithm used by write sessions.
func (c *Config) Compression() format.CompressionType { return c.compression }

// CompressionLevel returns the compression level used by write sessions.
func (c *Config) CompressionLevel() int { return c.level }

// IdentityTag returns the identity tag written to and expected from the file.
// It is a Text value, or None when the store has no tag.
func (c *Config) IdentityTag() value.Value { return c.tag }

// Option is a functional option for configuring a Store.
type Option = options.Option[*Config]

// WithPath makes the store write to and read from the file name instead of an
// anonymous temporary file. Iterating a store that has not been written reads the
// existing file, which is how a consumer replays a sequence produced elsewhere.
func WithPath(name string) Option {
	return options.NoError(func(c *Config) {
		c.path = name
	})
}

// WithBackend sets the storage backend. Default is a storage.Local backend.
func WithBackend(b storage.Backend) Option {
	return options.New(func(c *Config) error {
		if b == nil {
			return errors.New("nil storage backend")
		}
		c.backend = b

		return nil
	})
}

// WithTempDir sets the directory of anonymous temporary files used by the default
// local backend. It has no effect together with WithBackend.
func WithTempDir(dir string) Option {
	return options.NoError(func(c *Config) {
		c.tempDir = dir
	})
}

// WithRevision selects the value encoding written by write sessions.
// Readers detect the revision of every record, so it never needs to match on read.
// Default is format.DefaultRevision.
func WithRevision(rev format.Revision) Option {
	return options.New(func(c *Config) error {
		if !rev.Valid() {
			return fmt.Errorf("%w: %s", errs.ErrInvalidRevision, rev)
		}
		c.revision = rev

		return nil
	})
}

// WithCompression selects the compression algorithm of written files.
// Default is format.CompressionGzip.
func WithCompression(ct format.CompressionType) Option {
	return options.New(func(c *Config) error {
		if !ct.Valid() {
			return fmt.Errorf("%w: %s", errs.ErrInvalidCompression, ct)
		}
		c.compression = ct

		return nil
	})
}

// WithCompressionLevel sets the algorithm specific compression level, see
// compress.ValidateLevel. Default is compress.DefaultLevel of the algorithm.
func WithCompressionLevel(level int) Option {
	return options.NoError(func(c *Config) {
		c.level = level
		c.levelSet = true
	})
}

// WithIdentityTag sets the identity tag written as the first record and required
// from the file by every read session.
func WithIdentityTag(tag string) Option {
	return options.New(func(c *Config) error {
		v := value.Text(tag)
		if !v.ValidText() {
			return fmt.Errorf("%w: identity tag is not valid UTF-8", errs.ErrUnsupportedValue)
		}
		c.tag = v

		return nil
	})
}

// WithoutIdentityTag writes and expects an absent identity tag. This is the default.
func WithoutIdentityTag() Option {
	return options.NoError(func(c *Config) {
		c.tag = value.None()
	})
}

// WithLogger sets the logger for lifecycle events. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *Config) {
		c.logger = logger
	})
}
