package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/rigfit/logging"
)

// Read reads a config from the given file. Environment variables such as ${DATA_DIR} are
// substituted before the JSON is decoded.
func Read(
	ctx context.Context,
	filePath string,
	logger logging.Logger,
) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(
	ctx context.Context,
	originalPath string,
	r io.Reader,
	logger logging.Logger,
) (*Config, error) {
	cfg := Config{
		ConfigFilePath: originalPath,
	}
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(""); err != nil {
		return nil, errors.Wrap(err, "failed to validate Config")
	}
	cfg.ResolvePaths()
	if cfg.LogLevel < logger.GetLevel() {
		logger.SetLevel(cfg.LogLevel)
	}
	logger.Debugw("read config",
		"path", originalPath,
		"models", cfg.Models,
		"frames", cfg.Frames,
		"workers", cfg.Workers,
	)
	return &cfg, nil
}
