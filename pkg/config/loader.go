package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilPointer indicates Load was called with a nil target.
	ErrNilPointer = errors.New("config.nil_pointer")

	// ErrParsingConfig indicates environment parsing failed.
	ErrParsingConfig = errors.New("config.parsing_failed")
)

var loadDotEnv sync.Once

// Load populates the configuration struct from environment variables based
// on its `env` field tags. The default .env file is loaded once per process
// before the first parse; a missing file is not an error.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	loadDotEnv.Do(func() {
		_ = godotenv.Load()
	})

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	return nil
}

// MustLoad works like Load but panics on failure. Use it for configuration
// the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load required configuration: %v", err))
	}
}
