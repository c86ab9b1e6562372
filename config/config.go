// Package config loads configuration structs from environment variables.
//
// A .env file in the working directory, when present, is loaded into the
// environment once, before the first struct is parsed. Variables already set
// in the environment win over the file.
//
//	var settings session.Settings
//	if err := config.Load(&settings); err != nil {
//		log.Fatal(err)
//	}
//
// Each struct type is parsed once and cached; later calls with the same type
// return the cached value. Parsing is done by github.com/caarlos0/env, so
// fields use its env and envDefault tags.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrParse is returned when the environment cannot be parsed into a struct.
var ErrParse = errors.New("failed to parse configuration")

var (
	dotenvOnce sync.Once
	cacheMu    sync.Mutex
	cache      = map[reflect.Type]any{}
)

// Load fills cfg from the environment.
func Load[T any](cfg *T) error {
	dotenvOnce.Do(func() {
		// A missing .env file is fine.
		_ = godotenv.Load()
	})

	typ := reflect.TypeFor[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[typ]; ok {
		*cfg = cached.(T)
		return nil
	}

	var v T
	if err := env.Parse(&v); err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	cache[typ] = v
	*cfg = v
	return nil
}

// MustLoad is like Load but panics on failure. Use it during startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Reset drops every cached configuration, so the next Load parses the
// environment again.
func Reset() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	clear(cache)
}
