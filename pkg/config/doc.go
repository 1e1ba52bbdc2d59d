// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Structs declare their variables with `env` tags (see
// github.com/caarlos0/env/v11 for the tag syntax). Each struct type is
// parsed once per process and cached.
package config
