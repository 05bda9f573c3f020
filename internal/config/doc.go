// Package config loads the frozen process configuration from
// environment variables. All variables use the PULSE_ prefix; every
// field has a usable default, so Load succeeds in an empty environment.
package config
