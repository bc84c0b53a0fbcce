// Package config loads sensorsync settings.
//
// Settings are layered, later layers winning:
//
//  1. Built-in defaults (Default)
//  2. A YAML file, decoded strictly so unknown keys are rejected
//  3. A .env file read with godotenv, supplying SENSORSYNC_* variables
//  4. The process environment, also SENSORSYNC_*
//
// The merged result is checked against an embedded CUE schema. Any failure
// at any layer is reported as a *Error with code CONFIGURATION_ERROR; the
// process must not start a run with an invalid configuration.
package config
