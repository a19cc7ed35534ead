// Package config loads, normalizes, and validates Conveyor configuration.
//
// Configuration is TOML with repository defaults applied before decoding, so
// an absent file still yields a usable config. Path fields are expanded and
// made absolute during normalization. The embedded sample documents every
// key and is written by 'conveyor config init'.
package config
