// Package config loads process-wide defaults from YAML.
//
// Fields map 1:1 to querykit.example.yaml. Absent fields keep the values
// from Default, so an empty file is a valid configuration.
package config
