package metrics

import "github.com/kilianp07/diaguru/core/factory"

// Config defines the configured set of metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}
