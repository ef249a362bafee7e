/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package config holds the process-wide tunables for a raftkv node, loaded
from environment variables and an optional config file via spf13/viper,
the same stack the teacher repo's configuration layer is built on.

Node identity (node_id, node_ids) is deliberately absent here: per the
wire protocol it arrives at runtime via raft_init, not at process start.
*/
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvElectionTimeout = "RAFTKV_ELECTION_TIMEOUT_MS"
	EnvMaintenanceTick = "RAFTKV_MAINTENANCE_TICK_MS"
	EnvLogLevel        = "RAFTKV_LOG_LEVEL"
	EnvLogJSON         = "RAFTKV_LOG_JSON"
	EnvMetricsAddr     = "RAFTKV_METRICS_ADDR"
)

// Config holds every process-wide tunable. Node identity is not part of
// this struct; it is assigned later by the raft_init handshake.
type Config struct {
	// ElectionTimeoutBase is T in spec terms: randomized election timeouts
	// are drawn uniformly from [T, 2T).
	ElectionTimeoutBase time.Duration

	// MaintenanceTick is the cadence of the periodic maintenance loop
	// (replication, commit advancement, state-machine application).
	MaintenanceTick time.Duration

	// LogLevel is one of debug/info/warn/error.
	LogLevel string

	// LogJSON selects JSON-per-line log rendering instead of text.
	LogJSON bool

	// MetricsAddr, if non-empty, is the listen address for the optional
	// Prometheus /metrics endpoint. Empty disables it.
	MetricsAddr string

	// ConfigFile records the path a Config was loaded from, empty if none.
	ConfigFile string
}

// DefaultConfig returns the tunables a node runs with if nothing overrides
// them: a 2s election timeout base and a 200ms maintenance tick, matching
// spec.md §4.4/§4.10.
func DefaultConfig() *Config {
	return &Config{
		ElectionTimeoutBase: 2 * time.Second,
		MaintenanceTick:     200 * time.Millisecond,
		LogLevel:            "info",
		LogJSON:             false,
		MetricsAddr:         "",
	}
}

// Validate checks that cfg's fields are internally consistent.
func (c *Config) Validate() error {
	if c.ElectionTimeoutBase <= 0 {
		return fmt.Errorf("config: election_timeout_base must be positive, got %s", c.ElectionTimeoutBase)
	}
	if c.MaintenanceTick <= 0 {
		return fmt.Errorf("config: maintenance_tick must be positive, got %s", c.MaintenanceTick)
	}
	if c.MaintenanceTick >= c.ElectionTimeoutBase {
		return fmt.Errorf("config: maintenance_tick (%s) must be smaller than election_timeout_base (%s)", c.MaintenanceTick, c.ElectionTimeoutBase)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return nil
}

// HeartbeatInterval is T/2, per spec.md §5.
func (c *Config) HeartbeatInterval() time.Duration {
	return c.ElectionTimeoutBase / 2
}

// String renders cfg for startup logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{ElectionTimeoutBase: %s, MaintenanceTick: %s, LogLevel: %s, LogJSON: %v, MetricsAddr: %q}",
		c.ElectionTimeoutBase, c.MaintenanceTick, c.LogLevel, c.LogJSON, c.MetricsAddr,
	)
}

// Manager loads a Config from a file and/or the environment via viper and
// hands back immutable snapshots through Get.
type Manager struct {
	v        *viper.Viper
	cfg      *Config
	onReload []func(*Config)
}

// NewManager returns a Manager seeded with DefaultConfig.
func NewManager() *Manager {
	v := viper.New()
	v.SetDefault("election_timeout_ms", 2000)
	v.SetDefault("maintenance_tick_ms", 200)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("metrics_addr", "")
	return &Manager{v: v, cfg: DefaultConfig()}
}

// LoadFromFile reads path (any format viper supports: TOML, YAML, JSON,
// .env) and merges it into the current configuration.
func (m *Manager) LoadFromFile(path string) error {
	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	m.sync()
	m.cfg.ConfigFile = path
	return nil
}

// LoadFromEnv binds the RAFTKV_* environment variables and merges them in,
// taking precedence over file-sourced values.
func (m *Manager) LoadFromEnv() {
	m.v.BindEnv("election_timeout_ms", EnvElectionTimeout)
	m.v.BindEnv("maintenance_tick_ms", EnvMaintenanceTick)
	m.v.BindEnv("log_level", EnvLogLevel)
	m.v.BindEnv("log_json", EnvLogJSON)
	m.v.BindEnv("metrics_addr", EnvMetricsAddr)
	m.sync()
}

func (m *Manager) sync() {
	configFile := m.cfg.ConfigFile
	m.cfg = &Config{
		ElectionTimeoutBase: time.Duration(m.v.GetInt("election_timeout_ms")) * time.Millisecond,
		MaintenanceTick:     time.Duration(m.v.GetInt("maintenance_tick_ms")) * time.Millisecond,
		LogLevel:            m.v.GetString("log_level"),
		LogJSON:             m.v.GetBool("log_json"),
		MetricsAddr:         m.v.GetString("metrics_addr"),
		ConfigFile:          configFile,
	}
}

// Get returns the current Config snapshot.
func (m *Manager) Get() *Config {
	return m.cfg
}

// Reload re-reads the file previously passed to LoadFromFile and notifies
// any callback registered via OnReload.
func (m *Manager) Reload() error {
	if m.cfg.ConfigFile == "" {
		return fmt.Errorf("config: Reload called with no config file loaded")
	}
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: reload: %w", err)
	}
	m.sync()
	for _, cb := range m.onReload {
		cb(m.cfg)
	}
	return nil
}

// OnReload registers cb to run after every successful Reload.
func (m *Manager) OnReload(cb func(*Config)) {
	m.onReload = append(m.onReload, cb)
}

var global *Manager

// Global returns the process-wide Manager, creating it on first use.
func Global() *Manager {
	if global == nil {
		global = NewManager()
	}
	return global
}
