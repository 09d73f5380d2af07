// Package config loads the automation-server launch descriptor from a JSON
// file of the familiar mcpServers shape:
//
//	{"mcpServers": {"playwright": {"command": "docker", "args": [...], "url": "http://..."}}}
//
// The descriptor is passed to the launcher verbatim and never interpreted.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"webpilot/internal/domain/entity"
)

const DefaultPath = "config.json"

type file struct {
	MCPServers map[string]serverEntry `json:"mcpServers"`
}

type serverEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	URL     string   `json:"url"`
}

// LoadLaunchSpec reads the descriptor for the named server. An empty name
// selects the sole configured server, or "playwright" when several exist.
func LoadLaunchSpec(path, name string) (entity.LaunchSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.LaunchSpec{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg file
	if err := json.Unmarshal(data, &cfg); err != nil {
		return entity.LaunchSpec{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.MCPServers) == 0 {
		return entity.LaunchSpec{}, fmt.Errorf("config %s has no mcpServers section", path)
	}

	if name == "" {
		if len(cfg.MCPServers) == 1 {
			for k := range cfg.MCPServers {
				name = k
			}
		} else {
			name = "playwright"
		}
	}

	entry, ok := cfg.MCPServers[name]
	if !ok {
		return entity.LaunchSpec{}, fmt.Errorf("config %s: no server named %q", path, name)
	}
	if entry.Command == "" || entry.URL == "" {
		return entity.LaunchSpec{}, fmt.Errorf("server %q must define both command and url", name)
	}

	return entity.LaunchSpec{
		Command:  entry.Command,
		Args:     entry.Args,
		ReadyURL: entry.URL,
	}, nil
}
