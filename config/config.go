// Package config loads the TOML configuration that drives nftracker's
// collectors: the local subnets, the WAN interface name, and the paths and
// retention window used by the collectors.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/untoldwind/nftracker/subnet"
)

// Config is the user-supplied configuration delivered to the collectors.
type Config struct {
	LocalSubnets   []subnet.Subnet
	WANInterface   string
	ConntrackFile  string
	DeviceFile     string
	LeasesFile     string
	RetainData     time.Duration
}

// rawConfig mirrors the TOML document shape; Subnet and time.Duration need
// custom decoding so the public Config is parsed through this first.
type rawConfig struct {
	LocalSubnets  []string `toml:"local_subnets"`
	WANInterface  string   `toml:"wan_interface"`
	ConntrackFile string   `toml:"conntrack_file"`
	DeviceFile    string   `toml:"device_file"`
	LeasesFile    string   `toml:"leases_file"`
	RetainData    string   `toml:"retain_data"`
}

const (
	defaultConntrackFile = "/proc/net/nf_conntrack"
	defaultDeviceFile    = "/proc/net/dev"
	defaultLeasesFile    = "/var/lib/misc/dnsmasq.leases"
	defaultRetainData    = 5 * time.Minute
)

// Load reads and parses the TOML config file at path. Any failure here
// (missing file, malformed TOML, malformed subnet) is a fatal configuration
// error: the caller is expected to abort startup rather than fall back to
// defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return fromRaw(raw)
}

func fromRaw(raw rawConfig) (Config, error) {
	if len(raw.LocalSubnets) == 0 {
		return Config{}, fmt.Errorf("config: local_subnets must not be empty")
	}
	if raw.WANInterface == "" {
		return Config{}, fmt.Errorf("config: wan_interface is required")
	}

	subnets := make([]subnet.Subnet, len(raw.LocalSubnets))
	for i, s := range raw.LocalSubnets {
		sn, err := subnet.Parse(s)
		if err != nil {
			return Config{}, fmt.Errorf("config: local_subnets[%d]: %w", i, err)
		}
		subnets[i] = sn
	}

	cfg := Config{
		LocalSubnets:  subnets,
		WANInterface:  raw.WANInterface,
		ConntrackFile: raw.ConntrackFile,
		DeviceFile:    raw.DeviceFile,
		LeasesFile:    raw.LeasesFile,
		RetainData:    defaultRetainData,
	}
	if cfg.ConntrackFile == "" {
		cfg.ConntrackFile = defaultConntrackFile
	}
	if cfg.DeviceFile == "" {
		cfg.DeviceFile = defaultDeviceFile
	}
	if cfg.LeasesFile == "" {
		cfg.LeasesFile = defaultLeasesFile
	}
	if raw.RetainData != "" {
		d, err := time.ParseDuration(raw.RetainData)
		if err != nil {
			return Config{}, fmt.Errorf("config: retain_data: %w", err)
		}
		if d < time.Second {
			return Config{}, fmt.Errorf("config: retain_data must be at least 1s, got %v", d)
		}
		cfg.RetainData = d
	}

	return cfg, nil
}
