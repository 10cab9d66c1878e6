package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SelectorConfig holds the uplink selector settings used on the router.
type SelectorConfig struct {
	// LANNetwork is the UCI name of the LAN network kept first in the relay list.
	LANNetwork string `yaml:"lan_network"`
	// LockFile is the path of the advisory lock guarding concurrent runs.
	LockFile string `yaml:"lock_file"`
	// RelayService is the init.d service name used to restart the relay.
	RelayService string `yaml:"relay_service"`
	// RelayCommand is the executable name looked up in the process table.
	RelayCommand string `yaml:"relay_command"`
	// Wifi5Ifname is the client interface bound to the 5 GHz radio.
	Wifi5Ifname string `yaml:"wifi5_ifname"`
	// Wifi2Ifname is the client interface bound to the 2.4 GHz radio.
	Wifi2Ifname string `yaml:"wifi2_ifname"`
	// AndroidIfname is the interface created by Android USB tethering.
	AndroidIfname string `yaml:"android_ifname"`
	// IphoneIfname is the interface created by iPhone USB tethering.
	IphoneIfname string `yaml:"iphone_ifname"`
	// Wifi5LED and Wifi2LED are the sysfs LED names for the Wi-Fi uplinks.
	Wifi5LED string `yaml:"wifi5_led"`
	Wifi2LED string `yaml:"wifi2_led"`
	// USBLEDFormat builds a USB LED name from the physical port number.
	USBLEDFormat string `yaml:"usb_led_format"`
	// UplinkLEDs is the full set of uplink LED names; exactly one may be on.
	UplinkLEDs []string `yaml:"uplink_leds"`
}

// BuildConfig holds the firmware assembly settings used on a workstation.
type BuildConfig struct {
	// ImageBuilderURL is where the vendor image-builder tarball is downloaded from.
	ImageBuilderURL string `yaml:"imagebuilder_url"`
	// ImageBuilderSHA256 is the hex checksum the downloaded tarball must match.
	ImageBuilderSHA256 string `yaml:"imagebuilder_sha256"`
	// WorkDir is where the toolchain is extracted and images are produced.
	WorkDir string `yaml:"work_dir"`
	// Profiles lists the image profiles to build, one image per entry.
	Profiles []string `yaml:"profiles"`
	// Packages is the package list passed to the external build tool.
	Packages []string `yaml:"packages"`
	// Hostname, Timezone and LANIPAddr are substituted into the overlay files.
	Hostname  string `yaml:"hostname"`
	Timezone  string `yaml:"timezone"`
	LANIPAddr string `yaml:"lan_ipaddr"`
	// Wifi5SSID/Wifi5Key and Wifi2SSID/Wifi2Key configure the relay's own AP
	// and the two Wi-Fi uplink client profiles.
	Wifi5SSID string `yaml:"wifi5_ssid"`
	Wifi5Key  string `yaml:"wifi5_key"`
	Wifi2SSID string `yaml:"wifi2_ssid"`
	Wifi2Key  string `yaml:"wifi2_key"`
}

// UpdateConfig holds self-update settings for the router-side binaries.
type UpdateConfig struct {
	// Folder is the URL where the version manifest and artifacts are hosted.
	Folder string `yaml:"folder"`
}

// Config is the top-level settings document shared by the binaries.
type Config struct {
	Selector SelectorConfig `yaml:"selector"`
	Build    BuildConfig    `yaml:"build"`
	Update   UpdateConfig   `yaml:"update"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "tetherwrt.yaml"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBadLANAddress is returned when the configured LAN address does not parse.
	errBadLANAddress = errors.New("lan address is not a valid IPv4 address")
)

// Load reads configuration from the provided path, applies defaults and
// validates what can be validated without knowing which binary is running.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load, except that a missing default settings
// file yields the pure defaults instead of an error. Router-side binaries
// use it: the defaults fully describe the target model.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}

	if path == "" && errors.Is(err, os.ErrNotExist) {
		cfg = new(Config)
		if err := Validate(cfg); err != nil {
			return nil, err
		}

		return cfg, nil
	}

	return nil, err
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may carry Wi-Fi keys.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks field formats. Requirements specific to
// a single binary (e.g. the image-builder URL) are checked by that binary's
// service, not here.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applySelectorDefaults(&cfg.Selector)
	applyBuildDefaults(&cfg.Build)

	if cfg.Build.LANIPAddr != "" {
		if ip := net.ParseIP(cfg.Build.LANIPAddr); ip == nil || ip.To4() == nil {
			return fmt.Errorf("%q: %w", cfg.Build.LANIPAddr, errBadLANAddress)
		}
	}

	if cfg.Build.ImageBuilderURL != "" {
		if _, err := url.ParseRequestURI(cfg.Build.ImageBuilderURL); err != nil {
			return fmt.Errorf("invalid image-builder URL: %w", err)
		}
	}

	if cfg.Update.Folder != "" {
		if _, err := url.ParseRequestURI(cfg.Update.Folder); err != nil {
			return fmt.Errorf("invalid update folder URI: %w", err)
		}
	}

	return nil
}

// applySelectorDefaults sets the fixed router-model defaults for any selector
// field left empty.
func applySelectorDefaults(s *SelectorConfig) {
	if s.LANNetwork == "" {
		s.LANNetwork = "lan"
	}

	if s.LockFile == "" {
		s.LockFile = "/var/lock/relay-select.lock"
	}

	if s.RelayService == "" {
		s.RelayService = "relayd"
	}

	if s.RelayCommand == "" {
		s.RelayCommand = "relayd"
	}

	if s.Wifi5Ifname == "" {
		s.Wifi5Ifname = "wlan0"
	}

	if s.Wifi2Ifname == "" {
		s.Wifi2Ifname = "wlan1"
	}

	if s.AndroidIfname == "" {
		s.AndroidIfname = "usb0"
	}

	if s.IphoneIfname == "" {
		s.IphoneIfname = "eth2"
	}

	if s.Wifi5LED == "" {
		s.Wifi5LED = "green:wlan5g"
	}

	if s.Wifi2LED == "" {
		s.Wifi2LED = "green:wlan2g"
	}

	if s.USBLEDFormat == "" {
		s.USBLEDFormat = "green:usb%d"
	}

	if len(s.UplinkLEDs) == 0 {
		s.UplinkLEDs = []string{s.Wifi5LED, s.Wifi2LED, "green:usb1", "green:usb2"}
	}
}

// applyBuildDefaults sets workstation-side defaults for any build field left empty.
func applyBuildDefaults(b *BuildConfig) {
	if b.WorkDir == "" {
		b.WorkDir = "build"
	}

	if b.Hostname == "" {
		b.Hostname = "tether-relay"
	}

	if b.Timezone == "" {
		b.Timezone = "UTC"
	}

	if b.LANIPAddr == "" {
		b.LANIPAddr = "192.168.8.1"
	}
}
