package leds

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Controller reads and writes the state of named status LEDs.
type Controller interface {
	// IsOn reports whether the LED is at full brightness. A LED that is
	// not present on this hardware reports false without error.
	IsOn(name string) (bool, error)
	// SetOn drives the LED to full brightness.
	SetOn(name string) error
	// SetOff turns the LED off. Missing LEDs are ignored, so a fixed
	// "all others off" sweep works across hardware variants.
	SetOff(name string) error
}

// SysfsController drives LEDs through the kernel's leds class files.
type SysfsController struct {
	// root is the leds class directory, /sys/class/leds in production.
	root string
}

// DefaultRoot is the kernel's leds class directory.
const DefaultRoot = "/sys/class/leds"

// fallbackMaxBrightness is assumed when max_brightness is unreadable.
const fallbackMaxBrightness = 255

// NewSysfsController returns a Controller over the given leds class
// directory; an empty root selects DefaultRoot.
func NewSysfsController(root string) *SysfsController {
	if root == "" {
		root = DefaultRoot
	}

	return &SysfsController{root: root}
}

// IsOn compares the LED's brightness with its maximum.
func (c *SysfsController) IsOn(name string) (bool, error) {
	current, err := c.readValue(name, "brightness")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	maximum, err := c.readValue(name, "max_brightness")
	if err != nil {
		maximum = fallbackMaxBrightness
	}

	return maximum > 0 && current >= maximum, nil
}

// SetOn drives the LED to its maximum brightness.
func (c *SysfsController) SetOn(name string) error {
	maximum, err := c.readValue(name, "max_brightness")
	if err != nil {
		maximum = fallbackMaxBrightness
	}

	return c.writeBrightness(name, maximum)
}

// SetOff turns the LED off, ignoring LEDs absent on this hardware.
func (c *SysfsController) SetOff(name string) error {
	err := c.writeBrightness(name, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}

// readValue reads an integer attribute of the named LED.
func (c *SysfsController) readValue(name, attribute string) (int, error) {
	contents, err := os.ReadFile(filepath.Join(c.root, name, attribute))
	if err != nil {
		return 0, fmt.Errorf("read led %s/%s: %w", name, attribute, err)
	}

	value, err := strconv.Atoi(string(bytes.TrimSpace(contents)))
	if err != nil {
		return 0, fmt.Errorf("parse led %s/%s: %w", name, attribute, err)
	}

	return value, nil
}

// writeBrightness writes the brightness attribute of the named LED.
func (c *SysfsController) writeBrightness(name string, value int) error {
	path := filepath.Join(c.root, name, "brightness")
	if err := os.WriteFile(path, []byte(strconv.Itoa(value)), 0o644); err != nil {
		return fmt.Errorf("write led %s: %w", name, err)
	}

	return nil
}
