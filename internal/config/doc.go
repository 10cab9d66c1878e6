// Package config defines the settings document shared by the tetherwrt
// binaries and provides helpers to load, validate and save it in YAML format.
//
// Router-side binaries read the selector and update sections, the firmware
// builder reads the build section. Defaults match the target router model,
// so an empty file is a valid configuration for the selector.
package config
