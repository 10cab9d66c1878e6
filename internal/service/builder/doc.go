// Package builder assembles the custom firmware images on a workstation.
// It downloads the vendor image-builder toolchain, verifies and extracts
// it, renders the fixed configuration overlay from embedded templates, and
// delegates the actual image construction to the toolchain's make target,
// once per configured profile.
package builder
