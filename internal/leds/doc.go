// Package leds drives the router's status LEDs through the sysfs leds
// class. The selector uses it to keep exactly one uplink indicator lit.
package leds
