// Package initd restarts services through their init scripts.
package initd
