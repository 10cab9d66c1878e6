// Package updater keeps the router-side binaries current. It fetches a
// version manifest from the configured update folder, compares SHA256
// checksums with the installed files and applies only the ones that
// changed. Runs are guarded by the same non-blocking lock primitive as the
// selector, so an update never races a selection pass against itself.
package updater
