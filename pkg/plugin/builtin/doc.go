// Package builtin ships the plugins compiled into the host binary. They
// register themselves with the plugin entry-point index at import time, so a
// blank import of this package is enough to make them discoverable.
package builtin
