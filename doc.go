/*
Package adb manages Android devices by driving the adb command-line tool.

Every operation runs the adb binary once and inspects its output. The
Registry keeps an in-memory view of the devices reported by
`adb devices -l`, keyed by serial; it is not safe for concurrent use.

	server := adb.NewDefault()
	registry := adb.NewRegistry(server)
	if _, err := registry.Resync(ctx); err != nil {
		// handle error
	}
	for _, device := range registry.Devices() {
		out, err := device.Shell(ctx, "getprop", "ro.product.model")
		...
	}

See README for more information. Use `go doc` for documentation.
*/
package adb
