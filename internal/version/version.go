package version

import "runtime"

// BuildDate and GitHash are stamped at build time via -ldflags. Empty values
// mean a local development build.
var (
	BuildDate string
	GitHash   string
)

var (
	AppName        = "after2"
	AppDescription = "Telegram bot that relays anonymous submissions to a channel and proxies media downloads"
	GoVersion      = runtime.Version()
)
