package internal

// Version is the cardstudio release, overridden at build time via -ldflags
var Version = "0.3.0"
