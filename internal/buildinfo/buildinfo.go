package buildinfo

// Release builds set these with -ldflags "-X .../buildinfo.Version=...".
// They default to empty for local/dev builds.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)
