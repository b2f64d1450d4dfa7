package version

// Set from main, which receives them through -ldflags.
var (
	Version    string
	Commit     string
	CommitDate string
	TreeState  string
)
