package git

// ParseGitVersion exports parseGitVersion for testing.
var ParseGitVersion = parseGitVersion //nolint:gochecknoglobals // test export

// LocalRef exports localRef for testing.
var LocalRef = localRef //nolint:gochecknoglobals // test export

// HostOf exports hostOf for testing.
var HostOf = hostOf //nolint:gochecknoglobals // test export
