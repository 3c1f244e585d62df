package install

// Message constants
const (
	MsgShort = "Fetch, build, and install package(s)"
	MsgLong  = `The 'install' command runs the full request path for each named package:
  - Resolves the recipe through the configured recipe directories
  - Fetches the source tree with the recipe's fetcher
  - Rebuilds the package only when the source content actually changed
  - Installs it when the built version is newer than the installed one

Installing a package that is already current is a cheap no-op.`

	MsgExample = `  # Install a package
  srcget install magit

  # Install several packages concurrently
  srcget install magit evil helm

  # Prefer the latest tagged release over a snapshot
  srcget install --stable magit

  # Force reinstall even if already current
  srcget install --upgrade magit

  # Enqueue for a later 'srcget process' run
  srcget install --defer magit`

	MsgFlagStable  = "Prefer tagged releases over snapshots"
	MsgFlagUpgrade = "Force rebuild and reinstall even if already current"
	MsgFlagDefer   = "Enqueue instead of installing now"

	MsgDeferred  = "%s queued for deferred installation"
	MsgInstalled = "%s installed at version %s"
	MsgUpToDate  = "%s is already up to date (version %s)"
	MsgFailed    = "%s failed: %v"
)
