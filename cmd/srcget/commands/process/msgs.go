package process

// Message constants
const (
	MsgShort = "Build and install every queued package"
	MsgLong  = `The 'process' command drains the deferred-install backlog. Each entry
is built to discover its dependencies, and installed once every queued
dependency has been installed at its required version. Entries whose
dependencies never become installable are reported and left queued.`

	MsgExample = `  # Queue a few packages, then install them in dependency order
  srcget install --defer evil magit
  srcget process`

	MsgInstalled = "%s installed"
	MsgFailed    = "%s failed: %v"
	MsgStalled   = "Some queued packages are stuck on unmet dependencies; they remain queued"
	MsgEmpty     = "The queue is empty"
)
