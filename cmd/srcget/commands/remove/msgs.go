package remove

// Message constants
const (
	MsgShort = "Uninstall package(s)"
	MsgLong  = `The 'remove' command deletes packages from the install database and
drops their build cache entries. Fetched sources and build output are
left in place, so a later reinstall of unchanged sources is a no-op
rebuild.`

	MsgExample = `  # Remove a package
  srcget remove magit

  # Remove several packages
  srcget remove magit evil`

	MsgRemoved      = "%s removed"
	MsgNotInstalled = "%s is not installed"
)
