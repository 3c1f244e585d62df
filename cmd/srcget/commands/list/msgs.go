package list

// Message constants
const (
	MsgShort = "List installed packages"
	MsgLong  = `The 'list' command shows every package in the install database with
its installed version.`

	MsgExample = `  # List installed packages
  srcget list`

	MsgNoPackages = "No packages installed"
)
