package recipe

// Message constants
const (
	MsgShort = "Show the resolved recipe for a package"
	MsgLong  = `The 'recipe' command resolves a package name through the configured
recipe directories and prints the winning recipe. Useful to check which
source a name resolves to before installing.`

	MsgExample = `  # Show the recipe that would be used
  srcget recipe magit`
)
