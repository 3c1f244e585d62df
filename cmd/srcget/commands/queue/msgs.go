package queue

// Message constants
const (
	MsgShort = "Show the deferred-install backlog"
	MsgLong  = `The 'queue' command lists the packages waiting for the next
'srcget process' run, most recently queued first.`

	MsgExample = `  # Show what is queued
  srcget queue`

	MsgEmpty = "The queue is empty"
)
