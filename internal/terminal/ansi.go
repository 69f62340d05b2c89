package terminal

// ANSI escape sequences used by the screens.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"

	FgRed     = "\033[31m"
	FgGreen   = "\033[32m"
	FgBrown   = "\033[33m"
	FgBlue    = "\033[34m"
	FgMagenta = "\033[35m"
	FgCyan    = "\033[36m"
	FgGray    = "\033[37m"

	FgBrightRed   = "\033[1;31m"
	FgBrightGreen = "\033[1;32m"
	FgYellow      = "\033[1;33m"
	FgBrightCyan  = "\033[1;36m"
	FgWhite       = "\033[1;37m"

	ClearScreen = "\033[2J\033[1;1H"
)
