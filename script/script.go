package script

// Kind identifies what a statement does.
type Kind int

const (
	// KindCommand sends the line verbatim and prints the device response
	KindCommand Kind = iota

	// KindGetEnv prints the value of an environment variable
	KindGetEnv

	// KindInfo prints device information; Arg is the key, if any
	KindInfo

	// KindExit stops execution
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindGetEnv:
		return "getenv"
	case KindInfo:
		return "info"
	case KindExit:
		return "exit"
	}
	return "unknown"
}

// Script represents a parsed recovery shell script.
type Script struct {
	// Statements in file order; comments and blank lines are dropped
	Statements []*Statement
}

// Statement is a single executable line.
type Statement struct {
	// Line is the 1-based line number in the source
	Line int

	// Kind selects how the statement is executed
	Kind Kind

	// Arg is the variable name for getenv and the key for info
	Arg string

	// Raw is the trimmed source line; it is the command text for KindCommand
	Raw string
}
