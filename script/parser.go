package script

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

const (
	// CommentPrefix starts a comment line
	CommentPrefix = "#"

	// MaxLineLength is the longest accepted line in bytes
	MaxLineLength = 64 * 1024

	// DefaultStatementCapacity is the default initial capacity for the statements slice
	DefaultStatementCapacity = 32
)

// ParseError reports a malformed script line.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse parses a recovery shell script from the given file path.
//
// Example:
//
//	sc, err := script.Parse("boot.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d statements\n", len(sc.Statements))
func Parse(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f)
}

// ParseReader parses a recovery shell script from any io.Reader.
// Statements after an exit are kept; the runner stops at the exit.
//
// Example:
//
//	sc, err := script.ParseReader(strings.NewReader("getenv build-version\nreboot\n"))
func ParseReader(r io.Reader) (*Script, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineLength)

	sc := &Script{
		Statements: make([]*Statement, 0, DefaultStatementCapacity),
	}

	lineNum := 0
	for scanner.Scan() {
		lineNum++

		stmt, ok, err := ParseLine(scanner.Text())
		if err != nil {
			return nil, &ParseError{Line: lineNum, Text: scanner.Text(), Err: err}
		}
		if !ok {
			continue
		}

		stmt.Line = lineNum
		sc.Statements = append(sc.Statements, stmt)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	return sc, nil
}

// ParseLine parses a single line. It returns ok == false for blank lines and
// comments. The interactive shell uses it for each line typed.
//
// Recognized forms:
//
//	exit
//	getenv <name>
//	info [key]
//	<anything else>   sent verbatim as a command
func ParseLine(line string) (stmt *Statement, ok bool, err error) {
	raw := strings.TrimSpace(line)
	if raw == "" || strings.HasPrefix(raw, CommentPrefix) {
		return nil, false, nil
	}

	keyword, arg := raw, ""
	if i := strings.IndexFunc(raw, unicode.IsSpace); i >= 0 {
		keyword, arg = raw[:i], strings.TrimSpace(raw[i:])
	}

	stmt = &Statement{Kind: KindCommand, Raw: raw}
	switch keyword {
	case "exit":
		if arg != "" {
			return nil, false, fmt.Errorf("exit takes no arguments")
		}
		stmt.Kind = KindExit
	case "getenv":
		if arg == "" {
			return nil, false, fmt.Errorf("getenv requires a variable name")
		}
		stmt.Kind = KindGetEnv
		stmt.Arg = arg
	case "info":
		stmt.Kind = KindInfo
		stmt.Arg = arg
	}

	return stmt, true, nil
}
