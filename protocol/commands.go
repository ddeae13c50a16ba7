package protocol

// BuildCommand frames a command for the command control request.
// iBoot expects the text followed by a single NUL byte. The text itself is
// sent verbatim.
//
// Frame structure:
//
//	[TEXT...][0x00]
func BuildCommand(text string) []byte {
	frame := make([]byte, len(text)+1)
	copy(frame, text)
	return frame
}

// GetEnvCommand returns the command that stages an environment variable for
// the following env read request.
func GetEnvCommand(name string) string {
	return "getenv " + name
}

// SetEnvCommand returns the command that assigns an environment variable.
func SetEnvCommand(name, value string) string {
	return "setenv " + name + " " + value
}

// ParseEnvResponse extracts the value from an env read reply.
// The value ends at the first NUL byte or at the end of the buffer.
func ParseEnvResponse(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}
