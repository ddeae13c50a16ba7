package protocol

import (
	"errors"
	"strconv"
	"strings"
)

// ParseSerialString parses the USB serial-number string of a recovery-mode
// device.
//
// Format (space separated KEY:VALUE pairs, numeric values in hex, bracketed
// values may contain spaces):
//
//	CPID:8930 CPRV:20 CPFM:03 SCEP:01 BDID:00 ECID:000002A1C4D10C8E IBFL:1B SRNM:[XXXXXXXXXXXX] SRTG:[iBoot-1145.3]
//
// Unknown keys are ignored. ECID and CPID are required. Fields are checked
// in the order of the format above, so the first malformed one is reported.
func ParseSerialString(s string) (*DeviceInfo, error) {
	fields := splitSerialFields(s)
	info := &DeviceInfo{}
	var haveCPID, haveECID bool

	for _, key := range serialKeys {
		value, ok := fields[key]
		if !ok {
			continue
		}
		var err error
		switch key {
		case "CPID":
			info.CPID, err = parseHex32(value)
			haveCPID = err == nil
		case "CPRV":
			info.CPRV, err = parseHex32(value)
		case "CPFM":
			info.CPFM, err = parseHex32(value)
		case "SCEP":
			info.SCEP, err = parseHex32(value)
		case "BDID":
			info.BDID, err = parseHex32(value)
		case "IBFL":
			info.IBFL, err = parseHex32(value)
		case "ECID":
			info.ECID, err = strconv.ParseUint(value, 16, 64)
			haveECID = err == nil
		case "SRNM":
			info.SerialNumber = value
		case "SRTG":
			info.Tag = value
		}
		if err != nil {
			return nil, &ParseError{Field: key, Value: value, Err: err}
		}
	}

	if !haveCPID {
		return nil, &ParseError{Field: "CPID", Err: errors.New("missing")}
	}
	if !haveECID {
		return nil, &ParseError{Field: "ECID", Err: errors.New("missing")}
	}
	return info, nil
}

// serialKeys lists the known serial-string keys in the order iBoot emits them.
var serialKeys = []string{"CPID", "CPRV", "CPFM", "SCEP", "BDID", "ECID", "IBFL", "SRNM", "SRTG"}

// splitSerialFields splits the serial string into KEY -> VALUE with brackets
// stripped from bracketed values.
func splitSerialFields(s string) map[string]string {
	fields := make(map[string]string)
	for len(s) > 0 {
		s = strings.TrimLeft(s, " ")
		colon := strings.IndexByte(s, ':')
		if colon <= 0 {
			break
		}
		key := s[:colon]
		s = s[colon+1:]

		var value string
		if strings.HasPrefix(s, "[") {
			end := strings.IndexByte(s, ']')
			if end < 0 {
				value, s = s[1:], ""
			} else {
				value, s = s[1:end], s[end+1:]
			}
		} else {
			end := strings.IndexByte(s, ' ')
			if end < 0 {
				value, s = s, ""
			} else {
				value, s = s[:end], s[end:]
			}
		}
		fields[key] = value
	}
	return fields
}

func parseHex32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 16, 32)
	return uint32(v), err
}
