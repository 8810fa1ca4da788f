package protocol

import (
	"bytes"
	"fmt"
	"strconv"
)

// Encode formats a RESP multi-bulk array command from args, each of which
// must be a string, []byte, int, int64, or uint64. This is the wire form every
// RESP-speaking server accepts, superseding the inline %s/%b form the
// reference tool's earliest version used.
func Encode(args ...interface{}) []byte {
	var buf bytes.Buffer
	buf.WriteByte('*')
	buf.WriteString(strconv.Itoa(len(args)))
	buf.WriteString("\r\n")
	for _, arg := range args {
		b := argBytes(arg)
		buf.WriteByte('$')
		buf.WriteString(strconv.Itoa(len(b)))
		buf.WriteString("\r\n")
		buf.Write(b)
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

func argBytes(arg interface{}) []byte {
	switch v := arg.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	case int:
		return []byte(strconv.Itoa(v))
	case int64:
		return []byte(strconv.FormatInt(v, 10))
	case uint64:
		return []byte(strconv.FormatUint(v, 10))
	default:
		panic(fmt.Sprintf("protocol: Encode got unsupported arg type %T", arg))
	}
}
