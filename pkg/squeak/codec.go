package squeak

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	// errorPrefix marks a payload as a rejected query.
	errorPrefix = "Error:"

	// maxPayloadSize bounds a single response. The largest answers are
	// getAllClasses on big images, which stay well below this.
	maxPayloadSize = 64 << 20

	// maxLengthLine bounds the decimal length header.
	maxLengthLine = 32
)

// Names the image lists may contain characters that cannot appear in a file
// name. They are replaced by these tokens on the way in and restored on the
// way out, so a name read from a listing can be sent back unchanged.
var (
	nameEscaper = strings.NewReplacer(
		`\`, "__BACKSLASH__",
		"/", "__SLASH__",
		"*", "__STAR__",
	)
	nameUnescaper = strings.NewReplacer(
		"__BACKSLASH__", `\`,
		"__SLASH__", "/",
		"__STAR__", "*",
	)
	newlineNormalizer = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// EscapeName replaces '\', '/' and '*' in a listed name with escape tokens.
func EscapeName(name string) string {
	return nameEscaper.Replace(name)
}

// UnescapeName reverses EscapeName.
func UnescapeName(name string) string {
	return nameUnescaper.Replace(name)
}

// NormalizeText converts the image's CR line endings to LF and appends the
// trailing newline every text answer carries.
func NormalizeText(text string) string {
	return newlineNormalizer.Replace(text) + "\n"
}

// LookupEncoding returns the text encoding for an image encoding name:
// "latin1" (ISO-8859-1, the default of ByteString), "macroman" or "utf8".
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "macroman", "macintosh":
		return charmap.Macintosh, nil
	case "utf8", "utf-8":
		return unicode.UTF8, nil
	default:
		return nil, fmt.Errorf("unsupported image encoding %q", name)
	}
}

// encodeRequest renders one request line: the selector, each argument after
// a TAB, then LF. Escape tokens in arguments are restored first.
func encodeRequest(enc encoding.Encoding, selector string, args []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(selector)

	encoder := enc.NewEncoder()
	for _, arg := range args {
		arg = UnescapeName(arg)
		if strings.ContainsAny(arg, "\t\n") {
			return nil, &Error{Code: ErrInvalidArgument, Selector: selector, Message: fmt.Sprintf("argument %q contains a separator", arg)}
		}
		raw, err := encoder.String(arg)
		if err != nil {
			return nil, &Error{Code: ErrInvalidArgument, Selector: selector, Message: fmt.Sprintf("argument %q", arg), Err: err}
		}
		buf.WriteByte('\t')
		buf.WriteString(raw)
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// readFrame reads one "<length>\n<payload>" response.
func readFrame(r *bufio.Reader) ([]byte, error) {
	header, err := readLengthLine(r)
	if err != nil {
		return nil, err
	}

	size, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || size < 0 {
		return nil, &Error{Code: ErrProtocol, Message: fmt.Sprintf("bad length header %q", header)}
	}
	if size > maxPayloadSize {
		return nil, &Error{Code: ErrProtocol, Message: fmt.Sprintf("payload of %d bytes exceeds limit", size)}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return payload, nil
}

func readLengthLine(r *bufio.Reader) (string, error) {
	var line []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("read length header: %w", err)
		}
		if b == '\n' {
			return string(line), nil
		}
		line = append(line, b)
		if len(line) > maxLengthLine {
			return "", &Error{Code: ErrProtocol, Message: "length header too long"}
		}
	}
}

// decodePayload converts raw payload bytes to a Go string in UTF-8.
func decodePayload(enc encoding.Encoding, raw []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", &Error{Code: ErrProtocol, Message: "undecodable payload", Err: err}
	}
	return string(out), nil
}

// parseList splits a CR separated answer into escaped names.
func parseList(payload string) []string {
	payload = strings.TrimRight(payload, "\r")
	if payload == "" {
		return []string{}
	}
	items := strings.Split(payload, "\r")
	for i, item := range items {
		items[i] = EscapeName(item)
	}
	return items
}

func parseInt(selector, payload string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil {
		return 0, &Error{Code: ErrProtocol, Selector: selector, Message: fmt.Sprintf("expected integer, got %q", payload)}
	}
	return n, nil
}
