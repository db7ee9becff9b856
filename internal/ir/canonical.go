package ir

import (
	"bytes"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/nlq/internal/errors"
)

// MarshalCanonical serializes the canonical tree of a query or statement.
//
// Object keys are written in UTF-16 order, strings are NFC and only the
// characters JSON requires are escaped. Decimals and dates are written as
// strings so their exact spelling survives. Null has no canonical form;
// absent values are left out of the tree instead.
func MarshalCanonical(v IRValue) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v IRValue) error {
	switch val := v.(type) {
	case IRString:
		writeString(buf, string(val))
	case IRDecimal:
		writeString(buf, string(val))
	case IRDate:
		writeString(buf, string(val))
	case IRInt:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case IRBool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case IRArray:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return errors.Wrapf(err, "[%d]", i)
			}
		}
		buf.WriteByte(']')
	case IRObject:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return errors.Wrapf(err, "%q", k)
			}
		}
		buf.WriteByte('}')
	case nil, IRNull:
		return errors.New("null has no canonical form")
	default:
		return errors.Newf("no canonical form for %T", v)
	}
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString quotes s after NFC normalization. Quote, backslash and
// control characters are escaped; everything else is written as is.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[r>>4])
				buf.WriteByte(hexDigits[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}
