package loader

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/rustyeddy/trendline/internal/errs"
)

// Encodings understood by Decode.
const (
	EncodingAuto  = "auto"
	EncodingUTF8  = "utf-8"
	EncodingGBK   = "gbk"
	EncodingUTF16 = "utf-16"
)

// Decode returns a UTF-8 reader over r. Auto detection honors a UTF-8 or
// UTF-16 byte order mark, then accepts valid UTF-8, then falls back to GBK,
// the usual encoding of mainland broker exports.
func Decode(r io.Reader, enc string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", EncodingAuto:
		return decodeAuto(r)
	case EncodingUTF8, "utf8":
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder()), nil
	case EncodingGBK, "gb2312", "gb18030":
		return transform.NewReader(r, simplifiedchinese.GB18030.NewDecoder()), nil
	case EncodingUTF16, "utf16":
		// little endian unless a BOM says otherwise
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(r, dec), nil
	default:
		return nil, fmt.Errorf("%w: encoding %q (auto, utf-8, gbk, utf-16)", errs.ErrInvalidParameter, enc)
	}
}

func decodeAuto(r io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	if hasBOM(data) {
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		return transform.NewReader(bytes.NewReader(data), dec), nil
	}
	if utf8.Valid(data) {
		return bytes.NewReader(data), nil
	}
	return transform.NewReader(bytes.NewReader(data), simplifiedchinese.GB18030.NewDecoder()), nil
}

func hasBOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(b, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(b, []byte{0xFE, 0xFF})
}
