package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const englishCSV = `Date,Open,High,Low,Close,Volume,MA20
2024-01-03,10.5,11,10,10.8,1200,10.1
2024-01-02,10,10.6,9.8,10.4,"1,000",
2024-01-04,10.8,11.2,10.7,11.1,900,10.3
`

func TestLoad_EnglishHeader(t *testing.T) {
	t.Parallel()

	bars, err := Load(strings.NewReader(englishCSV), Options{})
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, date(2024, 1, 2), bars[0].Date, "sorted ascending")
	assert.Equal(t, 1000.0, bars[0].Volume)
	assert.Nil(t, bars[0].MA20)
	require.NotNil(t, bars[1].MA20)
	assert.Equal(t, 10.1, *bars[1].MA20)
	assert.Equal(t, market.Bar{
		Date: date(2024, 1, 4), Open: 10.8, High: 11.2, Low: 10.7, Close: 11.1, Volume: 900, MA20: market.Float(10.3),
	}, bars[2])
}

func TestLoad_ChineseGBKWithPreamble(t *testing.T) {
	t.Parallel()

	src := "平安银行 (000001)\n日线 前复权\n" +
		"时间,开盘,最高,最低,收盘,成交量\n" +
		"2024/01/02,9.39,9.42,9.21,9.21,1158366\n" +
		"2024/01/03,9.19,9.22,9.02,9.20,733610\n" +
		"数据来源:通达信\n"
	enc, err := simplifiedchinese.GBK.NewEncoder().String(src)
	require.NoError(t, err)

	for _, encoding := range []string{EncodingAuto, EncodingGBK} {
		t.Run(encoding, func(t *testing.T) {
			bars, err := Load(strings.NewReader(enc), Options{Encoding: encoding})
			require.NoError(t, err)
			require.Len(t, bars, 2, "trailing footer row is dropped")
			assert.Equal(t, date(2024, 1, 2), bars[0].Date)
			assert.Equal(t, 9.39, bars[0].Open)
			assert.Equal(t, 9.20, bars[1].Close)
			assert.Equal(t, 733610.0, bars[1].Volume)
		})
	}
}

func TestLoad_UTF16(t *testing.T) {
	t.Parallel()

	enc, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(englishCSV)
	require.NoError(t, err)

	for _, encoding := range []string{EncodingAuto, EncodingUTF16} {
		bars, err := Load(strings.NewReader(enc), Options{Encoding: encoding})
		require.NoError(t, err, encoding)
		assert.Len(t, bars, 3)
	}
}

func TestLoad_UTF8BOM(t *testing.T) {
	t.Parallel()

	bars, err := Load(strings.NewReader("\ufeff"+englishCSV), Options{Encoding: EncodingUTF8})
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestLoad_PositionalWithoutHeader(t *testing.T) {
	t.Parallel()

	src := "20240102,1,2,0.5,1.5,100\n20240103,1.5,2.5,1,2,200\n"
	bars, err := Load(strings.NewReader(src), Options{})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2.5, bars[1].High)
	assert.Equal(t, 200.0, bars[1].Volume)
}

func TestLoad_PositionalWhenHeaderUnrecognized(t *testing.T) {
	t.Parallel()

	src := "date,a,b,c,d\n2024-01-02,1,2,0.5,1.5\n"
	bars, err := Load(strings.NewReader(src), Options{})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].Close)
}

func TestLoad_DropsBadRowsAndDuplicates(t *testing.T) {
	t.Parallel()

	src := `date,open,high,low,close
2024-01-02,1,2,0.5,1.5
2024-01-02,9,9,9,9
2024-01-03,--,2,1,1
not a date,1,2,1,1
2024-01-04,1,2,1,1.8
`
	bars, err := Load(strings.NewReader(src), Options{})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.5, bars[0].Close, "first occurrence of a date wins")
	assert.Equal(t, date(2024, 1, 4), bars[1].Date)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		opt  Options
		want error
	}{
		{"empty", "", Options{}, errs.ErrInsufficientData},
		{"missing columns", "date,close\n2024-01-02,1\n", Options{}, errs.ErrMissingColumns},
		{"too narrow without header", "2024-01-02,1,2\n", Options{}, errs.ErrMissingColumns},
		{"nothing parses", "date,open,high,low,close\nx,y,z,w,v\n", Options{}, errs.ErrInsufficientData},
		{"bad encoding", englishCSV, Options{Encoding: "ebcdic"}, errs.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src), tt.opt)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(englishCSV), 0644))

	bars, err := LoadFile(path, Options{})
	require.NoError(t, err)
	assert.Len(t, bars, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	assert.Error(t, err)
}

func TestLoadFile_Compressed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		writer func(w io.Writer) (io.WriteCloser, error)
	}{
		{"bars.csv.xz", func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) }},
		{"bars.csv.lzma", func(w io.Writer) (io.WriteCloser, error) { return lzma.NewWriter(w) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			zw, err := tt.writer(&buf)
			require.NoError(t, err)
			_, err = zw.Write([]byte(englishCSV))
			require.NoError(t, err)
			require.NoError(t, zw.Close())

			path := filepath.Join(t.TempDir(), tt.name)
			require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

			bars, err := LoadFile(path, Options{})
			require.NoError(t, err)
			assert.Len(t, bars, 3)
		})
	}

	path := filepath.Join(t.TempDir(), "broken.csv.xz")
	require.NoError(t, os.WriteFile(path, []byte(englishCSV), 0644))
	_, err := LoadFile(path, Options{})
	assert.Error(t, err)
}

func TestDeriveMA20(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("date,open,high,low,close\n")
	for i := 1; i <= 25; i++ {
		d := date(2024, 1, 1).AddDate(0, 0, i)
		fmt.Fprintf(&sb, "%s,%d,%d,%d,%d\n", d.Format(market.DateLayout), i, i, i, i)
	}

	bars, err := Load(strings.NewReader(sb.String()), Options{DeriveMA20: true})
	require.NoError(t, err)
	require.Len(t, bars, 25)

	assert.Nil(t, bars[18].MA20)
	require.NotNil(t, bars[19].MA20)
	assert.InDelta(t, 10.5, *bars[19].MA20, 1e-9)
	assert.InDelta(t, 15.5, *bars[24].MA20, 1e-9)
}

func TestDeriveMA20_KeepsExistingAndShortSeries(t *testing.T) {
	t.Parallel()

	bars := make([]market.Bar, 20)
	for i := range bars {
		bars[i] = market.Bar{Date: date(2024, 2, 1).AddDate(0, 0, i), Close: 2}
	}
	bars[19].MA20 = market.Float(99)

	out := DeriveMA20(bars)
	assert.Equal(t, 99.0, *out[19].MA20)

	short := DeriveMA20(bars[:5])
	assert.Len(t, short, 5)
	for _, b := range short {
		assert.Nil(t, b.MA20)
	}
}
