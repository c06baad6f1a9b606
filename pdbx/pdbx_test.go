package pdbx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/pdbresolve/pkg/pdb"
)

func testInfo() *pdb.Info {
	return &pdb.Info{
		Age:              2,
		GUID:             uuid.MustParse("6b1f2a4c-9d3e-4f5a-8b7c-1d2e3f4a5b6c"),
		SourceServerData: "SRCSRV: ini ------------------------------------------------\nVERSION=2\n",
		Functions: []pdb.Function{
			{
				Module: "MyApp.TestLib.Class1",
				Name:   "Method1",
				Lines: []pdb.LineGroup{{
					File:     `C:\src\TestLib\Class1.cs`,
					Language: pdb.LanguageCSharp,
					Lines:    []pdb.Line{{Offset: 0, Line: 6}, {Offset: 1, Line: 7}, {Offset: 12, Line: pdb.HiddenLine}},
				}},
			},
			{
				Module: "MyApp.TestLib.Class1",
				Name:   "Method2",
				Lines: []pdb.LineGroup{
					{File: `C:\src\TestLib\Class1.cs`, Language: pdb.LanguageCSharp, Lines: []pdb.Line{{Offset: 8, Line: 19}}},
					{File: `C:\src\TestLib\Shared.vb`, Language: pdb.LanguageBasic, Lines: []pdb.Line{{Offset: 0, Line: 17}}},
				},
			},
			{
				Module: "MyApp.TestLib.Class2",
				Name:   ".ctor",
			},
		},
	}
}

func encode(t *testing.T, info *pdb.Info, opt ...Option) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, info, opt...))
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			data := encode(t, testInfo(), WithCompression(c))
			assert.Equal(t, c == CompressionNone, IsPdbx(data))

			info, err := Decode(bytes.NewReader(data), WithCRC())
			require.NoError(t, err)
			if diff := cmp.Diff(testInfo(), info); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecoder(t *testing.T) {
	info, err := Decoder{}.Decode(bytes.NewReader(encode(t, testInfo())))
	require.NoError(t, err)
	assert.Equal(t, pdb.DebugID{GUID: testInfo().GUID, Age: 2}, info.DebugID())
}

func TestStringsInterned(t *testing.T) {
	data := encode(t, testInfo())
	hdr, err := readHeader(data)
	require.NoError(t, err)
	strs, err := section(data, hdr.stringsTable, 1, "strings")
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(strs, []byte(`C:\src\TestLib\Class1.cs`)))
	assert.Equal(t, 1, bytes.Count(strs, []byte("MyApp.TestLib.Class1")))
}

func TestEmpty(t *testing.T) {
	info, err := Decode(bytes.NewReader(encode(t, &pdb.Info{})), WithCRC())
	require.NoError(t, err)
	assert.Empty(t, info.Functions)
	assert.Equal(t, "", info.SourceServerData)
	assert.Equal(t, uuid.Nil, info.GUID)

	assert.Error(t, Write(&bytes.Buffer{}, nil))
}

func TestCRCMismatch(t *testing.T) {
	data := encode(t, testInfo())
	hdr, err := readHeader(data)
	require.NoError(t, err)
	// bump the line number of the first line entry
	data[hdr.linesTable.offset+4]++

	_, err = Decode(bytes.NewReader(data), WithCRC())
	var crcErr *CRCError
	require.ErrorAs(t, err, &crcErr)
	assert.Equal(t, "lines", crcErr.Table)

	info, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), info.Functions[0].Lines[0].Lines[0].Line)
}

func TestInvalidInput(t *testing.T) {
	valid := encode(t, testInfo())

	t.Run("magic", func(t *testing.T) {
		data := bytes.Clone(valid)
		data[0] = 'X'
		_, err := Decode(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("version", func(t *testing.T) {
		data := bytes.Clone(valid)
		binary.LittleEndian.PutUint32(data[4:], 7)
		_, err := Decode(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("short header", func(t *testing.T) {
		_, err := Decode(bytes.NewReader(valid[:headerSize-1]))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("truncated tables", func(t *testing.T) {
		_, err := Decode(bytes.NewReader(valid[:len(valid)-3]))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("group range", func(t *testing.T) {
		data := bytes.Clone(valid)
		hdr, err := readHeader(data)
		require.NoError(t, err)
		// group count of the first function
		binary.LittleEndian.PutUint32(data[hdr.functionsTable.offset+12:], 100)
		_, err = Decode(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("broken gzip", func(t *testing.T) {
		_, err := Decode(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrInvalidMagic))
	})
}

func TestMaxSize(t *testing.T) {
	size := int64(len(encode(t, testInfo())))
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			data := encode(t, testInfo(), WithCompression(c))

			_, err := Decode(bytes.NewReader(data), WithMaxSize(size))
			require.NoError(t, err)

			_, err = Decode(bytes.NewReader(data), WithMaxSize(size-1))
			assert.ErrorIs(t, err, ErrTooLarge)
		})
	}

	// a small zstd payload that expands far beyond the limit
	var buf bytes.Buffer
	require.NoError(t, compress(&buf, CompressionZstd, make([]byte, 1<<20)))
	require.Less(t, buf.Len(), 1<<12)
	_, err := Decode(bytes.NewReader(buf.Bytes()), WithMaxSize(1<<16))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDetectCompression(t *testing.T) {
	assert.Equal(t, CompressionGzip, detectCompression(encode(t, testInfo(), WithCompression(CompressionGzip))))
	assert.Equal(t, CompressionZstd, detectCompression(encode(t, testInfo(), WithCompression(CompressionZstd))))
	assert.Equal(t, CompressionNone, detectCompression(encode(t, testInfo())))
	assert.Equal(t, CompressionNone, detectCompression([]byte{0x1f}))
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd} {
		parsed, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	_, err := ParseCompression("lz4")
	assert.Error(t, err)
}
