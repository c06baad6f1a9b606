package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/pdbresolve/pkg/pdb"
	"github.com/grafana/pdbresolve/pkg/resolver"
)

const testListing = `
guid: 1c9a7e4b-2f3d-4a5b-8c6d-9e0f1a2b3c4d
age: 2
functions:
  - module: MyApp.TestLib.Class1
    name: Method1
    groups:
      - file: Class1.cs
        language: "C#"
        lines:
          - {offset: 0, line: 6}
          - {offset: 12, line: 8}
  - module: MyApp.TestLib.Class1
    name: Method2
    groups:
      - file: Class1.cs
        language: 3f5162f8-07c6-11d3-9053-00c04fa302a1
        lines:
          - {offset: 0, line: 17}
          - {offset: 7, line: 0xFEEFEE}
  - module: MyApp.TestLib.Class2
    name: Generated
`

func init() {
	color.NoColor = true
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadListing(t *testing.T) {
	info, err := readListing(strings.NewReader(testListing))
	require.NoError(t, err)

	assert.Equal(t, uint32(2), info.Age)
	assert.Equal(t, uuid.MustParse("1c9a7e4b-2f3d-4a5b-8c6d-9e0f1a2b3c4d"), info.GUID)
	require.Len(t, info.Functions, 3)
	assert.Equal(t, pdb.LanguageCSharp, info.Functions[0].Lines[0].Language)
	assert.Equal(t, pdb.LanguageCSharp, info.Functions[1].Lines[0].Language)
	assert.Equal(t, pdb.HiddenLine, info.Functions[1].Lines[0].Lines[1].Line)
	assert.Empty(t, info.Functions[2].Lines)
}

func TestReadListingErrors(t *testing.T) {
	for name, listing := range map[string]string{
		"unknown field": "guid: 1c9a7e4b-2f3d-4a5b-8c6d-9e0f1a2b3c4d\nversion: 2\n",
		"bad guid":      "guid: nope\n",
		"bad language":  "functions:\n  - module: A\n    name: B\n    groups:\n      - file: a.cs\n        language: Klingon\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := readListing(strings.NewReader(listing))
			assert.Error(t, err)
		})
	}

	info, err := readListing(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, info.Functions)
}

func TestPackAndResolve(t *testing.T) {
	ctx := context.Background()
	dst := filepath.Join(t.TempDir(), "TestLib.pdbx")
	require.NoError(t, pack(ctx, &packParams{
		src:         writeFile(t, "listing.yaml", testListing),
		dst:         dst,
		compression: "gzip",
	}))

	r, err := resolver.Open(dst)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	var out bytes.Buffer
	ctx = withOutput(ctx, &out)
	require.NoError(t, resolve(ctx, &resolveParams{
		path:      dst,
		className: "MyApp.TestLib.Class1",
		method:    "Method1",
		offset:    12,
	}))
	assert.Equal(t, "Class1.cs:8 (C#)\n", out.String())

	out.Reset()
	require.NoError(t, resolve(ctx, &resolveParams{
		path:      dst,
		className: "MyApp.TestLib.Class2",
		method:    "Generated",
		offset:    0x10,
	}))
	assert.Equal(t, "MyApp.TestLib.Class2.Generated+IL_0x10: no source mapping\n", out.String())

	out.Reset()
	require.NoError(t, info(ctx, dst))
	assert.Contains(t, out.String(), "1C9A7E4B2F3D4A5B8C6D9E0F1A2B3C4D2")

	out.Reset()
	require.NoError(t, methods(ctx, dst))
	assert.Contains(t, out.String(), "Class1.cs:6")
	assert.Contains(t, out.String(), "Generated")
}

func TestPackInvalidCompression(t *testing.T) {
	err := pack(context.Background(), &packParams{
		src:         writeFile(t, "listing.yaml", testListing),
		dst:         filepath.Join(t.TempDir(), "out.pdbx"),
		compression: "lz4",
	})
	assert.Error(t, err)
}

func TestParseFrame(t *testing.T) {
	f, err := parseFrame("TestLib.pdb 1C9A7E4B2F3D4A5B8C6D9E0F1A2B3C4D2 My.Class Run 0x1f")
	require.NoError(t, err)
	assert.Equal(t, "TestLib.pdb", f.PDBName)
	assert.Equal(t, uint32(2), f.DebugID.Age)
	assert.Equal(t, "My.Class", f.ClassName)
	assert.Equal(t, "Run", f.MethodName)
	assert.Equal(t, uint32(0x1f), f.ILOffset)

	f, err = parseFrame("TestLib.pdb 1C9A7E4B2F3D4A5B8C6D9E0F1A2B3C4D2 My.Class Run")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), f.ILOffset)

	for _, line := range []string{
		"TestLib.pdb 1C9A7E4B2F3D4A5B8C6D9E0F1A2B3C4D2 My.Class",
		"TestLib.pdb nothex My.Class Run",
		"TestLib.pdb 1C9A7E4B2F3D4A5B8C6D9E0F1A2B3C4D2 My.Class Run -1",
		"TestLib.pdb 1C9A7E4B2F3D4A5B8C6D9E0F1A2B3C4D2 My.Class Run 1 extra",
	} {
		_, err := parseFrame(line)
		assert.Error(t, err, line)
	}
}

func TestReadFrames(t *testing.T) {
	frames, err := readFrames(strings.NewReader(`
# comment
TestLib.pdb 1C9A7E4B2F3D4A5B8C6D9E0F1A2B3C4D2 My.Class Run 4

TestLib.pdb 1C9A7E4B2F3D4A5B8C6D9E0F1A2B3C4D2 My.Class Stop
`))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "Stop", frames[1].MethodName)

	_, err = readFrames(strings.NewReader("a b\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestUploadAndSymbolize(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "TestLib.pdbx")
	require.NoError(t, pack(ctx, &packParams{
		src:         writeFile(t, "listing.yaml", testListing),
		dst:         src,
		compression: "zstd",
	}))

	store := &storeParams{storageDir: t.TempDir()}
	var out bytes.Buffer
	ctx = withOutput(ctx, &out)
	require.NoError(t, upload(ctx, &uploadParams{storeParams: store, paths: []string{src}}))
	assert.Equal(t, "uploaded "+src+" as TestLib.pdb\n", out.String())

	out.Reset()
	in := strings.NewReader(strings.Join([]string{
		"TestLib.pdb 1C9A7E4B2F3D4A5B8C6D9E0F1A2B3C4D2 MyApp.TestLib.Class1 Method1 5",
		"TestLib.pdb 1C9A7E4B2F3D4A5B8C6D9E0F1A2B3C4D3 MyApp.TestLib.Class1 Method1 5",
	}, "\n"))
	require.NoError(t, symbolize(ctx, &symbolizeParams{storeParams: store}, in))
	assert.Equal(t,
		"MyApp.TestLib.Class1.Method1 (Class1.cs:6)\n"+
			"MyApp.TestLib.Class1.Method1+IL_0x5\n",
		out.String())
}

func TestLoadConfig(t *testing.T) {
	c, err := loadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 64, c.CacheSize)
	assert.Equal(t, 8, c.MaxConcurrency)

	path := writeFile(t, "config.yaml", "cache_size: 3\nstorage_dir: /from/file\n")
	c, err = loadConfig(path, &storeParams{storageDir: "/from/flag"})
	require.NoError(t, err)
	assert.Equal(t, 3, c.CacheSize)
	assert.Equal(t, 8, c.MaxConcurrency)
	assert.Equal(t, "/from/flag", c.StorageDir)

	path = writeFile(t, "config.yaml", "max_concurrency: 0\n")
	_, err = loadConfig(path, nil)
	assert.Error(t, err)

	assert.Equal(t, "MyLib.pdb", pdbNameFromPath("/out/MyLib.pdbx"))
}
