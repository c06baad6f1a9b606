package pdb

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageName(t *testing.T) {
	name, ok := LanguageName(LanguageCSharp)
	require.True(t, ok)
	assert.Equal(t, "C#", name)

	_, ok = LanguageName(uuid.New())
	assert.False(t, ok)

	assert.Equal(t, NotApplicable, LanguageNameOrDefault(uuid.Nil))
	assert.Equal(t, "F#", LanguageNameOrDefault(LanguageFSharp))

	id, ok := LanguageByName("C++")
	require.True(t, ok)
	assert.Equal(t, LanguageCpp, id)

	_, ok = LanguageByName("Rust")
	assert.False(t, ok)
}

func TestDebugID(t *testing.T) {
	id := DebugID{GUID: uuid.MustParse("3f5162f8-07c6-11d3-9053-00c04fa302a1"), Age: 0x1a}
	assert.Equal(t, "3F5162F807C611D3905300C04FA302A11A", id.String())
	assert.False(t, id.IsZero())
	assert.True(t, DebugID{}.IsZero())

	parsed, err := ParseDebugID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	parsed, err = ParseDebugID("3f5162f8-07c6-11d3-9053-00c04fa302a1-1")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), parsed.Age)
	assert.Equal(t, id.GUID, parsed.GUID)

	for _, bad := range []string{"", "3F5162F807C611D3905300C04FA302A1", "ZZ5162F807C611D3905300C04FA302A11", "3F5162F807C611D3905300C04FA302A1XYZ"} {
		_, err := ParseDebugID(bad)
		assert.Error(t, err, bad)
	}
}

func TestDecoderFunc(t *testing.T) {
	want := &Info{Age: 3}
	var d Decoder = DecoderFunc(func(r io.Reader) (*Info, error) {
		if r == nil {
			return nil, errors.New("nil reader")
		}
		return want, nil
	})
	got, err := d.Decode(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, DebugID{Age: 3}, got.DebugID())
}
