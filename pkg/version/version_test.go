package version

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    []int64
		wantErr bool
	}{
		{in: "1.0.0", want: []int64{1, 0, 0}},
		{in: "v2.13", want: []int64{2, 13}},
		{in: "20140406.1613", want: []int64{20140406, 1613}},
		{in: "1.0.0.20140406.1613", want: []int64{1, 0, 0, 20140406, 1613}},
		{in: "7", want: []int64{7}},
		{in: "", wantErr: true},
		{in: "1.0-rc1", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0", "1.0.0", 0},
		{"1.10", "1.9", 1},
		{"2.0", "10.0", -1},
		{"20140406.1613", "20140406.1612", 1},
		{"20140406.1612", "20140406.1613", -1},
		{"20140406.1613", "20140406.1613", 0},
		// A snapshot timestamp orders above a small dotted version
		{"20140406.1613", "1.0.0", 1},
		// ...and interleaves correctly inside a dotted prefix form
		{"1.0.0.20140406.1613", "1.0.0.20140406.1612", 1},
		{"1.0.0.20140406.1613", "1.0.1", -1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_vs_%s", tt.a, tt.b), func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeInstalled map[string]string

func (f fakeInstalled) InstalledVersion(name string) (string, bool, error) {
	v, ok := f[name]
	return v, ok, nil
}

type failingInstalled struct{}

func (failingInstalled) InstalledVersion(string) (string, bool, error) {
	return "", false, fmt.Errorf("database unreadable")
}

func TestIsNewerFallbackLayers(t *testing.T) {
	c := NewComparator(
		fakeInstalled{"magit": "2.90.1"},
		map[string]string{"emacs": "29.1"},
	)

	// Layer 1: installed record
	assert.True(t, c.IsNewer("magit", "2.90.2"))
	assert.False(t, c.IsNewer("magit", "2.90.0"))

	// Layer 2: builtin table
	assert.True(t, c.IsNewer("emacs", "30.1"))
	assert.False(t, c.IsNewer("emacs", "28.2"))

	// Layer 3: absent means older than anything
	assert.True(t, c.IsNewer("never-installed", "0.0.1"))
}

func TestIsNewerNilCandidate(t *testing.T) {
	c := NewComparator(fakeInstalled{"magit": "2.90.1"}, nil)

	// An empty candidate never displaces anything, installed or not
	assert.False(t, c.IsNewer("magit", ""))
	assert.False(t, c.IsNewer("never-installed", ""))
}

func TestIsNewerEqualCandidate(t *testing.T) {
	c := NewComparator(fakeInstalled{"magit": "2.90.1"}, nil)
	assert.False(t, c.IsNewer("magit", "2.90.1"))
}

func TestIsNewerSnapshotTimestamps(t *testing.T) {
	c := NewComparator(fakeInstalled{"dash": "20140406.1612"}, nil)

	assert.True(t, c.IsNewer("dash", "20140406.1613"))
	assert.False(t, c.IsNewer("dash", "20140406.1612"))
	assert.False(t, c.IsNewer("dash", "20140405.2359"))
}

func TestIsNewerMalformedIsConservative(t *testing.T) {
	c := NewComparator(fakeInstalled{"weird": "not-a-version"}, nil)

	// Malformed installed data never crashes and never yields "newer"
	assert.False(t, c.IsNewer("weird", "1.0.0"))

	c2 := NewComparator(fakeInstalled{"magit": "2.90.1"}, nil)
	assert.False(t, c2.IsNewer("magit", "garbage"))
}

func TestIsNewerInstalledSourceError(t *testing.T) {
	c := NewComparator(failingInstalled{}, nil)
	assert.False(t, c.IsNewer("anything", "1.0.0"))
}

func TestIsEqual(t *testing.T) {
	c := NewComparator(fakeInstalled{
		"magit": "2.90.1",
		"weird": "not-a-version",
	}, nil)

	assert.True(t, c.IsEqual("magit", "2.90.1"))
	assert.True(t, c.IsEqual("magit", "2.90.1.0"))
	assert.False(t, c.IsEqual("magit", "2.90.2"))
	assert.False(t, c.IsEqual("never-installed", "1.0"))

	// Literal equality works even when parsing would fail
	assert.True(t, c.IsEqual("weird", "not-a-version"))
	assert.False(t, c.IsEqual("weird", "1.0"))
}

func TestCurrent(t *testing.T) {
	c := NewComparator(fakeInstalled{"magit": "2.90.1"}, map[string]string{"emacs": "29.1"})

	v, ok, err := c.Current("magit")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2.90.1", v)

	v, ok, err = c.Current("emacs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "29.1", v)

	_, ok, err = c.Current("ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}
