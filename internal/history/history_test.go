package history

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/intrusionbot/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  []string
	}{
		{name: "bracketed elements", field: "[a],[b],[c]", want: []string{"a", "b", "c"}},
		{name: "list toString form", field: "[http://x/1, http://x/2]", want: []string{"http://x/1", "http://x/2"}},
		{name: "inner whitespace kept", field: "[ a b ], [c]", want: []string{"a b", "c"}},
		{name: "blank elements dropped", field: "[a],,[],[b]", want: []string{"a", "b"}},
		{name: "empty list", field: "[]", want: []string{}},
		{name: "empty field", field: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.field)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectRecent_Example(t *testing.T) {
	got, err := SelectRecent("[a],[b],[c],[d],[e]", 3)
	require.NoError(t, err)
	// newest element first: the last three of the list, reversed
	assert.Equal(t, []string{"e", "d", "c"}, got)
}

func TestSelectRecent_InsufficientHistory(t *testing.T) {
	_, err := SelectRecent("[a],[b]", 5)
	require.ErrorIs(t, err, common.ErrInsufficientHistory)

	_, err = SelectRecent("[a],[b]", 2)
	require.ErrorIs(t, err, common.ErrInsufficientHistory, "equal length is not enough")

	_, err = SelectRecent("", 1)
	require.ErrorIs(t, err, common.ErrInsufficientHistory)
}

func TestSelectRecent_Properties(t *testing.T) {
	for n := 1; n <= 8; n++ {
		refs := make([]string, n)
		for i := range refs {
			refs[i] = fmt.Sprintf("[img-%d]", i)
		}
		field := strings.Join(refs, ",")

		for c := 1; c <= n+2; c++ {
			got, err := SelectRecent(field, c)
			if c >= n {
				require.ErrorIs(t, err, common.ErrInsufficientHistory, "n=%d c=%d", n, c)
				continue
			}
			require.NoError(t, err)
			require.Len(t, got, c)
			for i, ref := range got {
				assert.Equal(t, fmt.Sprintf("img-%d", n-1-i), ref)
				assert.NotContains(t, ref, "[")
				assert.NotContains(t, ref, "]")
			}
		}
	}
}

func TestAllAndAppend(t *testing.T) {
	field := Append("", "u1")
	assert.Equal(t, "[u1]", field)

	field = Append(field, "u2")
	field = Append(field, "u3")
	assert.Equal(t, "[u1, u2, u3]", field)

	assert.Equal(t, []string{"u3", "u2", "u1"}, All(field))
	assert.Empty(t, All(""))
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		text          string
		want          int
		wantDefaulted bool
	}{
		{text: "show me 3 images", want: 3},
		{text: "QueryImages 10", want: 10},
		{text: "QueryImages", want: 5},
		{text: "send 0 pictures", want: 5, wantDefaulted: true},
		{text: "send 11 pictures", want: 5, wantDefaulted: true},
		{text: "give 2 or 7", want: 2},
		{text: "99999999999999999999999", want: 5, wantDefaulted: true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, defaulted := ParseCount(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDefaulted, defaulted)
		})
	}
}

func TestClampCount(t *testing.T) {
	for _, n := range []int{-3, 0, 11, 100} {
		got, defaulted := ClampCount(n)
		assert.Equal(t, common.DefaultImageCount, got)
		assert.True(t, defaulted)
	}
	for n := 1; n <= common.MaxImageCount; n++ {
		got, defaulted := ClampCount(n)
		assert.Equal(t, n, got)
		assert.False(t, defaulted)
	}
}
