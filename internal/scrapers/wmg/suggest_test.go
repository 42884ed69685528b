package wmg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuggest(t *testing.T) {
	names := []string{
		"射箭-反曲弓進階",
		"射箭-反曲弓初階",
		"游泳-自由式",
		"射箭-反曲弓進階",
	}

	out := Suggest(names, "射箭-反曲弓進", 3)
	require.NotEmpty(t, out)
	require.Equal(t, "射箭-反曲弓進階", out[0])
	require.NotContains(t, out, "游泳-自由式")

	require.Len(t, Suggest(names, "射箭-反曲弓", 1), 1)
	require.Empty(t, Suggest(names, "zzzz", 3))
	require.Empty(t, Suggest(nil, "射箭", 3))
}
