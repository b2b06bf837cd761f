package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bothub/internal/registry/models"
)

func TestNext(t *testing.T) {
	tests := []struct {
		class models.EntityClass
		n     int
		want  string
	}{
		{models.EntityClient, 0, "AA0001"},
		{models.EntityClient, 1, "AB0002"},
		{models.EntityClient, 25, "AZ0026"},
		{models.EntityClient, 26, "BA0027"},
		{models.EntityClient, 675, "ZZ0676"},
		{models.EntityAgent, 0, "BA0001"},
		{models.EntityAgent, 1, "BB0002"},
		{models.EntityAgent, 26, "CA0027"},
		{models.EntityAgent, 649, "ZZ0650"},
	}
	for _, tc := range tests {
		got, err := Next(tc.class, tc.n)
		require.NoError(t, err, "%s %d", tc.class, tc.n)
		assert.Equal(t, tc.want, got, "%s %d", tc.class, tc.n)
	}
}

// TestNext_Uniqueness covers the whole identifier space of both classes:
// every output is well formed, unique within its class and absent from the
// other class.
func TestNext_Uniqueness(t *testing.T) {
	seen := map[string]models.EntityClass{}
	for _, class := range []models.EntityClass{models.EntityClient, models.EntityAgent} {
		for n := 0; n < Capacity(class); n++ {
			id, err := Next(class, n)
			require.NoError(t, err)
			require.True(t, IsValidFormat(id), "malformed %q", id)
			if prev, dup := seen[id]; dup {
				t.Fatalf("%s index %d produced %q, already issued for %s", class, n, id, prev)
			}
			seen[id] = class
		}
	}
	assert.Len(t, seen, 676+650)
}

func TestNext_Capacity(t *testing.T) {
	t.Run("client space ends after ZZ", func(t *testing.T) {
		_, err := Next(models.EntityClient, 676)
		require.ErrorIs(t, err, ErrCapacityExceeded)
	})

	t.Run("agent space ends after ZZ", func(t *testing.T) {
		_, err := Next(models.EntityAgent, 650)
		require.ErrorIs(t, err, ErrCapacityExceeded)
	})

	t.Run("negative index is rejected", func(t *testing.T) {
		_, err := Next(models.EntityClient, -1)
		require.ErrorIs(t, err, ErrCapacityExceeded)
	})

	t.Run("unknown class is rejected", func(t *testing.T) {
		_, err := Next(models.EntityClass("tenant"), 0)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCapacityExceeded)
	})
}

func TestIsValidFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"client id", "AA0001", true},
		{"bot id", "BA0001", true},
		{"upper bound", "ZZ9999", true},
		{"empty", "", false},
		{"lowercase letters", "aa0001", false},
		{"mixed case", "Aa0001", false},
		{"too short", "AA001", false},
		{"too long", "AA00001", false},
		{"three letters", "AAA001", false},
		{"trailing newline", "AA0001\n", false},
		{"leading space", " AA0001", false},
		{"trailing garbage", "AA0001x", false},
		{"digits first", "0001AA", false},
		{"non-ascii digits", "AA٠٠٠١", false},
		{"sql", "AA0001' OR '1'='1", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsValidFormat(tc.input))
		})
	}
}

// FuzzIsValidFormat checks the validator against a byte-level definition of
// the format on arbitrary input.
func FuzzIsValidFormat(f *testing.F) {
	f.Add("AA0001")
	f.Add("")
	f.Add("aa0001")
	f.Add("AA0001\x00")
	f.Add("ZZ9999")

	f.Fuzz(func(t *testing.T, input string) {
		want := len(input) == 6
		for i := 0; want && i < 6; i++ {
			c := input[i]
			if i < 2 {
				want = c >= 'A' && c <= 'Z'
			} else {
				want = c >= '0' && c <= '9'
			}
		}
		if got := IsValidFormat(input); got != want {
			t.Errorf("IsValidFormat(%q) = %v, want %v", input, got, want)
		}
	})
}
