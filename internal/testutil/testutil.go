package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func Assert(t testing.TB, expected interface{}, value interface{}, msg string) {
	t.Helper()

	require.Equal(t, expected, value, msg)
}

func IsNil(t testing.TB, value interface{}, msg string) {
	t.Helper()

	if err, ok := value.(error); ok {
		require.NoError(t, err, msg)
		return
	}

	require.Nil(t, value, msg)
}

func ReadFile(t testing.TB, pth string) []byte {
	t.Helper()

	data, err := os.ReadFile(pth)
	require.NoError(t, err, "read %s", pth)

	return data
}
