package utils_test

import (
	"testing"

	"github.com/jrsteele09/restaurant-portal/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValueAndPtr(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, 42, utils.Value(utils.Ptr(42)))
}

func TestOptionalString(t *testing.T) {
	require.Nil(t, utils.OptionalString(""))
	require.Equal(t, "x", *utils.OptionalString("x"))
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "b", utils.FirstNonEmpty("", "b", "c"))
	require.Equal(t, "", utils.FirstNonEmpty("", ""))
	require.Equal(t, "", utils.FirstNonEmpty())
}
