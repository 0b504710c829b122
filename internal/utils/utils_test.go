package utils_test

import (
	"testing"

	"github.com/jrsteele09/bogo-finds/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestPtrValue(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, "Ava", utils.Value(utils.Ptr("Ava")))
}

func TestNonEmpty(t *testing.T) {
	require.Nil(t, utils.NonEmpty(""))
	require.Equal(t, "Ava", *utils.NonEmpty("Ava"))
}

func TestMetadataString(t *testing.T) {
	metadata := map[string]any{"name": "Ava", "age": 21}

	require.Equal(t, "Ava", utils.MetadataString(metadata, "name"))
	require.Equal(t, "", utils.MetadataString(metadata, "age"))
	require.Equal(t, "", utils.MetadataString(metadata, "phone"))
	require.Equal(t, "", utils.MetadataString(nil, "name"))
}

func TestCloneMetadata(t *testing.T) {
	require.Nil(t, utils.CloneMetadata(nil))

	original := map[string]any{"name": "Ava"}
	clone := utils.CloneMetadata(original)
	clone["name"] = "Bea"
	require.Equal(t, "Ava", original["name"])
}
