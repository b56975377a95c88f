package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/cadastre/models"
)

func TestReadFragmentsAndListing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary.html"), []byte("<table></table>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "initial.json"), []byte(`{"Owner Name":"DOE","Geocode":"0310"}`), 0o644))

	fragments, err := readFragments(dir)
	require.NoError(t, err)
	require.Equal(t, models.Fragments{models.CategorySummary: "<table></table>"}, fragments)

	l, err := readListing(dir)
	require.NoError(t, err)
	require.Equal(t, models.Listing{OwnerName: "DOE", Geocode: "0310"}, l)

	l, err = readListing(t.TempDir())
	require.NoError(t, err)
	require.Zero(t, l)
}

func TestReadListingMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "initial.json"), []byte(`{`), 0o644))
	_, err := readListing(dir)
	require.Error(t, err)
}
