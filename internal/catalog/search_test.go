package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFoldNameStripsDiacritics(t *testing.T) {
	require.Equal(t, "horalky", FoldName("Horálky"))
	require.Equal(t, "tatransky caj", FoldName("Tatranský Čaj"))
	require.Equal(t, "plain", FoldName("plain"))
}

func TestMatchesQuery(t *testing.T) {
	p := Product{Name: "Horálky arašidové", Barcode: "8586001760103"}

	require.True(t, p.MatchesQuery("horalky"))
	require.True(t, p.MatchesQuery("HORÁLKY"))
	require.True(t, p.MatchesQuery("arasid"))
	require.True(t, p.MatchesQuery("8586001"))
	require.True(t, p.MatchesQuery("8586001760103"))

	require.False(t, p.MatchesQuery("6001760"))
	require.False(t, p.MatchesQuery("tatranky"))
	require.False(t, p.MatchesQuery(""))
}

func TestMatchesQueryWithoutBarcode(t *testing.T) {
	p := Product{Name: "Kofola"}
	require.True(t, p.MatchesQuery("kofo"))
	require.False(t, p.MatchesQuery("123"))
}
