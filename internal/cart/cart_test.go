package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockroom-pos/stockroom-pos/internal/catalog"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func product(id int64, name, price string) catalog.Product {
	return catalog.Product{ID: id, Name: name, Price: dec(price)}
}

func TestAddMergesExistingLine(t *testing.T) {
	c := &Cart{}
	horalky := product(1, "Horalky", "0.70")

	require.NoError(t, c.Add(horalky, 2, false))
	require.NoError(t, c.Add(horalky, 3, false))
	require.NoError(t, c.Add(product(2, "Kofola", "1.20"), 1, false))

	require.Len(t, c.Lines, 2)
	require.EqualValues(t, 5, c.Lines[0].Quantity)
	require.True(t, c.TotalPrice().Equal(dec("4.70")), c.TotalPrice().String())
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	c := &Cart{}
	require.ErrorIs(t, c.Add(product(1, "x", "1.00"), 0, false), ErrInvalidQuantity)
	require.ErrorIs(t, c.Add(product(1, "x", "1.00"), -1, false), ErrInvalidQuantity)
	require.True(t, c.IsEmpty())
}

func TestRemoveDecrementsAndDrops(t *testing.T) {
	c := &Cart{}
	require.NoError(t, c.Add(product(1, "Horalky", "0.70"), 3, false))

	require.NoError(t, c.Remove(1, 1))
	require.EqualValues(t, 2, c.Lines[0].Quantity)

	require.NoError(t, c.Remove(1, 5))
	require.True(t, c.IsEmpty())

	// Removing an absent product changes nothing.
	require.NoError(t, c.Remove(42, 1))
	require.ErrorIs(t, c.Remove(1, 0), ErrInvalidQuantity)
}

func TestClear(t *testing.T) {
	c := &Cart{}
	require.NoError(t, c.Add(product(1, "Horalky", "0.70"), 1, false))
	c.Clear()
	require.True(t, c.IsEmpty())
	require.True(t, c.TotalPrice().IsZero())
}
