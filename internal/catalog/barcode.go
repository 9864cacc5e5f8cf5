package catalog

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

// Dummy barcodes start with six fives; the trailing five digits carry
// the price in minor units.
var dummyBarcodePattern = regexp.MustCompile(`^5{6}[0-9]{5}$`)

// DecodeDummyBarcode extracts the embedded price from a dummy
// barcode. The second return value is false when the barcode does not
// match the dummy pattern.
func DecodeDummyBarcode(barcode string) (decimal.Decimal, bool) {
	if !dummyBarcodePattern.MatchString(barcode) {
		return decimal.Zero, false
	}
	minor, err := strconv.ParseInt(barcode[6:], 10, 64)
	if err != nil {
		return decimal.Zero, false
	}
	return decimal.New(minor, -2), true
}
