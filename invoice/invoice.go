// Package invoice extracts the one piece of Lightning invoice data
// this module keeps in scope: the amount in satoshis (spec §1 names
// decoding beyond that as an external collaborator).
package invoice

import (
	"fmt"

	decodepay "github.com/nbd-wtf/ln-decodepay"
)

// AmountSats decodes a bolt11 payment request and returns its amount
// in satoshis, rounding down from millisatoshis.
func AmountSats(bolt11 string) (uint64, error) {
	decoded, err := decodepay.Decodepay(bolt11)
	if err != nil {
		return 0, fmt.Errorf("error decoding invoice: %v", err)
	}

	return uint64(decoded.MSatoshi) / 1000, nil
}
