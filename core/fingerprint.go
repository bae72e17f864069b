package core

import (
	"encoding/binary"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint identifies the content of a dataset.
type Fingerprint uint64

// DatasetFingerprint hashes the column names and values of every row, in
// order, with a 64-bit BLAKE2b digest. Values are hashed by their default
// text form, so 1 and "1" collide.
func DatasetFingerprint(d Dataset) Fingerprint {
	h, _ := blake2b.New(8, nil)

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(d)))
	h.Write(n[:])

	for _, row := range d {
		for _, f := range row {
			fmt.Fprintf(h, "%s\x1f%v\x1f", f.Name, f.Value)
		}
		h.Write([]byte{0x1e})
	}
	return Fingerprint(binary.LittleEndian.Uint64(h.Sum(nil)))
}
