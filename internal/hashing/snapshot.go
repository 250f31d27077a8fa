package hashing

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/parqlite/qcore/internal/qerr"
)

// magicBLOOM tags a compressed bloom-filter snapshot, the same way
// the teacher's cidx.MagicCIDX header tags a compressed index file.
const magicBLOOM = "BLOOM"

// SaveCompressed writes an LZ4-compressed snapshot of f to w, since a
// bloom filter's bit array (up to tierBits3/8 = 16MiB) is almost
// entirely zero bits for any filter well under its tier's capacity —
// the same payoff the teacher's BlockWriter banks on for its own
// mostly-repetitive key blocks.
func (f *BloomFilter) SaveCompressed(w io.Writer) error {
	if _, err := w.Write([]byte(magicBLOOM)); err != nil {
		return err
	}
	lw := lz4.NewWriter(w)
	if err := lw.Apply(lz4.BlockSizeOption(lz4.Block64Kb)); err != nil {
		return err
	}
	if _, err := lw.Write(f.Serialize()); err != nil {
		return err
	}
	return lw.Close()
}

// LoadCompressed reads back a snapshot written by SaveCompressed.
func LoadCompressed(r io.Reader) (*BloomFilter, error) {
	header := make([]byte, len(magicBLOOM))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if string(header) != magicBLOOM {
		return nil, qerr.ErrInvalidInput
	}
	lr := lz4.NewReader(r)
	var decompressed bytes.Buffer
	if _, err := io.Copy(&decompressed, lr); err != nil {
		return nil, err
	}
	return DeserializeBloomFilter(decompressed.Bytes())
}
