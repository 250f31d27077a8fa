package relstats

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/parqlite/qcore/internal/qerr"
)

// magicRSTAT tags a compressed relation-stats snapshot so LoadCompressed
// can reject a file that isn't one before trying to decompress it.
const magicRSTAT = "RSTAT"

// SaveCompressed writes an LZ4-compressed snapshot of s to w: the
// magic header, then Serialize()'s output run through an lz4.Writer,
// following the teacher's cidx.BlockWriter compress-then-write
// discipline (spec.md §6's "not required to be persistable" stats
// blob gets the same optional on-disk form as the bloom filter).
func (s *RelationStats) SaveCompressed(w io.Writer) error {
	if _, err := w.Write([]byte(magicRSTAT)); err != nil {
		return err
	}
	lw := lz4.NewWriter(w)
	if err := lw.Apply(lz4.BlockSizeOption(lz4.Block64Kb)); err != nil {
		return err
	}
	if _, err := lw.Write(s.Serialize()); err != nil {
		return err
	}
	return lw.Close()
}

// LoadCompressed reads back a snapshot written by SaveCompressed,
// mirroring the teacher's cidx.BlockReader decompress-into-flat-buffer
// loop.
func LoadCompressed(r io.Reader) (*RelationStats, error) {
	header := make([]byte, len(magicRSTAT))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if string(header) != magicRSTAT {
		return nil, qerr.ErrInvalidInput
	}
	lr := lz4.NewReader(r)
	var decompressed bytes.Buffer
	if _, err := io.Copy(&decompressed, lr); err != nil {
		return nil, err
	}
	return Deserialize(decompressed.Bytes())
}
