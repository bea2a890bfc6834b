package crypto

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"github.com/ponderjournal/ponder/internal/errs"
	"github.com/ponderjournal/ponder/internal/util"
)

// Checksum returns the hex-encoded BLAKE3 digest of data.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumFile streams path's contents through BLAKE3 via constant-memory
// buffers and returns the hex-encoded digest.
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errs.IO("checksum-file open", err)
	}
	defer f.Close()

	h := blake3.New()
	buf := util.GetMiBBuffer()
	defer util.PutMiBBuffer(buf)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", errs.IO("checksum-file read", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
