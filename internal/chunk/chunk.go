// Package chunk splits plaintext into overlapping word windows. The same
// pure function is called at edit time (to embed) and at query time (to
// rebuild the exact same segmentation of a decrypted entry) - spec §4.6 and
// property P4 both depend on this never doing anything but pure string math.
package chunk

import "strings"

// DefaultSize and DefaultOverlap are pinned so edit-time and query-time
// chunking always agree (spec §4.9: "identical chunk parameters between edit
// and query are load-bearing").
const (
	DefaultSize    = 220
	DefaultOverlap = 40
)

// Split divides text into whitespace-delimited token windows of size
// chunkSize with step (chunkSize - overlap). If the whole text fits in one
// window, it is returned unchanged as the only chunk. overlap is clamped to
// chunkSize-1 when it would otherwise make no forward progress.
func Split(text string, chunkSize, overlap int) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultSize
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	if overlap < 0 {
		overlap = 0
	}

	if len(tokens) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
