package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ExportChecksum fingerprints the exported content of a local booking or
// block. Identical checksums mean the remote copy is already current and no
// network call is needed.
func ExportChecksum(roomID uint, start, end time.Time, kind string) string {
	payload := fmt.Sprintf("%d|%s|%s|%s", roomID, start.Format("2006-01-02"), end.Format("2006-01-02"), kind)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
