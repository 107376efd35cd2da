package packet

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// checksumLen is the hex length of the truncated digest.
const checksumLen = 16

// Checksum returns the digest over the canonical encoding of header and
// payload. Identical contents always produce identical digests; the footer
// never participates.
func Checksum(p *Packet) string {
	sum := sha256.Sum256(canonicalBytes(p))
	return hex.EncodeToString(sum[:checksumLen/2])
}

// Verify recomputes the digest and compares it to the stored one. A
// mismatch signals corruption regardless of cause. This detects accidental
// corruption only; it is no defense against tampering.
func Verify(p *Packet) bool {
	if p == nil {
		return false
	}
	return Checksum(p) == p.Footer.Checksum
}

// canonicalBytes renders header and payload into a deterministic,
// field-order-independent byte form. Header.Size is derived from this
// encoding and so is excluded from it.
func canonicalBytes(p *Packet) []byte {
	var b bytes.Buffer
	h := p.Header
	fmt.Fprintf(&b, "packet_id=%d;timestamp=%s;frame_id=%d;encoding=%s;priority=%d;",
		h.PacketID, formatFloat(h.Timestamp), h.FrameID, h.Encoding, h.Priority)

	keys := make([]string, 0, len(p.Payload.Telemetry))
	for k := range p.Payload.Telemetry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s;", k, canonicalValue(p.Payload.Telemetry[k]))
	}
	return b.Bytes()
}

func canonicalValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return strconv.Quote(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
