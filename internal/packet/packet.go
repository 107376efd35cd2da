package packet

import "github.com/meridian3/downlink/internal/telemetry"

// EncodingRaw is the default payload encoding tag.
const EncodingRaw = "raw"

// Header carries sequencing and scheduling metadata for one packet.
type Header struct {
	PacketID  uint64
	Timestamp float64
	FrameID   int64
	Encoding  string
	Priority  int
	Size      int
}

// Payload embeds the telemetry values being transmitted.
type Payload struct {
	Telemetry map[string]any
}

// Footer carries integrity metadata. CorruptionDetected is set by the
// link simulation when at least one payload field was altered, whether or
// not the checksum still happens to validate.
type Footer struct {
	Checksum           string
	CorruptionDetected bool
	TransmissionTime   float64
}

// Packet is one frame wrapped for simulated transmission. A nil *Packet
// is the Lost sentinel on the corruptor→cleaner edge: a packet dropped
// entirely by the link, carrying no payload.
type Packet struct {
	Header  Header
	Payload Payload
	Footer  Footer
}

// Clone returns a deep copy. The payload map is copied so fault injection
// never mutates the original packet.
func (p *Packet) Clone() *Packet {
	if p == nil {
		return nil
	}
	values := make(map[string]any, len(p.Payload.Telemetry))
	for k, v := range p.Payload.Telemetry {
		values[k] = v
	}
	out := *p
	out.Payload = Payload{Telemetry: values}
	return &out
}

// FromFrame builds a payload map from a raw frame. Absent fields stay
// absent; the cleaner deals with them downstream.
func FromFrame(f telemetry.RawFrame) Payload {
	values := make(map[string]any, len(f.Values))
	for k, v := range f.Values {
		values[k] = v
	}
	return Payload{Telemetry: values}
}
