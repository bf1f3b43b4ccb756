package mailbox

import "encoding/binary"

// headerSize is the on-wire size of messageHeader. Using an explicit
// encoded struct (rather than a raw pointer-sized value) resolves spec
// §9's flagged `db_read`/`db_write` "sizeof(m)" bug by construction: there
// is no pointer whose size could be mistaken for the header's.
const headerSize = 4

// messageHeader precedes every payload in a mailbox's ring buffer.
type messageHeader struct {
	PayloadLen uint32
}

func (h messageHeader) encode(buf []byte) {
	binary.BigEndian.PutUint32(buf, h.PayloadLen)
}

func decodeHeader(buf []byte) messageHeader {
	return messageHeader{PayloadLen: binary.BigEndian.Uint32(buf)}
}
