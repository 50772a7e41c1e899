package protocol

import "github.com/pkg/errors"

// ErrBlockTooLarge is returned when data does not fit a single block
var ErrBlockTooLarge = errors.New("block too large")

// Block is one decoded block
type Block struct {
	Seq  uint8
	Addr uint32
	Data []byte
}

// MaxBlockData returns the payload room of a block sent to addr
func MaxBlockData(addr uint32) int {
	return MessageLengthMax - MessageLengthMin - VLQLen(addr)
}

// EncodeBlock builds a complete block
func EncodeBlock(seq uint8, addr uint32, data []byte) ([]byte, error) {
	if len(data) > MaxBlockData(addr) {
		return nil, errors.Wrapf(ErrBlockTooLarge, "%d bytes for address %d", len(data), addr)
	}

	out := make([]byte, MessageHeaderSize, MessageLengthMax)
	out[MessagePositionSeq] = seq&MessageSeqMask | MessageDest
	out = AppendVLQUint(out, addr)
	out = append(out, data...)
	out[MessagePositionLen] = uint8(len(out) + MessageTrailerSize)
	out = appendCRC(out)
	return append(out, MessageValueSync), nil
}

// Encoder numbers outgoing blocks
type Encoder struct {
	seq uint8
}

// NewEncoder returns an encoder starting at the first sequence
func NewEncoder() *Encoder {
	return &Encoder{seq: MessageDest}
}

// Encode builds the next block and advances the sequence
func (e *Encoder) Encode(addr uint32, data []byte) ([]byte, error) {
	if e.seq&^MessageSeqMask != MessageDest {
		e.seq = MessageDest
	}
	b, err := EncodeBlock(e.seq, addr, data)
	if err != nil {
		return nil, err
	}
	e.seq = NextSeq(e.seq)
	return b, nil
}

// Reset restarts the sequence
func (e *Encoder) Reset() {
	e.seq = MessageDest
}

// Status tells what a decode Result carries
type Status uint8

const (
	// StatusBlock carries a valid block
	StatusBlock Status = iota
	// StatusResync reports the decoder found a sync byte after dropping
	// corrupt input
	StatusResync
	// StatusSeqGap reports a block arrived out of sequence. Want is the
	// expected sequence, Block.Seq the one received. The block itself is
	// delivered in a following StatusBlock result.
	StatusSeqGap
)

// Result is one decoder output
type Result struct {
	Status Status
	Block  Block
	Want   uint8
}

// Decoder splits a byte stream into blocks. Input that fails the length,
// sequence byte, trailer or CRC checks drops the decoder out of sync until
// the next sync byte.
type Decoder struct {
	in      *FifoBuffer
	synced  bool
	started bool
	expect  uint8
}

// NewDecoder creates a decoder
func NewDecoder() *Decoder {
	return &Decoder{
		in:     NewFifoBuffer(4 * MessageLengthMax),
		synced: true,
		expect: MessageDest,
	}
}

// Feed adds stream bytes and returns every result they complete
func (d *Decoder) Feed(data []byte) []Result {
	var out []Result
	for len(data) > 0 {
		n := d.in.Write(data)
		data = data[n:]
		before := d.in.Available()
		out = d.parse(out)
		if n == 0 && d.in.Available() == before {
			// A full buffer that parses to nothing is garbage
			d.in.Reset()
			d.synced = false
		}
	}
	return out
}

// Reset drops buffered input and sequence tracking
func (d *Decoder) Reset() {
	d.in.Reset()
	d.synced = true
	d.started = false
	d.expect = MessageDest
}

func (d *Decoder) parse(out []Result) []Result {
	data := d.in.Data()

	for len(data) > 0 {
		if !d.synced {
			pos := -1
			for i, b := range data {
				if b == MessageValueSync {
					pos = i
					break
				}
			}
			if pos < 0 {
				data = nil
				break
			}
			data = data[pos+1:]
			d.synced = true
			out = append(out, Result{Status: StatusResync})
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.synced = false
			continue
		}
		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			d.synced = false
			continue
		}
		if len(data) < msgLen {
			break
		}
		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.synced = false
			continue
		}
		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.synced = false
			continue
		}

		payload := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		data = data[msgLen:]
		if len(payload) == 0 {
			// keepalive
			continue
		}
		addr, used, err := DecodeVLQUint(payload)
		if err != nil {
			continue
		}

		if d.started && seq != d.expect {
			out = append(out, Result{Status: StatusSeqGap, Want: d.expect, Block: Block{Seq: seq}})
		}
		d.started = true
		d.expect = NextSeq(seq)

		body := make([]byte, len(payload)-used)
		copy(body, payload[used:])
		out = append(out, Result{Status: StatusBlock, Block: Block{Seq: seq, Addr: addr, Data: body}})
	}

	d.in.Pop(d.in.Available() - len(data))
	return out
}
