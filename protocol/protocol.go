// Package protocol implements a framed byte link over any serial stream.
//
// Data is carried in blocks:
//
//	[len][seq][vlq dest addr][data...][crc hi][crc lo][0x7E]
//
// len counts the whole block, seq is 0x10 | n with n incrementing per block.
// The CRC covers len, seq and payload.
package protocol

const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F

	// BroadcastAddr is accepted by every link
	BroadcastAddr = 0
)

// NextSeq returns the sequence byte following seq
func NextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
