// Package protocol implements the optional framed wire format: each chat
// message travels as a length-delimited protobuf record.
package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the Message record.
const (
	fieldType    protowire.Number = 1
	fieldPayload protowire.Number = 2
)

// frameOverhead covers the type field and the payload tag and length.
const frameOverhead = 16

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrMalformed     = errors.New("malformed frame")
)

// MessageType represents the type of message
type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeHandle
)

// String returns the string representation of MessageType
func (mt MessageType) String() string {
	switch mt {
	case MessageTypeText:
		return "TEXT"
	case MessageTypeHandle:
		return "HANDLE"
	default:
		return "UNKNOWN"
	}
}

// Message is a single framed record.
type Message struct {
	Type    MessageType
	Payload []byte
}

// Encode encodes the message into protobuf wire bytes.
// A zero type is omitted, as proto3 does for default scalars.
func (m *Message) Encode() []byte {
	var b []byte
	if m.Type != MessageTypeText {
		b = protowire.AppendTag(b, fieldType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Type))
	}
	if len(m.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Payload)
	}
	return b
}

// Decode decodes protobuf wire bytes into the message. Unknown fields are skipped.
func (m *Message) Decode(data []byte) error {
	*m = Message{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			m.Type = messageTypeFromWire(v)
			data = data[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			m.Payload = append([]byte(nil), v...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}

// messageTypeFromWire converts the wire enum to MessageType.
// Unknown values degrade to text.
func messageTypeFromWire(v uint64) MessageType {
	switch MessageType(v) {
	case MessageTypeHandle:
		return MessageTypeHandle
	default:
		return MessageTypeText
	}
}

// WriteFrame writes msg prefixed with its varint length.
func WriteFrame(w io.Writer, msg Message) error {
	body := msg.Encode()
	frame := protowire.AppendVarint(make([]byte, 0, len(body)+binary.MaxVarintLen64), uint64(len(body)))
	frame = append(frame, body...)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one length-delimited record whose payload is at most maxPayload bytes.
// io.EOF is returned only when the stream ends cleanly between frames.
func ReadFrame(r *bufio.Reader, maxPayload int) (Message, error) {
	size, err := binary.ReadUvarint(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("failed to read frame length: %w", err)
	}
	if size > uint64(maxPayload+frameOverhead) {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("failed to read frame body: %w", err)
	}

	var msg Message
	if err := msg.Decode(body); err != nil {
		return Message{}, err
	}
	if len(msg.Payload) > maxPayload {
		return Message{}, fmt.Errorf("%w: payload of %d bytes", ErrFrameTooLarge, len(msg.Payload))
	}
	return msg, nil
}
