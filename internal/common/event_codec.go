package common

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/pkg/errors"
)

func EncodeEvent(event *Event) ([]byte, error) {
	var buf bytes.Buffer

	// 小端写入 Type（4字节）
	typeBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(typeBytes, uint32(event.Type))
	buf.Write(typeBytes)

	enc := gob.NewEncoder(&buf)

	switch event.Type {
	case TxUpdateEventType:
		tx, ok := event.InnerEvent.(*TxUpdate)
		if !ok {
			return nil, errors.Errorf("event type %d carries %T", event.Type, event.InnerEvent)
		}
		if err := enc.Encode(tx); err != nil {
			return nil, errors.Wrap(err, "encode tx update")
		}
	case TradeEventType:
		trade, ok := event.InnerEvent.(*TradeEvent)
		if !ok {
			return nil, errors.Errorf("event type %d carries %T", event.Type, event.InnerEvent)
		}
		if err := enc.Encode(trade); err != nil {
			return nil, errors.Wrap(err, "encode trade event")
		}
	default:
		return nil, errors.Errorf("unknown event type: %d", event.Type)
	}
	return buf.Bytes(), nil
}

func DecodeEvent(data []byte) (*Event, error) {
	if len(data) < 4 {
		return nil, errors.New("data too short")
	}

	eventType := EventType(binary.LittleEndian.Uint32(data[:4]))
	dec := gob.NewDecoder(bytes.NewReader(data[4:]))

	switch eventType {
	case TxUpdateEventType:
		var tx *TxUpdate
		if err := dec.Decode(&tx); err != nil {
			return nil, errors.Wrap(err, "failed to decode tx update")
		}
		return &Event{Type: eventType, InnerEvent: tx}, nil
	case TradeEventType:
		var trade *TradeEvent
		if err := dec.Decode(&trade); err != nil {
			return nil, errors.Wrap(err, "failed to decode trade event")
		}
		return &Event{Type: eventType, InnerEvent: trade}, nil
	default:
		return nil, errors.Errorf("unknown event type: %d", eventType)
	}
}

func init() {
	gob.Register(TxUpdate{})
	gob.Register(TradeEvent{})
}
