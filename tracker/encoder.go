package tracker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionV1 = 1

func encodeSession(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionV1)

	for _, field := range []string{s.SessionID, s.AccountID, s.Role, s.Username} {
		if len(field) > 255 {
			return nil, errors.New("session field too long")
		}
		buf.WriteByte(byte(len(field)))
		buf.WriteString(field)
	}

	if err := binary.Write(&buf, binary.BigEndian, s.StartedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.EndedAt); err != nil {
		return nil, err
	}

	if s.Active {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	return buf.Bytes(), nil
}

func decodeSession(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionV1 {
		return nil, errors.New("invalid session record version")
	}

	s := &Session{}
	for _, field := range []*string{&s.SessionID, &s.AccountID, &s.Role, &s.Username} {
		n, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	if err := binary.Read(reader, binary.BigEndian, &s.StartedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.EndedAt); err != nil {
		return nil, err
	}

	active, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Active = active == 1

	return s, nil
}
