package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sort"

	"github.com/MrEthical07/goIdentity/permission"
)

const sessionFormatVersionCurrent = 1

const (
	flagAuthenticated = 1 << 0
)

// Encode serializes s into the compact binary session format.
//
// Layout (big endian): version u8, flags u8, state u8, then u16-length-prefixed
// session id, session state, subject, access, id and refresh tokens, realm mask
// (8 bytes), resource count u8 followed by (u8-length name, 8 byte mask) pairs,
// issued-at, access-expiry, refresh-expiry as i64 and refresh count u32.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(sessionFormatVersionCurrent)

	var flags byte
	if s.Authenticated {
		flags |= flagAuthenticated
	}
	buf.WriteByte(flags)
	buf.WriteByte(byte(s.State))

	for _, field := range []string{s.SessionID, s.SessionState, s.Subject, s.AccessToken, s.IDToken, s.RefreshToken} {
		if err := writeString16(&buf, field); err != nil {
			return nil, err
		}
	}

	buf.Write(permission.EncodeMask(s.RealmRoles))

	if len(s.ResourceRoles) > 255 {
		return nil, errors.New("too many resources")
	}
	buf.WriteByte(byte(len(s.ResourceRoles)))
	resources := make([]string, 0, len(s.ResourceRoles))
	for name := range s.ResourceRoles {
		resources = append(resources, name)
	}
	sort.Strings(resources)
	for _, name := range resources {
		if name == "" || len(name) > 255 {
			return nil, errors.New("invalid resource name")
		}
		buf.WriteByte(byte(len(name)))
		buf.WriteString(name)
		buf.Write(permission.EncodeMask(s.ResourceRoles[name]))
	}

	for _, v := range []int64{s.IssuedAt, s.AccessExpiresAt, s.RefreshExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, binary.BigEndian, s.RefreshCount); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses the output of Encode.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	state, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	s := &Session{
		Authenticated: flags&flagAuthenticated != 0,
		State:         State(state),
	}

	for _, dst := range []*string{&s.SessionID, &s.SessionState, &s.Subject, &s.AccessToken, &s.IDToken, &s.RefreshToken} {
		if *dst, err = readString16(reader); err != nil {
			return nil, err
		}
	}

	if s.RealmRoles, err = readMask(reader); err != nil {
		return nil, err
	}

	count, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if count > 0 {
		s.ResourceRoles = make(map[string]permission.Mask64, count)
	}
	for i := 0; i < int(count); i++ {
		nameLen, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(reader, name); err != nil {
			return nil, err
		}
		mask, err := readMask(reader)
		if err != nil {
			return nil, err
		}
		s.ResourceRoles[string(name)] = mask
	}

	for _, dst := range []*int64{&s.IssuedAt, &s.AccessExpiresAt, &s.RefreshExpiresAt} {
		if err := binary.Read(reader, binary.BigEndian, dst); err != nil {
			return nil, err
		}
	}
	if err := binary.Read(reader, binary.BigEndian, &s.RefreshCount); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing session bytes")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func writeString16(buf *bytes.Buffer, v string) error {
	if len(v) > math.MaxUint16 {
		return errors.New("session field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(v))); err != nil {
		return err
	}
	buf.WriteString(v)
	return nil
}

func readString16(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func readMask(r *bytes.Reader) (permission.Mask64, error) {
	raw := make([]byte, 8)
	if _, err := io.ReadFull(r, raw); err != nil {
		return 0, err
	}
	return permission.DecodeMask(raw)
}
