// Package ipp implements the small part of the Internet Printing Protocol
// (RFC 8010/8011) the gateway needs: encoding Print-Job requests, decoding
// responses and sending both over HTTP.
package ipp

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Tag identifies either an attribute group (delimiter tags) or the syntax of
// an attribute value.
type Tag byte

// Delimiter tags.
const (
	TagOperationAttributes   Tag = 0x01
	TagJobAttributes         Tag = 0x02
	TagEnd                   Tag = 0x03
	TagPrinterAttributes     Tag = 0x04
	TagUnsupportedAttributes Tag = 0x05
)

// Value tags.
const (
	TagUnsupportedValue Tag = 0x10
	TagUnknown          Tag = 0x12
	TagNoValue          Tag = 0x13
	TagInteger          Tag = 0x21
	TagBoolean          Tag = 0x22
	TagEnum             Tag = 0x23
	TagOctetString      Tag = 0x30
	TagDateTime         Tag = 0x31
	TagResolution       Tag = 0x32
	TagRangeOfInteger   Tag = 0x33
	TagText             Tag = 0x41
	TagName             Tag = 0x42
	TagKeyword          Tag = 0x44
	TagURI              Tag = 0x45
	TagURIScheme        Tag = 0x46
	TagCharset          Tag = 0x47
	TagNaturalLanguage  Tag = 0x48
	TagMimeMediaType    Tag = 0x49
	TagExtension        Tag = 0x7f
)

func (t Tag) isDelimiter() bool { return t < 0x10 }

// Operation ids.
const (
	OpPrintJob uint16 = 0x0002
)

// Version is the protocol version carried in every message.
type Version struct {
	Major byte
	Minor byte
}

// DefaultVersion is IPP/1.1, which every CUPS release accepts.
var DefaultVersion = Version{Major: 1, Minor: 1}

// RangeOfInteger is an inclusive integer interval value.
type RangeOfInteger struct {
	Lower int32
	Upper int32
}

// Attribute is a named attribute with one or more values of the same syntax.
// Values hold int32 for integer and enum, bool for boolean, RangeOfInteger
// for rangeOfInteger, string for the character-string syntaxes and []byte
// for anything else.
type Attribute struct {
	Name   string
	Tag    Tag
	Values []interface{}
}

// Group is an attribute group such as the operation or job attributes.
type Group struct {
	Tag        Tag
	Attributes []Attribute
}

// Add appends attributes to the group.
func (g *Group) Add(attrs ...Attribute) {
	g.Attributes = append(g.Attributes, attrs...)
}

// Get returns the first attribute called name.
func (g *Group) Get(name string) (Attribute, bool) {
	for _, a := range g.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Message is an IPP request or response. Code holds the operation id of a
// request or the status code of a response.
type Message struct {
	Version   Version
	Code      uint16
	RequestID int32
	Groups    []*Group
}

// NewRequest returns a request whose operation group already carries the
// mandatory charset and natural language attributes.
func NewRequest(op uint16, requestID int32) *Message {
	m := &Message{Version: DefaultVersion, Code: op, RequestID: requestID}
	m.Group(TagOperationAttributes).Add(
		Charset("attributes-charset", "utf-8"),
		NaturalLanguage("attributes-natural-language", "en"),
	)
	return m
}

// Group returns the first group with the given tag, appending a new one when
// none exists.
func (m *Message) Group(tag Tag) *Group {
	for _, g := range m.Groups {
		if g.Tag == tag {
			return g
		}
	}
	g := &Group{Tag: tag}
	m.Groups = append(m.Groups, g)
	return g
}

// Find returns the first attribute called name in any group.
func (m *Message) Find(name string) (Attribute, bool) {
	for _, g := range m.Groups {
		if a, ok := g.Get(name); ok {
			return a, true
		}
	}
	return Attribute{}, false
}

// StatusOK reports whether a response code is in the successful range.
func (m *Message) StatusOK() bool { return m.Code <= 0x00ff }

// MarshalBinary encodes the message header, its groups and the end tag.
func (m *Message) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(m.Version.Major)
	buf.WriteByte(m.Version.Minor)
	binary.Write(&buf, binary.BigEndian, m.Code)
	binary.Write(&buf, binary.BigEndian, m.RequestID)

	for _, g := range m.Groups {
		buf.WriteByte(byte(g.Tag))
		for _, a := range g.Attributes {
			if err := writeAttribute(&buf, a); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte(byte(TagEnd))

	return buf.Bytes(), nil
}

func writeAttribute(buf *bytes.Buffer, a Attribute) error {
	if len(a.Values) == 0 {
		return errors.Errorf("ipp: attribute %q has no values", a.Name)
	}
	for i, v := range a.Values {
		name := a.Name
		if i > 0 {
			// Additional values of a 1setOf carry an empty name.
			name = ""
		}
		b, err := encodeValue(a.Tag, v)
		if err != nil {
			return errors.Wrapf(err, "ipp: attribute %q", a.Name)
		}
		if len(name) > math.MaxUint16 || len(b) > math.MaxUint16 {
			return errors.Errorf("ipp: attribute %q is longer than %d octets", a.Name, math.MaxUint16)
		}
		buf.WriteByte(byte(a.Tag))
		writeString(buf, []byte(name))
		writeString(buf, b)
	}
	return nil
}

// writeString writes b with its two octet length. Callers check the length.
func writeString(buf *bytes.Buffer, b []byte) {
	binary.Write(buf, binary.BigEndian, uint16(len(b)))
	buf.Write(b)
}

func encodeValue(tag Tag, v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case int32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(val))
		return b, nil
	case bool:
		if val {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case RangeOfInteger:
		b := make([]byte, 8)
		binary.BigEndian.PutUint32(b[:4], uint32(val.Lower))
		binary.BigEndian.PutUint32(b[4:], uint32(val.Upper))
		return b, nil
	case string:
		return []byte(val), nil
	case []byte:
		return val, nil
	case nil:
		if tag == TagNoValue || tag == TagUnknown || tag == TagUnsupportedValue {
			return nil, nil
		}
	}
	return nil, errors.Errorf("unsupported value %T for tag 0x%02x", v, byte(tag))
}

// Decode reads one message from r. Anything after the end tag, such as
// document data, is left unread.
func Decode(r io.Reader) (*Message, error) {
	d := decoder{r: r}

	var hdr [8]byte
	if err := d.full(hdr[:]); err != nil {
		return nil, errors.Wrap(err, "ipp: reading header")
	}
	m := &Message{
		Version:   Version{Major: hdr[0], Minor: hdr[1]},
		Code:      binary.BigEndian.Uint16(hdr[2:4]),
		RequestID: int32(binary.BigEndian.Uint32(hdr[4:8])),
	}

	var (
		group *Group
		last  *Attribute
	)
	for {
		b, err := d.readByte()
		if err != nil {
			return nil, errors.Wrap(err, "ipp: reading tag")
		}
		tag := Tag(b)

		if tag == TagEnd {
			return m, nil
		}
		if tag.isDelimiter() {
			group = &Group{Tag: tag}
			m.Groups = append(m.Groups, group)
			last = nil
			continue
		}
		if group == nil {
			return nil, errors.Errorf("ipp: value tag 0x%02x outside of a group", b)
		}

		name, err := d.readString()
		if err != nil {
			return nil, errors.Wrap(err, "ipp: reading attribute name")
		}
		raw, err := d.readString()
		if err != nil {
			return nil, errors.Wrapf(err, "ipp: reading value of %q", name)
		}
		if tag == TagExtension && len(raw) >= 4 {
			// The real tag is the first four bytes of the value.
			ext := binary.BigEndian.Uint32(raw[:4])
			if ext <= 0xff {
				tag = Tag(ext)
			}
			raw = raw[4:]
		}
		v, err := decodeValue(tag, raw)
		if err != nil {
			return nil, errors.Wrapf(err, "ipp: attribute %q", name)
		}

		if len(name) == 0 {
			if last == nil {
				return nil, errors.New("ipp: additional value without an attribute")
			}
			last.Values = append(last.Values, v)
			continue
		}
		group.Attributes = append(group.Attributes, Attribute{Name: string(name), Tag: tag, Values: []interface{}{v}})
		last = &group.Attributes[len(group.Attributes)-1]
	}
}

func decodeValue(tag Tag, b []byte) (interface{}, error) {
	switch tag {
	case TagInteger, TagEnum:
		if len(b) != 4 {
			return nil, errors.Errorf("integer value of length %d", len(b))
		}
		return int32(binary.BigEndian.Uint32(b)), nil
	case TagBoolean:
		if len(b) != 1 {
			return nil, errors.Errorf("boolean value of length %d", len(b))
		}
		return b[0] != 0, nil
	case TagRangeOfInteger:
		if len(b) != 8 {
			return nil, errors.Errorf("rangeOfInteger value of length %d", len(b))
		}
		return RangeOfInteger{
			Lower: int32(binary.BigEndian.Uint32(b[:4])),
			Upper: int32(binary.BigEndian.Uint32(b[4:])),
		}, nil
	case TagText, TagName, TagKeyword, TagURI, TagURIScheme, TagCharset, TagNaturalLanguage, TagMimeMediaType:
		return string(b), nil
	}
	return append([]byte(nil), b...), nil
}

type decoder struct {
	r io.Reader
}

func (d decoder) full(b []byte) error {
	_, err := io.ReadFull(d.r, b)
	return err
}

func (d decoder) readByte() (byte, error) {
	var b [1]byte
	err := d.full(b[:])
	return b[0], err
}

func (d decoder) readString() ([]byte, error) {
	var l [2]byte
	if err := d.full(l[:]); err != nil {
		return nil, err
	}
	b := make([]byte, binary.BigEndian.Uint16(l[:]))
	if err := d.full(b); err != nil {
		return nil, err
	}
	return b, nil
}
