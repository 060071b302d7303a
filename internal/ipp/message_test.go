package ipp

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestMarshalBinary(t *testing.T) {
	m := &Message{Version: DefaultVersion, Code: OpPrintJob, RequestID: 7}
	m.Group(TagJobAttributes).Add(
		Integer("copies", 2),
		Ranges("page-ranges", RangeOfInteger{1, 3}, RangeOfInteger{5, 6}),
	)

	got, err := m.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	want := []byte{
		0x01, 0x01, // version
		0x00, 0x02, // Print-Job
		0x00, 0x00, 0x00, 0x07, // request id
		0x02, // job attributes
		0x21, 0x00, 0x06, 'c', 'o', 'p', 'i', 'e', 's', 0x00, 0x04, 0x00, 0x00, 0x00, 0x02,
		0x33, 0x00, 0x0b, 'p', 'a', 'g', 'e', '-', 'r', 'a', 'n', 'g', 'e', 's', 0x00, 0x08,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x03,
		0x33, 0x00, 0x00, 0x00, 0x08, // additional value, empty name
		0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x06,
		0x03, // end
	}
	if !bytes.Equal(got, want) {
		t.Errorf("encoding mismatch\n got: % x\nwant: % x", got, want)
	}
}

func TestMarshalBinaryRejectsBadValues(t *testing.T) {
	type testCase struct {
		name string
		attr Attribute
	}

	cases := []testCase{
		{name: "no values", attr: Attribute{Name: "copies", Tag: TagInteger}},
		{name: "unsupported type", attr: Attribute{Name: "copies", Tag: TagInteger, Values: []interface{}{2.5}}},
		{name: "value too long", attr: Name("job-name", strings.Repeat("x", math.MaxUint16+1))},
		{name: "additional value too long", attr: Attribute{Name: "job-name", Tag: TagName, Values: []interface{}{"a", strings.Repeat("x", math.MaxUint16+1)}}},
		{name: "name too long", attr: Keyword(strings.Repeat("n", math.MaxUint16+1), "one-sided")},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := NewRequest(OpPrintJob, 1)
			m.Group(TagJobAttributes).Add(c.attr)
			if _, err := m.MarshalBinary(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestMarshalBinaryLongestValue(t *testing.T) {
	title := strings.Repeat("x", math.MaxUint16)
	m := NewRequest(OpPrintJob, 1)
	m.Group(TagOperationAttributes).Add(Name("job-name", title))

	b, err := m.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	a, ok := got.Find("job-name")
	if !ok {
		t.Fatal("missing job-name")
	}
	if v, _ := a.StringValue(); v != title {
		t.Errorf("expected a %d octet job-name, got %d", len(title), len(v))
	}
}

func TestDecode(t *testing.T) {
	req := NewRequest(OpPrintJob, 99)
	req.Group(TagOperationAttributes).Add(
		URI("printer-uri", "ipp://cups.example/printers/lobby"),
		Name("requesting-user-name", "alice"),
	)
	req.Group(TagJobAttributes).Add(
		Keyword("sides", "two-sided-long-edge"),
		Ranges("page-ranges", RangeOfInteger{1, 5}, RangeOfInteger{10, 12}),
		Integer("copies", 3),
		Attribute{Name: "job-hold", Tag: TagBoolean, Values: []interface{}{true}},
		Attribute{Name: "job-state", Tag: TagEnum, Values: []interface{}{int32(3)}},
	)

	b, err := req.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	// Document data after the end tag must be left alone.
	r := bytes.NewReader(append(b, []byte("%PDF-1.7")...))

	got, err := Decode(r)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, req) {
		t.Errorf("decoded message differs\n got: %+v\nwant: %+v", got, req)
	}
	if r.Len() != len("%PDF-1.7") {
		t.Errorf("decoder consumed document data, %d bytes left", r.Len())
	}

	a, ok := got.Find("page-ranges")
	if !ok {
		t.Fatal("page-ranges not found")
	}
	if len(a.Values) != 2 {
		t.Errorf("expected two page-ranges values, got %v", a.Values)
	}
	if s, ok := a.StringValue(); ok {
		t.Errorf("expected page-ranges not to be a string, got %q", s)
	}
}

func TestDecodeErrors(t *testing.T) {
	type testCase struct {
		name string
		data []byte
	}

	cases := []testCase{
		{name: "short header", data: []byte{0x01, 0x01, 0x00}},
		{name: "missing end tag", data: []byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x01}},
		{name: "value outside group", data: []byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x21, 0x00, 0x00}},
		{name: "bad integer length", data: []byte{
			0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01,
			0x02, 0x21, 0x00, 0x01, 'x', 0x00, 0x02, 0x00, 0x01, 0x03,
		}},
		{name: "orphan additional value", data: []byte{
			0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01,
			0x02, 0x44, 0x00, 0x00, 0x00, 0x01, 'a', 0x03,
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Decode(bytes.NewReader(c.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestStatusOK(t *testing.T) {
	type testCase struct {
		code uint16
		want bool
	}

	cases := []testCase{
		{code: 0x0000, want: true},
		{code: 0x0001, want: true},
		{code: 0x0400, want: false},
		{code: 0x0500, want: false},
	}

	for _, c := range cases {
		m := &Message{Code: c.code}
		if got := m.StatusOK(); got != c.want {
			t.Errorf("StatusOK(0x%04x) = %v, want %v", c.code, got, c.want)
		}
	}
}
