package classfile

import (
	"bytes"
	"testing"
)

func TestModifiedUtf8(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		encoded []byte
	}{
		{"ascii", "abc", []byte("abc")},
		{"nul", "a\x00b", []byte{'a', 0xC0, 0x80, 'b'}},
		{"two byte", "é", []byte{0xC3, 0xA9}},
		{"supplementary", "\U0001F600", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeModifiedUtf8(tt.value); !bytes.Equal(got, tt.encoded) {
				t.Errorf("encodeModifiedUtf8(%q) = % X, want % X", tt.value, got, tt.encoded)
			}
			if got := decodeModifiedUtf8(tt.encoded); got != tt.value {
				t.Errorf("decodeModifiedUtf8(% X) = %q, want %q", tt.encoded, got, tt.value)
			}
		})
	}
}

// classWithUtf8 assembles a class whose only name is the given raw
// Utf8 bytes.
func classWithUtf8(raw []byte) []byte {
	data := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52, 0, 3, 1, 0, byte(len(raw))}
	data = append(data, raw...)
	data = append(data,
		7, 0, 1, // #2 Class #1
		0, 0x21, // flags
		0, 2, 0, 0, // this, super
		0, 0, 0, 0, 0, 0, 0, 0, // interfaces, fields, methods, attributes
	)
	return data
}

func TestNonCanonicalUtf8Preserved(t *testing.T) {
	// Overlong encoding of 'A' followed by an unpaired high surrogate.
	raw := []byte{0xC1, 0x81, 0xED, 0xA0, 0x80}
	data := classWithUtf8(raw)

	cf, err := ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	out, err := cf.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("round trip = % X, want % X", out, data)
	}

	cf.ConstantPool[0].(*ConstantUtf8Info).Value = "B"
	out, err = cf.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if want := classWithUtf8([]byte("B")); !bytes.Equal(out, want) {
		t.Errorf("after edit = % X, want % X", out, want)
	}
}
