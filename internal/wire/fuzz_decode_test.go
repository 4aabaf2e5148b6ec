package wire

import (
	"bytes"
	"testing"
)

func FuzzDecode(f *testing.F) {
	f.Add([]byte(`{"id":"a","key":"dice","content":7}`))
	f.Add([]byte(`{"id":"a","key":"offer","content":{"task":"t","conditions":["c"]}}`))
	f.Add([]byte(`{"id":"a","key":"decision","content":"accept"}`))
	f.Add([]byte(`{"id":"a","key":"quit","content":true}`))
	f.Add([]byte(`{"id":"","key":"","content":null}`))
	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := Decode(data)
		if err != nil {
			return
		}
		out, err := Encode(m)
		if err != nil {
			t.Fatalf("decoded message failed to re-encode: %v", err)
		}
		if _, err := Decode(out); err != nil {
			t.Fatalf("re-encoded message failed to decode: %v", err)
		}
	})
}

func FuzzReadFrame(f *testing.F) {
	f.Add([]byte{0, 0, 0, 1, '{'})
	f.Add([]byte{0, 0, 0, 5, '{', '"', 'a', '"', '}'})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff})
	f.Fuzz(func(t *testing.T, data []byte) {
		payload, err := ReadFrame(bytes.NewReader(data))
		if err != nil {
			return
		}
		if len(payload) == 0 || len(payload) > MaxFrameSize {
			t.Fatalf("ReadFrame returned %d bytes", len(payload))
		}
	})
}
