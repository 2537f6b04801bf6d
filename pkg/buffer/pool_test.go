package buffer

import (
	"bytes"
	"strings"
	"testing"
)

func TestGetPutRoundTrip(t *testing.T) {
	b := Get()
	if b == nil || len(*b) != Size {
		t.Fatalf("Expected pooled buffer of %d bytes", Size)
	}
	Put(b)

	// Put must reject foreign slices without panicking
	small := make([]byte, 10)
	Put(&small)
	Put(nil)
}

func TestCopy(t *testing.T) {
	payload := strings.Repeat("fileflow", 10000)
	var dst bytes.Buffer

	n, err := Copy(&dst, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("Expected %d bytes copied, got %d", len(payload), n)
	}
	if dst.String() != payload {
		t.Error("Copied bytes differ from source")
	}
}
