package loaders

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func spirvWords(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

func TestLoadSPIRV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "simple_shader.vert.spv")
	if err := os.WriteFile(path, spirvWords(SPIRVMagic, 0x00010000, 7, 42), 0o644); err != nil {
		t.Fatal(err)
	}

	code, err := LoadSPIRV(path)
	if err != nil {
		t.Fatalf("LoadSPIRV() error = %v", err)
	}
	want := []uint32{SPIRVMagic, 0x00010000, 7, 42}
	if len(code) != len(want) {
		t.Fatalf("got %d words, want %d", len(code), len(want))
	}
	for i := range want {
		if code[i] != want[i] {
			t.Errorf("word %d = 0x%x, want 0x%x", i, code[i], want[i])
		}
	}
}

func TestLoadSPIRVMissingFile(t *testing.T) {
	if _, err := LoadSPIRV(filepath.Join(t.TempDir(), "nope.spv")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestParseSPIRVRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"truncated", append(spirvWords(SPIRVMagic), 0x01, 0x02)},
		{"bad magic", spirvWords(0xdeadbeef, 1)},
		{"big endian", []byte{0x07, 0x23, 0x02, 0x03}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSPIRV(tt.buf); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
