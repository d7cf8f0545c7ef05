package loaders

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// LoadSPIRV reads a compiled SPIR-V module and returns it as 32 bit words.
func LoadSPIRV(path string) ([]uint32, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read shader binary %s", path)
	}
	return ParseSPIRV(buf)
}

// ParseSPIRV checks the size and the magic number of a little endian SPIR-V module.
func ParseSPIRV(buf []byte) ([]uint32, error) {
	if len(buf) == 0 {
		return nil, errors.New("shader binary is empty")
	}
	if len(buf)%4 != 0 {
		return nil, errors.Newf("shader binary size %d is not a multiple of 4", len(buf))
	}
	code := bytesToBytecode(buf)
	if code[0] != SPIRVMagic {
		return nil, errors.Newf("invalid SPIR-V magic number 0x%08x", code[0])
	}
	return code, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return byteCode
}
