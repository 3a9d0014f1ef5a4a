package fitstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/tormoder/fit/dyncrc16"

	fitenergy "github.com/lucasjlepore/fit-energy"
)

const (
	compressedHeaderMask       = 0x80
	compressedLocalMesgNumMask = 0x60
	compressedTimeMask         = 0x1F
	mesgDefinitionMask         = 0x40
	devDataMask                = 0x20
	localMesgNumMask           = 0x0F

	headerSizeNoCRC = 12
	headerSizeCRC   = 14
)

// ErrNotFIT is returned when the bytes do not start with a FIT header.
var ErrNotFIT = errors.New("not a fit file")

type baseType uint8

const (
	baseEnum    baseType = 0x00
	baseSint8   baseType = 0x01
	baseUint8   baseType = 0x02
	baseSint16  baseType = 0x83
	baseUint16  baseType = 0x84
	baseSint32  baseType = 0x85
	baseUint32  baseType = 0x86
	baseString  baseType = 0x07
	baseFloat32 baseType = 0x88
	baseFloat64 baseType = 0x89
	baseUint8z  baseType = 0x0A
	baseUint16z baseType = 0x8B
	baseUint32z baseType = 0x8C
	baseByte    baseType = 0x0D
	baseSint64  baseType = 0x8E
	baseUint64  baseType = 0x8F
	baseUint64z baseType = 0x90
)

var baseSizes = map[baseType]int{
	baseEnum: 1, baseSint8: 1, baseUint8: 1,
	baseSint16: 2, baseUint16: 2,
	baseSint32: 4, baseUint32: 4,
	baseString: 1,
	baseFloat32: 4, baseFloat64: 8,
	baseUint8z: 1, baseUint16z: 2, baseUint32z: 4,
	baseByte:   1,
	baseSint64: 8, baseUint64: 8, baseUint64z: 8,
}

type fieldDef struct {
	number uint8
	size   uint8
	base   baseType
}

type localDefinition struct {
	global       uint16
	arch         binary.ByteOrder
	fields       []fieldDef
	devFieldSize int
}

type lenientReader struct {
	data           []byte
	definitions    map[uint8]localDefinition
	lastTimestamp  uint32
	lastTimeOffset int32
	stream         *Stream
}

// DecodeLenient reads the record, session and lap messages of a FIT file
// without rejecting it for CRC mismatches, truncation or a corrupt tail. Every
// problem it tolerates is reported in Stream.Warnings. Only a missing or
// malformed file header is an error.
func DecodeLenient(data []byte) (*Stream, error) {
	dataStart, dataSize, err := readHeader(data)
	if err != nil {
		return nil, err
	}

	s := newStream(DecoderLenient)
	end := dataStart + dataSize
	switch {
	case len(data) < end:
		s.Warnings = append(s.Warnings, fmt.Sprintf("fit file truncated: have %d data bytes, header declares %d", len(data)-dataStart, dataSize))
		end = len(data)
	case len(data) < end+2:
		s.Warnings = append(s.Warnings, "fit file CRC missing")
	default:
		stored := binary.LittleEndian.Uint16(data[end : end+2])
		if computed := dyncrc16.Checksum(data[:end]); stored != computed {
			s.Warnings = append(s.Warnings, fmt.Sprintf("fit file CRC mismatch: stored 0x%04X, computed 0x%04X", stored, computed))
		}
	}

	r := &lenientReader{
		data:        data[dataStart:end],
		definitions: make(map[uint8]localDefinition),
		stream:      s,
	}
	if err := r.run(); err != nil {
		s.Warnings = append(s.Warnings, fmt.Sprintf("stopped reading early: %v", err))
	}
	return s, nil
}

func readHeader(data []byte) (int, int, error) {
	if len(data) < headerSizeNoCRC {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrNotFIT, len(data))
	}
	size := int(data[0])
	if size != headerSizeNoCRC && size != headerSizeCRC {
		return 0, 0, fmt.Errorf("%w: header size %d", ErrNotFIT, size)
	}
	if len(data) < size {
		return 0, 0, fmt.Errorf("%w: truncated header", ErrNotFIT)
	}
	if string(data[8:12]) != ".FIT" {
		return 0, 0, fmt.Errorf("%w: data type %q", ErrNotFIT, string(data[8:12]))
	}
	return size, int(binary.LittleEndian.Uint32(data[4:8])), nil
}

func (r *lenientReader) run() error {
	pos := 0
	for pos < len(r.data) {
		headerByte := r.data[pos]
		pos++

		var err error
		switch {
		case headerByte&compressedHeaderMask == compressedHeaderMask:
			local := (headerByte & compressedLocalMesgNumMask) >> 5
			pos, err = r.readData(pos, headerByte, local, true)
		case headerByte&mesgDefinitionMask == mesgDefinitionMask:
			pos, err = r.readDefinition(pos, headerByte)
		default:
			pos, err = r.readData(pos, headerByte, headerByte&localMesgNumMask, false)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *lenientReader) take(pos, n int) ([]byte, int, error) {
	if pos+n > len(r.data) {
		return nil, pos, fmt.Errorf("message truncated at byte %d", pos)
	}
	return r.data[pos : pos+n], pos + n, nil
}

func (r *lenientReader) readDefinition(pos int, headerByte uint8) (int, error) {
	fixed, pos, err := r.take(pos, 5)
	if err != nil {
		return pos, err
	}

	var arch binary.ByteOrder
	switch fixed[1] {
	case 0:
		arch = binary.LittleEndian
	case 1:
		arch = binary.BigEndian
	default:
		return pos, fmt.Errorf("invalid architecture byte %d", fixed[1])
	}

	def := localDefinition{
		global: arch.Uint16(fixed[2:4]),
		arch:   arch,
	}
	numFields := int(fixed[4])
	def.fields = make([]fieldDef, 0, numFields)
	for i := 0; i < numFields; i++ {
		var raw []byte
		if raw, pos, err = r.take(pos, 3); err != nil {
			return pos, err
		}
		def.fields = append(def.fields, fieldDef{number: raw[0], size: raw[1], base: decompressBaseType(raw[2])})
	}

	if headerByte&devDataMask == devDataMask {
		var countRaw []byte
		if countRaw, pos, err = r.take(pos, 1); err != nil {
			return pos, err
		}
		for i := 0; i < int(countRaw[0]); i++ {
			var raw []byte
			if raw, pos, err = r.take(pos, 3); err != nil {
				return pos, err
			}
			def.devFieldSize += int(raw[1])
		}
	}

	r.definitions[headerByte&localMesgNumMask] = def
	return pos, nil
}

func (r *lenientReader) readData(pos int, headerByte, local uint8, compressed bool) (int, error) {
	def, ok := r.definitions[local]
	if !ok {
		return pos, fmt.Errorf("missing definition for local message %d", local)
	}

	kind, keep := kindByMessage[def.global]
	var out fitenergy.Fields
	if keep {
		out = fitenergy.Fields{}
	}

	if compressed {
		offset := int32(headerByte & compressedTimeMask)
		if r.lastTimestamp != 0 {
			r.lastTimestamp += uint32((offset - r.lastTimeOffset) & compressedTimeMask)
			r.lastTimeOffset = offset
			if keep {
				out["timestamp"] = fitTimestampToUTC(r.lastTimestamp)
			}
		}
	}

	for _, fd := range def.fields {
		var (
			raw []byte
			err error
		)
		if raw, pos, err = r.take(pos, int(fd.size)); err != nil {
			return pos, err
		}
		value, valid := decodeScalar(raw, fd.base, def.arch)
		if fd.number == fieldNumTimestamp && valid {
			if ts, ok := asTimestampRaw(value); ok {
				r.lastTimestamp = ts
				r.lastTimeOffset = int32(ts & compressedTimeMask)
			}
		}
		if !keep || !valid {
			continue
		}
		sem, ok := semanticForField(def.global, fd.number)
		if !ok {
			continue
		}
		if sem.scaler != nil {
			if value, ok = sem.scaler(value); !ok {
				continue
			}
		}
		out[sem.name] = value
	}

	if def.devFieldSize > 0 {
		var err error
		if _, pos, err = r.take(pos, def.devFieldSize); err != nil {
			return pos, err
		}
	}

	if keep {
		r.stream.add(kind, out)
	}
	return pos, nil
}

// decodeScalar decodes a single-element field. Arrays, strings and values
// equal to the base type's invalid sentinel report valid=false.
func decodeScalar(raw []byte, bt baseType, arch binary.ByteOrder) (any, bool) {
	size, ok := baseSizes[bt]
	if !ok || len(raw) != size || bt == baseString || bt == baseByte {
		return nil, false
	}
	switch bt {
	case baseEnum, baseUint8:
		v := raw[0]
		return v, v != 0xFF
	case baseSint8:
		v := int8(raw[0])
		return v, v != math.MaxInt8
	case baseSint16:
		v := int16(arch.Uint16(raw))
		return v, v != math.MaxInt16
	case baseUint16:
		v := arch.Uint16(raw)
		return v, v != math.MaxUint16
	case baseSint32:
		v := int32(arch.Uint32(raw))
		return v, v != math.MaxInt32
	case baseUint32:
		v := arch.Uint32(raw)
		return v, v != math.MaxUint32
	case baseFloat32:
		bits := arch.Uint32(raw)
		return float64(math.Float32frombits(bits)), bits != math.MaxUint32
	case baseFloat64:
		bits := arch.Uint64(raw)
		return math.Float64frombits(bits), bits != math.MaxUint64
	case baseUint8z:
		v := raw[0]
		return v, v != 0
	case baseUint16z:
		v := arch.Uint16(raw)
		return v, v != 0
	case baseUint32z:
		v := arch.Uint32(raw)
		return v, v != 0
	case baseSint64:
		v := int64(arch.Uint64(raw))
		return v, v != math.MaxInt64
	case baseUint64:
		v := arch.Uint64(raw)
		return v, v != math.MaxUint64
	case baseUint64z:
		v := arch.Uint64(raw)
		return v, v != 0
	}
	return nil, false
}

func decompressBaseType(b byte) baseType {
	switch b & 0x1F {
	case 0x03:
		return baseSint16
	case 0x04:
		return baseUint16
	case 0x05:
		return baseSint32
	case 0x06:
		return baseUint32
	case 0x08:
		return baseFloat32
	case 0x09:
		return baseFloat64
	case 0x0B:
		return baseUint16z
	case 0x0C:
		return baseUint32z
	case 0x0E:
		return baseSint64
	case 0x0F:
		return baseUint64
	case 0x10:
		return baseUint64z
	default:
		return baseType(b & 0x1F)
	}
}
