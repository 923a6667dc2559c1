package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/mvfit/internal/tensor"
)

// ErrUnsupportedDType is returned for tensors that are not F32.
var ErrUnsupportedDType = errors.New("unsupported safetensors dtype")

// maxHeaderSize bounds the JSON header to reject corrupt files early.
const maxHeaderSize = 100 << 20

// Archive is the decoded content of a SafeTensors file.
type Archive struct {
	Metadata map[string]string
	Tensors  map[string]*tensor.RawTensor
}

// ReadSafeTensors loads every tensor of a SafeTensors file.
func ReadSafeTensors(path string) (*Archive, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for artifact loading
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return DecodeSafeTensors(bytes.NewReader(data))
}

// DecodeSafeTensors parses SafeTensors content from r.
func DecodeSafeTensors(r io.Reader) (*Archive, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return nil, fmt.Errorf("header size %d exceeds limit", headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	archive := &Archive{Tensors: make(map[string]*tensor.RawTensor, len(rawMap))}
	infos := make(map[string]SafeTensorHeader, len(rawMap))
	spans := make([]span, 0, len(rawMap))
	for name, value := range rawMap {
		if name == metadataKey {
			if err := json.Unmarshal(value, &archive.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		if err := validateTensorName(name); err != nil {
			return nil, err
		}

		var info SafeTensorHeader
		if err := json.Unmarshal(value, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tensor %s: %w", name, err)
		}
		infos[name] = info
		spans = append(spans, span{name: name, start: info.DataOffsets[0], end: info.DataOffsets[1]})
	}

	if err := validateOffsets(spans, int64(len(payload))); err != nil {
		return nil, err
	}
	if err := verifyChecksum(archive.Metadata, payload); err != nil {
		return nil, err
	}

	for name, info := range infos {
		raw, err := decodeTensor(name, info, payload)
		if err != nil {
			return nil, err
		}
		archive.Tensors[name] = raw
	}

	return archive, nil
}

func decodeTensor(name string, info SafeTensorHeader, payload []byte) (*tensor.RawTensor, error) {
	if info.DType != dtypeF32 {
		return nil, fmt.Errorf("tensor %s: %w: %s", name, ErrUnsupportedDType, info.DType)
	}

	shape := make(tensor.Shape, len(info.Shape))
	for i, d := range info.Shape {
		shape[i] = int(d)
	}

	start, end := info.DataOffsets[0], info.DataOffsets[1]
	if start < 0 || end < start || end > int64(len(payload)) {
		return nil, fmt.Errorf("tensor %s: data offsets [%d, %d) out of range", name, start, end)
	}
	if end-start != int64(shape.NumElements()*4) {
		return nil, fmt.Errorf("tensor %s: %d bytes for shape %v", name, end-start, shape)
	}

	raw, err := tensor.NewRaw(shape)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	data := raw.Data()
	buf := payload[start:end]
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return raw, nil
}
