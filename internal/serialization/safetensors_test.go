package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/mvfit/internal/tensor"
)

func testTensors(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()
	coeffs, err := tensor.RawFromSlice([]float32{1.5, -2, 3.25, 0}, tensor.Shape{1, 4})
	require.NoError(t, err)
	latent, err := tensor.RawFromSlice([]float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, tensor.Shape{1, 2, 3})
	require.NoError(t, err)
	return map[string]*tensor.RawTensor{"coeffs": coeffs, "latent_w": latent}
}

func TestSafeTensors_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.safetensors")
	tensors := testTensors(t)

	require.NoError(t, WriteSafeTensors(path, tensors, map[string]string{"views": "2"}))

	archive, err := ReadSafeTensors(path)
	require.NoError(t, err)

	assert.Equal(t, "2", archive.Metadata["views"])
	assert.Len(t, archive.Metadata[ChecksumKey], 64)
	require.Len(t, archive.Tensors, 2)
	for name, want := range tensors {
		got := archive.Tensors[name]
		require.NotNil(t, got, name)
		assert.Equal(t, want.Shape(), got.Shape(), name)
		assert.Equal(t, want.Data(), got.Data(), name)
	}
}

func TestSafeTensors_ViewsAreEncodedByValue(t *testing.T) {
	parent, err := tensor.RawFromSlice([]float32{0, 1, 2, 3, 4, 5}, tensor.Shape{6})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeSafeTensors(&buf, map[string]*tensor.RawTensor{
		"tail": parent.View(3, tensor.Shape{3}),
	}, nil))

	archive, err := DecodeSafeTensors(&buf)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4, 5}, archive.Tensors["tail"].Data())
}

func TestSafeTensors_ChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeSafeTensors(&buf, testTensors(t), nil))

	data := buf.Bytes()
	data[len(data)-1] ^= 0xff

	_, err := DecodeSafeTensors(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

// encodeHeader builds a file from a hand-written header and payload.
func encodeHeader(t *testing.T, header map[string]any, payload []byte) []byte {
	t.Helper()
	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON))))
	buf.Write(headerJSON)
	buf.Write(payload)
	return buf.Bytes()
}

func TestDecodeSafeTensors_Validation(t *testing.T) {
	payload := make([]byte, 16)

	tests := []struct {
		name   string
		header map[string]any
		want   error
	}{
		{
			name: "overlap",
			header: map[string]any{
				"a": SafeTensorHeader{DType: "F32", Shape: []int64{3}, DataOffsets: [2]int64{0, 12}},
				"b": SafeTensorHeader{DType: "F32", Shape: []int64{2}, DataOffsets: [2]int64{8, 16}},
			},
			want: ErrOffsetOverlap,
		},
		{
			name: "out of bounds",
			header: map[string]any{
				"a": SafeTensorHeader{DType: "F32", Shape: []int64{8}, DataOffsets: [2]int64{0, 32}},
			},
			want: ErrOutOfBounds,
		},
		{
			name: "path-like name",
			header: map[string]any{
				"../a": SafeTensorHeader{DType: "F32", Shape: []int64{1}, DataOffsets: [2]int64{0, 4}},
			},
			want: ErrInvalidTensorName,
		},
		{
			name: "unsupported dtype",
			header: map[string]any{
				"a": SafeTensorHeader{DType: "F16", Shape: []int64{2}, DataOffsets: [2]int64{0, 4}},
			},
			want: ErrUnsupportedDType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSafeTensors(bytes.NewReader(encodeHeader(t, tt.header, payload)))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeSafeTensors_WithoutChecksum(t *testing.T) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, 0x3f800000) // 1.0

	data := encodeHeader(t, map[string]any{
		"one": SafeTensorHeader{DType: "F32", Shape: []int64{1}, DataOffsets: [2]int64{0, 4}},
	}, payload)

	archive, err := DecodeSafeTensors(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, archive.Tensors["one"].Data())
}

func TestEncodeSafeTensors_InvalidName(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeSafeTensors(&buf, map[string]*tensor.RawTensor{
		metadataKey: tensor.MustRaw(tensor.Shape{1}),
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidTensorName)
}
