package tblog

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of tensorflow.Event, tensorflow.Summary and its nested
// Value and Image messages.
const (
	eventWallTime    protowire.Number = 1
	eventStep        protowire.Number = 2
	eventFileVersion protowire.Number = 3
	eventSummary     protowire.Number = 5

	summaryValue protowire.Number = 1

	valueTag    protowire.Number = 1
	valueSimple protowire.Number = 2
	valueImage  protowire.Number = 4

	imageHeight     protowire.Number = 1
	imageWidth      protowire.Number = 2
	imageColorspace protowire.Number = 3
	imageEncoded    protowire.Number = 4
)

// fileVersion is the version string TensorBoard expects first in a file.
const fileVersion = "brain.Event:2"

// rgbaColorspace is the Summary.Image colorspace of 4-channel images.
const rgbaColorspace = 4

// Event is a decoded tensorflow.Event.
type Event struct {
	WallTime    float64
	Step        int64
	FileVersion string
	Values      []Value
}

// Value is one entry of a summary.
type Value struct {
	Tag    string
	Simple float32
	Image  *Image
}

// Image is an encoded image summary.
type Image struct {
	Height, Width int32
	Colorspace    int32
	Encoded       []byte // PNG
}

func (e *Event) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, eventWallTime, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(e.WallTime))
	if e.Step != 0 {
		b = protowire.AppendTag(b, eventStep, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Step))
	}
	if e.FileVersion != "" {
		b = protowire.AppendTag(b, eventFileVersion, protowire.BytesType)
		b = protowire.AppendString(b, e.FileVersion)
		return b
	}

	var summary []byte
	for i := range e.Values {
		summary = protowire.AppendTag(summary, summaryValue, protowire.BytesType)
		summary = protowire.AppendBytes(summary, e.Values[i].marshal())
	}
	b = protowire.AppendTag(b, eventSummary, protowire.BytesType)
	b = protowire.AppendBytes(b, summary)
	return b
}

func (v *Value) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, valueTag, protowire.BytesType)
	b = protowire.AppendString(b, v.Tag)
	if v.Image != nil {
		var img []byte
		img = protowire.AppendTag(img, imageHeight, protowire.VarintType)
		img = protowire.AppendVarint(img, uint64(v.Image.Height))
		img = protowire.AppendTag(img, imageWidth, protowire.VarintType)
		img = protowire.AppendVarint(img, uint64(v.Image.Width))
		img = protowire.AppendTag(img, imageColorspace, protowire.VarintType)
		img = protowire.AppendVarint(img, uint64(v.Image.Colorspace))
		img = protowire.AppendTag(img, imageEncoded, protowire.BytesType)
		img = protowire.AppendBytes(img, v.Image.Encoded)

		b = protowire.AppendTag(b, valueImage, protowire.BytesType)
		return protowire.AppendBytes(b, img)
	}
	b = protowire.AppendTag(b, valueSimple, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v.Simple))
}

// unmarshalEvent decodes the fields this package writes and skips the rest.
func unmarshalEvent(b []byte) (*Event, error) {
	e := &Event{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == eventWallTime && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			e.WallTime = math.Float64frombits(v)
			return n, nil
		case num == eventStep && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			e.Step = int64(v)
			return n, nil
		case num == eventFileVersion && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			e.FileVersion = v
			return n, nil
		case num == eventSummary && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			return n, unmarshalSummary(v, e)
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

func unmarshalSummary(b []byte, e *Event) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != summaryValue || typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		var val Value
		err := walkFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch {
			case num == valueTag && typ == protowire.BytesType:
				s, n := protowire.ConsumeString(b)
				val.Tag = s
				return n, nil
			case num == valueSimple && typ == protowire.Fixed32Type:
				x, n := protowire.ConsumeFixed32(b)
				val.Simple = math.Float32frombits(x)
				return n, nil
			case num == valueImage && typ == protowire.BytesType:
				raw, n := protowire.ConsumeBytes(b)
				if n < 0 {
					return n, nil
				}
				img, err := unmarshalImage(raw)
				val.Image = img
				return n, err
			}
			return protowire.ConsumeFieldValue(num, typ, b), nil
		})
		e.Values = append(e.Values, val)
		return n, err
	})
}

func unmarshalImage(b []byte) (*Image, error) {
	img := &Image{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			switch num {
			case imageHeight:
				img.Height = int32(v)
			case imageWidth:
				img.Width = int32(v)
			case imageColorspace:
				img.Colorspace = int32(v)
			}
			return n, nil
		}
		if num == imageEncoded && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			img.Encoded = append([]byte(nil), v...)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return img, err
}

// walkFields calls fn for every field of a message. fn consumes the field
// value and returns its length, or a negative protowire error code.
func walkFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}
