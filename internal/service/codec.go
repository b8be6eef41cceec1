package service

import (
	"encoding/json"
	"fmt"

	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/fxamacker/cbor/v2"
)

// 会话编码名称
const (
	CodecJSON = "json"
	CodecCBOR = "cbor"
)

// SessionCodec 会话序列化方式
type SessionCodec interface {
	Name() string
	Marshal(session *model.Session) ([]byte, error)
	Unmarshal(data []byte, session *model.Session) error
}

// NewSessionCodec 按名称创建会话编码，空名称使用 JSON
func NewSessionCodec(name string) (SessionCodec, error) {
	switch name {
	case "", CodecJSON:
		return jsonCodec{}, nil
	case CodecCBOR:
		return newCBORCodec()
	default:
		return nil, fmt.Errorf("不支持的会话编码: %s", name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecJSON }

func (jsonCodec) Marshal(session *model.Session) ([]byte, error) {
	return json.Marshal(session)
}

func (jsonCodec) Unmarshal(data []byte, session *model.Session) error {
	return json.Unmarshal(data, session)
}

// cborCodec 使用确定性编码，相同会话总是得到相同字节
type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() (SessionCodec, error) {
	opts := cbor.CoreDetEncOptions()
	// 保留纳秒精度，避免会话时间在往返后被截断
	opts.Time = cbor.TimeRFC3339Nano
	enc, err := opts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("创建 CBOR 编码器失败: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("创建 CBOR 解码器失败: %w", err)
	}
	return &cborCodec{enc: enc, dec: dec}, nil
}

func (c *cborCodec) Name() string { return CodecCBOR }

func (c *cborCodec) Marshal(session *model.Session) ([]byte, error) {
	return c.enc.Marshal(session)
}

func (c *cborCodec) Unmarshal(data []byte, session *model.Session) error {
	return c.dec.Unmarshal(data, session)
}
