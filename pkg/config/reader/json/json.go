package json

import (
	"time"

	"dario.cat/mergo"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/pkg/config/encoder"
	"github.com/ninja0404/meme-sniper/pkg/config/encoder/json"
	"github.com/ninja0404/meme-sniper/pkg/config/reader"
	"github.com/ninja0404/meme-sniper/pkg/config/source"
)

type jsonReader struct {
	opts reader.Options
	json encoder.Encoder
}

// Merge 按顺序合并，后面的数据源覆盖前面的
func (j *jsonReader) Merge(changes ...*source.ChangeSet) (*source.ChangeSet, error) {
	var merged map[string]interface{}

	for _, m := range changes {
		if m == nil || len(m.Data) == 0 {
			continue
		}

		codec, ok := j.opts.Encoding[m.Format]
		if !ok {
			// 未知格式按 json 处理
			codec = j.json
		}

		var data map[string]interface{}
		if err := codec.Decode(m.Data, &data); err != nil {
			return nil, errors.Wrapf(err, "decode %s from %s", m.Format, m.Source)
		}
		if err := mergo.Map(&merged, data, mergo.WithOverride); err != nil {
			return nil, errors.Wrapf(err, "merge %s", m.Source)
		}
	}

	b, err := j.json.Encode(merged)
	if err != nil {
		return nil, err
	}

	cs := &source.ChangeSet{
		Timestamp: time.Now(),
		Data:      b,
		Source:    "json",
		Format:    j.json.String(),
	}
	cs.Checksum = cs.Sum()

	return cs, nil
}

func (j *jsonReader) Values(ch *source.ChangeSet) (reader.Values, error) {
	if ch == nil {
		return nil, errors.New("changeset is nil")
	}
	if ch.Format != "json" {
		return nil, errors.New("unsupported format")
	}
	return newValues(ch)
}

func (j *jsonReader) String() string {
	return "json"
}

// NewReader creates a json reader
func NewReader(opts ...reader.Option) reader.Reader {
	options := reader.NewOptions(opts...)
	return &jsonReader{
		json: json.NewJsonEncoder(),
		opts: options,
	}
}
