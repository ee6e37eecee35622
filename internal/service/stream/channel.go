package stream

import (
	"context"
	"io"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

// ChannelSource adapts a channel of batches fed by an in-process detector.
// Closing the channel ends the stream.
type ChannelSource struct {
	ch <-chan model.Batch
}

func NewChannelSource(ch <-chan model.Batch) *ChannelSource {
	return &ChannelSource{ch: ch}
}

func (s *ChannelSource) Next(ctx context.Context) (model.Batch, error) {
	select {
	case <-ctx.Done():
		return model.Batch{}, ctx.Err()
	case batch, ok := <-s.ch:
		if !ok {
			return model.Batch{}, io.EOF
		}
		return batch, nil
	}
}

func (s *ChannelSource) Close() error { return nil }
