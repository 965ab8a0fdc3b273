package agent

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeModel is a scripted chat model that records what it was sent.
type fakeModel struct {
	mu        sync.Mutex
	reply     string
	chunks    []string
	err       error
	delay     time.Duration
	calls     int
	lastInput []*schema.Message
}

func (f *fakeModel) record(input []*schema.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastInput = input
}

func (f *fakeModel) wait(ctx context.Context) error {
	if f.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.record(input)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.record(input)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, chunk := range f.chunks {
		msgs = append(msgs, schema.AssistantMessage(chunk, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func (f *fakeModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func (f *fakeModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeModel) LastInput() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastInput
}
