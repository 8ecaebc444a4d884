package rabbit

import (
	"context"
	"testing"

	"order-tracking-service/internal/model"
	"order-tracking-service/internal/recognition"
	"order-tracking-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	created map[string]bool
}

func (f *fakeCreator) CreateOrder(_ context.Context, code string) (*model.Order, error) {
	code = recognition.NormalizeCode(code)
	if f.created[code] {
		return nil, service.ErrAlreadyExists
	}
	f.created[code] = true
	return &model.Order{Code: code, Status: model.InitialStatus}, nil
}

func TestOrderPlacedConsumer(t *testing.T) {
	f := &fakeCreator{created: map[string]bool{}}
	c := NewOrderPlacedConsumer(f)
	ctx := context.Background()

	msg := []byte(`{"correlation_id":"c1","message":{"orderId":"cust001","userId":"u1"}}`)
	require.NoError(t, c.Handle(ctx, msg))
	assert.True(t, f.created["CUST001"])

	assert.NoError(t, c.Handle(ctx, msg), "redelivery is a no-op")

	assert.Error(t, c.Handle(ctx, []byte(`{"message":{}}`)))
	assert.Error(t, c.Handle(ctx, []byte(`not json`)))
}
