package messaging

import (
	"testing"

	"fulfillment_service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProductCommand_Create(t *testing.T) {
	cmd, err := DecodeProductCommand([]byte(`{"action":"create","name":"widget","price":9.99,"stock_quantity":5}`))
	require.NoError(t, err)

	create, ok := cmd.(CreateProductCommand)
	require.True(t, ok, "expected CreateProductCommand, got %T", cmd)
	assert.Equal(t, "widget", create.Name)
	assert.InDelta(t, 9.99, create.Price, 1e-9)
	assert.Equal(t, 5, create.StockQuantity)
}

func TestDecodeProductCommand_CreateMissingFields(t *testing.T) {
	_, err := DecodeProductCommand([]byte(`{"action":"create","name":"widget"}`))
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestDecodeProductCommand_Update(t *testing.T) {
	cmd, err := DecodeProductCommand([]byte(`{"action":"update","id":3,"price":4.50}`))
	require.NoError(t, err)

	update, ok := cmd.(UpdateProductCommand)
	require.True(t, ok)
	assert.Equal(t, int64(3), update.ID)
	require.NotNil(t, update.Price)
	assert.InDelta(t, 4.50, *update.Price, 1e-9)
	assert.Nil(t, update.Name)
	assert.Nil(t, update.StockQuantity)
}

func TestDecodeProductCommand_UpdateWithoutFields(t *testing.T) {
	_, err := DecodeProductCommand([]byte(`{"action":"update","id":3}`))
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestDecodeProductCommand_MarkOutOfStock(t *testing.T) {
	cmd, err := DecodeProductCommand([]byte(`{"action":"mark_out_of_stock","id":7}`))
	require.NoError(t, err)

	mark, ok := cmd.(MarkOutOfStockCommand)
	require.True(t, ok)
	assert.Equal(t, int64(7), mark.ID)

	_, err = DecodeProductCommand([]byte(`{"action":"mark_out_of_stock"}`))
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestDecodeProductCommand_UnknownActionIsExplicit(t *testing.T) {
	cmd, err := DecodeProductCommand([]byte(`{"action":"restock_all"}`))
	require.NoError(t, err)

	unrecognized, ok := cmd.(UnrecognizedCommand)
	require.True(t, ok, "unknown actions must decode to an explicit variant, got %T", cmd)
	assert.Equal(t, "restock_all", unrecognized.Action)
}

func TestDecodeProductCommand_InvalidJSON(t *testing.T) {
	_, err := DecodeProductCommand([]byte(`{broken`))
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "payload", validation.Field)
}

func TestDecodeOrderCommand_Create(t *testing.T) {
	payload := `{"action":"create","user_id":1,"address_id":2,"items":[{"product_id":3,"quantity":4}]}`
	cmd, err := DecodeOrderCommand([]byte(payload))
	require.NoError(t, err)

	create, ok := cmd.(CreateOrderCommand)
	require.True(t, ok)
	assert.Equal(t, int64(1), create.UserID)
	assert.Equal(t, int64(2), create.AddressID)
	require.Len(t, create.Items, 1)
	assert.Equal(t, int64(3), create.Items[0].ProductID)
	assert.Equal(t, 4, create.Items[0].Quantity)
}

func TestDecodeOrderCommand_CreateMissingItems(t *testing.T) {
	_, err := DecodeOrderCommand([]byte(`{"action":"create","user_id":1,"address_id":2}`))
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestDecodeOrderCommand_UpdateStatus(t *testing.T) {
	cmd, err := DecodeOrderCommand([]byte(`{"action":"update_status","id":9,"status":"shipped"}`))
	require.NoError(t, err)

	update, ok := cmd.(UpdateOrderStatusCommand)
	require.True(t, ok)
	assert.Equal(t, int64(9), update.ID)
	assert.Equal(t, domain.StatusShipped, update.Status)
}

func TestDecodeOrderCommand_UpdateStatusRejectsUnknownStatus(t *testing.T) {
	_, err := DecodeOrderCommand([]byte(`{"action":"update_status","id":9,"status":"teleported"}`))
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "status", validation.Field)
}

func TestDecodeOrderCommand_UnknownAction(t *testing.T) {
	cmd, err := DecodeOrderCommand([]byte(`{"action":"cancel_everything"}`))
	require.NoError(t, err)

	unrecognized, ok := cmd.(UnrecognizedCommand)
	require.True(t, ok)
	assert.Equal(t, "cancel_everything", unrecognized.Action)
}
