package order_test

import (
	"testing"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLocation(t *testing.T) kernel.GeoPoint {
	t.Helper()
	location, err := kernel.NewGeoPoint(52.52, 13.405)
	require.NoError(t, err)
	return location
}

func TestNewOrder(t *testing.T) {
	t.Run("creates confirmed order", func(t *testing.T) {
		id := kernel.NewUUID()

		o, err := order.NewOrder(id, "+4915112345678", "Invalidenstr. 117", testLocation(t), 149.90, order.CashOnDelivery)

		require.NoError(t, err)
		assert.NoError(t, o.Validate())
		assert.Equal(t, order.Confirmed, o.Status())
		assert.True(t, o.ID().IsEqual(id))
		assert.InDelta(t, 149.90, o.TotalAmount(), 0.001)
		assert.False(t, o.IsPaid())
	})

	t.Run("rejects invalid inputs", func(t *testing.T) {
		id := kernel.NewUUID()
		location := testLocation(t)

		testCases := []struct {
			name string
			run  func() error
		}{
			{"zero id", func() error {
				_, err := order.NewOrder(kernel.UUID{}, "+49151", "street", location, 10, order.Prepaid)
				return err
			}},
			{"empty contact", func() error {
				_, err := order.NewOrder(id, "", "street", location, 10, order.Prepaid)
				return err
			}},
			{"empty street", func() error {
				_, err := order.NewOrder(id, "+49151", "", location, 10, order.Prepaid)
				return err
			}},
			{"zero amount", func() error {
				_, err := order.NewOrder(id, "+49151", "street", location, 0, order.Prepaid)
				return err
			}},
			{"unknown payment method", func() error {
				_, err := order.NewOrder(id, "+49151", "street", location, 10, order.PaymentMethodUnknown)
				return err
			}},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				require.Error(t, tc.run())
			})
		}
	})

	t.Run("zero value fails validation", func(t *testing.T) {
		var o order.Order

		require.ErrorIs(t, o.Validate(), order.ErrOrderIsNotConstructed)
	})
}

func TestOrder_StartDelivery(t *testing.T) {
	t.Run("from confirmed", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), "+49151", "street", testLocation(t), 10, order.Prepaid)

		require.NoError(t, o.StartDelivery())
		assert.Equal(t, order.InDelivery, o.Status())
	})

	t.Run("reassignment keeps order in delivery", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), "+49151", "street", testLocation(t), 10, order.Prepaid)
		require.NoError(t, o.StartDelivery())

		require.NoError(t, o.StartDelivery())
		assert.Equal(t, order.InDelivery, o.Status())
	})

	t.Run("rejected after delivered", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), "+49151", "street", testLocation(t), 10, order.Prepaid)
		require.NoError(t, o.StartDelivery())
		require.NoError(t, o.Deliver())

		err := o.StartDelivery()

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}

func TestOrder_Deliver(t *testing.T) {
	t.Run("prepaid order is paid on delivery", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), "+49151", "street", testLocation(t), 10, order.Prepaid)
		require.NoError(t, o.StartDelivery())

		require.NoError(t, o.Deliver())

		assert.Equal(t, order.Delivered, o.Status())
		assert.True(t, o.IsPaid())
	})

	t.Run("cash order stays unpaid on delivery", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), "+49151", "street", testLocation(t), 10, order.CashOnDelivery)
		require.NoError(t, o.StartDelivery())

		require.NoError(t, o.Deliver())

		assert.Equal(t, order.Delivered, o.Status())
		assert.False(t, o.IsPaid())
	})

	t.Run("rejected from confirmed", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), "+49151", "street", testLocation(t), 10, order.Prepaid)

		require.Error(t, o.Deliver())
	})
}

func TestRestoreOrder(t *testing.T) {
	t.Run("restores persisted state", func(t *testing.T) {
		id := kernel.NewUUID()

		o, err := order.RestoreOrder(id, "+49151", "street", testLocation(t), 25, order.CashOnDelivery, order.InDelivery, false)

		require.NoError(t, err)
		assert.Equal(t, order.InDelivery, o.Status())
		assert.Equal(t, order.CashOnDelivery, o.PaymentMethod())
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		_, err := order.RestoreOrder(
			kernel.NewUUID(), "+49151", "street", testLocation(t), 25, order.CashOnDelivery, order.Unknown, false)

		require.Error(t, err)
	})
}

func TestStatus(t *testing.T) {
	t.Run("string representations", func(t *testing.T) {
		assert.Equal(t, "Confirmed", order.Confirmed.String())
		assert.Equal(t, "InDelivery", order.InDelivery.String())
		assert.Equal(t, "Delivered", order.Delivered.String())
		assert.Equal(t, "Unknown", order.Status(99).String())
	})

	t.Run("validate", func(t *testing.T) {
		assert.NoError(t, order.Confirmed.Validate())
		assert.Error(t, order.Unknown.Validate())
		assert.Error(t, order.Status(99).Validate())
	})
}

func TestPaymentMethod(t *testing.T) {
	t.Run("cash detection", func(t *testing.T) {
		assert.True(t, order.CashOnDelivery.IsCash())
		assert.False(t, order.Prepaid.IsCash())
	})

	t.Run("validate", func(t *testing.T) {
		assert.NoError(t, order.CashOnDelivery.Validate())
		assert.NoError(t, order.Prepaid.Validate())
		assert.Error(t, order.PaymentMethodUnknown.Validate())
	})
}
