package http

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/citymesh/message-gateway/internal/delivery"
	"github.com/citymesh/message-gateway/internal/stats"
)

// Status endpoints are read-only projections over message and history state.

func deliveryStatusHandler(agg *delivery.Aggregator) echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := agg.Delivery(c.Request().Context(), c.Param("deliveryId"))
		if err != nil {
			if errors.Is(err, delivery.ErrDeliveryNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
			}
			c.Logger().Errorf("delivery status failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, res)
	}
}

func messageStatusHandler(agg *delivery.Aggregator) echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := agg.Message(c.Request().Context(), c.Param("messageId"))
		if err != nil {
			if errors.Is(err, delivery.ErrDeliveryNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
			}
			c.Logger().Errorf("message status failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"message_id": c.Param("messageId"),
			"deliveries": res,
		})
	}
}

func batchStatusHandler(agg *delivery.Aggregator) echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := agg.Batch(c.Request().Context(), c.Param("batchId"))
		if err != nil {
			c.Logger().Errorf("batch status failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		if len(res.Deliveries) == 0 {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}
		return c.JSON(http.StatusOK, res)
	}
}

func batchStatisticsHandler(svc *stats.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := svc.ForBatch(c.Request().Context(), c.Param("batchId"))
		if err != nil {
			c.Logger().Errorf("batch statistics failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, res)
	}
}
