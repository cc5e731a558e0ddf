package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ecommerce-backend/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder creates a new order --> POST /orders
// Only product ids and quantities are accepted from the client; prices come
// from the catalog.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	req := struct {
		Items    []service.CreateOrderItem `json:"items"`
		Currency string                    `json:"currency"`
	}{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	order, clientSecret, err := h.orderService.Create(c.Request().Context(), userID, req.Items, req.Currency)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"order":         order,
		"client_secret": clientSecret,
	})
}

// ListOrders returns the caller's orders --> GET /orders
func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	orders, err := h.orderService.List(c.Request().Context(), userID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// GetOrder returns one of the caller's orders --> GET /orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	order, err := h.orderService.Get(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// CancelOrder cancels a pending order --> POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	order, err := h.orderService.Cancel(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, order)
}
