package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	p, err := principal(c)
	if err != nil {
		l.Warn("list_orders_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}

	total, orders, err := h.Svc.ListOrders(ctx, p, limit, from)
	if err != nil {
		code, msg := statusFor(err)
		l.Error("list_orders_error", "status", code, "error", err)
		return echo.NewHTTPError(code, msg)
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	return c.JSON(http.StatusOK, transport.OrderListResponse{
		Data: orders,
		Meta: transport.ListMeta{
			Page:       page,
			Size:       limit,
			Total:      total,
			TotalPages: totalPages,
			HasPrev:    page > 1,
			HasNext:    int64(page) < totalPages,
		},
	})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	p, err := principal(c)
	if err != nil {
		l.Warn("get_order_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("get_order_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order, err := h.Svc.GetOrder(ctx, p, id)
	if err != nil {
		code, msg := statusFor(err)
		l.Warn("get_order_error", "status", code, "error", err)
		return echo.NewHTTPError(code, msg)
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_order_status")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("update_order_status_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req transport.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_order_status_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		code, msg := statusFor(err)
		l.Warn("update_order_status_error", "status", code, "error", err)
		return echo.NewHTTPError(code, msg)
	}

	l.Info("order_status_updated", "order_id", order.ID, "order_status", order.Status)
	return c.JSON(http.StatusOK, order)
}
