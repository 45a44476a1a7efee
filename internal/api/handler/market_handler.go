package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/h2market/h2trade/internal/core/ports"
)

type MarketHandler struct {
	catalog ports.CatalogService
	trading ports.TradingService
}

func NewMarketHandler(catalog ports.CatalogService, trading ports.TradingService) *MarketHandler {
	return &MarketHandler{catalog: catalog, trading: trading}
}

// ListProducts returns every active listing.
//
// @Summary      List active listings
// @Tags         products
// @Produce      json
// @Success      200  {array}   domain.Listing
// @Router       /products [get]
func (h *MarketHandler) ListProducts(c echo.Context) error {
	listings, err := h.catalog.ActiveListings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listings)
}

// GetProduct returns one listing whatever its status.
//
// @Summary      Get a listing
// @Tags         products
// @Produce      json
// @Param        id   path      int  true  "Listing ID"
// @Success      200  {object}  domain.Listing
// @Failure      404  {object}  map[string]string
// @Router       /products/{id} [get]
func (h *MarketHandler) GetProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Not Found")
	}
	listing, err := h.catalog.Listing(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listing)
}

// CreateProduct publishes a listing owned by the authenticated user and
// opens its standing sell order.
//
// @Summary      Publish a listing
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ports.CreateListingInput  true  "Listing"
// @Success      201   {object}  domain.Listing
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /products [post]
func (h *MarketHandler) CreateProduct(c echo.Context) error {
	username, err := ctxUsername(c)
	if err != nil {
		return err
	}
	if c.Request().ContentLength == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing JSON in request")
	}
	var req ports.CreateListingInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid decimal value for quantity, price, purity, or GHG intensity.")
	}

	listing, err := h.catalog.CreateListing(c.Request().Context(), username, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, listing)
}

// ListOrders returns the authenticated user's orders.
//
// @Summary      My orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Order
// @Failure      401  {object}  map[string]string
// @Router       /orders [get]
func (h *MarketHandler) ListOrders(c echo.Context) error {
	username, err := ctxUsername(c)
	if err != nil {
		return err
	}
	orders, err := h.trading.OrdersOf(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

// CreateOrder places a buy or sell order. A buy at or above the asking price
// fills immediately and the trades are returned.
//
// @Summary      Place an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ports.PlaceOrderInput  true  "Order"
// @Success      201   {object}  domain.OrderResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /orders [post]
func (h *MarketHandler) CreateOrder(c echo.Context) error {
	username, err := ctxUsername(c)
	if err != nil {
		return err
	}
	if c.Request().ContentLength == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing JSON in request")
	}
	var req ports.PlaceOrderInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid decimal value for quantity or price.")
	}

	res, err := h.trading.PlaceOrder(c.Request().Context(), username, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}
