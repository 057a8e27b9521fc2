package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"staybid/internal/domain"
	"staybid/internal/services"
	"staybid/pkg/logger"
)

type AuctionHandler struct {
	requests *services.RequestService
	auctions *services.AuctionService
	log      logger.Logger
}

func NewAuctionHandler(requests *services.RequestService, auctions *services.AuctionService,
	log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		requests: requests,
		auctions: auctions,
		log:      log,
	}
}

// Register wires the handler's routes onto the API group.
func (h *AuctionHandler) Register(api *echo.Group) {
	api.POST("/auction-requests", h.SubmitRequest)
	api.POST("/auction-requests/:id/decision", h.DecideRequest)
	api.GET("/auctions", h.ListAuctions)
	api.GET("/auctions/:id", h.GetAuction)
	api.POST("/auctions/:id/bids", h.PlaceBid)
	api.POST("/auctions/:id/buyout", h.Buyout)
	api.POST("/admin/sweep", h.RunSweep)
}

// callerID reads the authenticated user injected by the identity layer.
// Identity itself is out of scope here.
func callerID(c echo.Context) string {
	return c.Request().Header.Get("X-User-ID")
}

func (h *AuctionHandler) SubmitRequest(c echo.Context) error {
	hostID := callerID(c)
	if hostID == "" {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("X-User-ID header required")))
	}

	var terms services.RequestTerms
	if err := c.Bind(&terms); err != nil {
		h.log.Error("Failed to bind request terms", "error", err)
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid request body")))
	}

	req, err := h.requests.SubmitRequest(c.Request().Context(), hostID, terms)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"request": req,
		"status":  req.Status.String(),
	})
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

func (h *AuctionHandler) DecideRequest(c echo.Context) error {
	adminID := callerID(c)
	requestID := c.Param("id")

	var body decisionRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid request body")))
	}

	decision := services.Decision(body.Decision)
	if decision != services.DecisionApprove && decision != services.DecisionReject {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("decision must be approve or reject")))
	}

	req, err := h.requests.Decide(c.Request().Context(), requestID, adminID, decision, body.Notes)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"request": req,
		"status":  req.Status.String(),
	})
}

func (h *AuctionHandler) ListAuctions(c echo.Context) error {
	filter := domain.AuctionFilter{
		Status:   domain.StatusFilter(c.QueryParam("status")),
		Query:    c.QueryParam("q"),
		Sort:     domain.SortKey(c.QueryParam("sort")),
		Page:     intParam(c, "page", 1),
		PageSize: intParam(c, "page_size", 20),
	}

	page, err := h.auctions.ListAuctions(c.Request().Context(), filter)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, page)
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	detail, err := h.auctions.GetAuction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, detail)
}

type placeBidRequest struct {
	Amount int64 `json:"amount"`
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	bidderID := callerID(c)
	auctionID := c.Param("id")

	var body placeBidRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid request body")))
	}

	bid, auction, err := h.auctions.PlaceBid(c.Request().Context(), auctionID, bidderID, body.Amount)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"bid":     bid,
		"auction": auction,
	})
}

func (h *AuctionHandler) Buyout(c echo.Context) error {
	buyerID := callerID(c)
	auctionID := c.Param("id")

	auction, order, err := h.auctions.Buyout(c.Request().Context(), auctionID, buyerID)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"auction": auction,
		"order":   order,
	})
}

func (h *AuctionHandler) RunSweep(c echo.Context) error {
	settled, err := h.auctions.RunSweep(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"settled": settled,
	})
}

func (h *AuctionHandler) writeError(c echo.Context, err error) error {
	return c.JSON(statusFor(err), errorBody(err))
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

// statusFor maps engine sentinels onto the HTTP taxonomy: validation and
// state conflicts are 400, role/ownership checks 403, lookups 404.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, domain.ErrAuctionNotFound),
		errors.Is(err, domain.ErrBidNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotAdmin),
		errors.Is(err, domain.ErrSelfBid),
		errors.Is(err, domain.ErrSelfBuyout):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTerms),
		errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrNotPending),
		errors.Is(err, domain.ErrTimingExpired),
		errors.Is(err, domain.ErrAuctionNotActive),
		errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrBidAtOrAboveBuyout),
		errors.Is(err, domain.ErrBuyoutUnavailable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func intParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	var value int
	if err := echo.QueryParamsBinder(c).Int(name, &value).BindError(); err != nil {
		return fallback
	}
	return value
}
