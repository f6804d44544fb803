package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bidding-engine/services/bidding/helpers"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx answer from the bidding API
type APIError struct {
	Status  int
	Message string
	Kind    string
	Reason  string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("bidding api: %d %s (%s: %s)", e.Status, e.Message, e.Kind, e.Reason)
	}
	return fmt.Sprintf("bidding api: %d %s", e.Status, e.Message)
}

type envelope[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Reason  string `json:"reason"`
}

// Client talks to the bidding HTTP API on behalf of one user
type Client struct {
	http *resty.Client
}

func New(baseURL, userID string, timeout time.Duration) *Client {
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetTimeout(timeout)
	c.SetHeader("Content-Type", "application/json")
	if userID != "" {
		c.SetHeader(helpers.UserIDHeader, userID)
	}
	return &Client{http: c}
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out envelope[T]
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return out.Data, fmt.Errorf("bidding api: %s %s: %w", method, path, err)
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return out.Data, fmt.Errorf("bidding api: decode %s %s (status %d): %w", method, path, resp.StatusCode(), err)
	}
	if resp.IsError() {
		return out.Data, &APIError{
			Status:  resp.StatusCode(),
			Message: out.Message,
			Kind:    out.Kind,
			Reason:  out.Reason,
			Detail:  out.Error,
		}
	}
	return out.Data, nil
}

func (c *Client) PlaceBid(ctx context.Context, auctionID string, amount float64) (helpers.PlaceBidResponse, error) {
	return call[helpers.PlaceBidResponse](ctx, c, http.MethodPost, "/api/bids",
		helpers.PlaceBidRequest{AuctionID: auctionID, BidAmount: amount})
}

func (c *Client) PlaceProxyBid(ctx context.Context, auctionID string, maxAmount float64) (helpers.PlaceProxyBidResponse, error) {
	return call[helpers.PlaceProxyBidResponse](ctx, c, http.MethodPost, "/api/bids/proxy",
		helpers.PlaceProxyBidRequest{AuctionID: auctionID, MaxAmount: maxAmount})
}

func (c *Client) BidsForAuction(ctx context.Context, auctionID string) ([]helpers.BidResponse, error) {
	return call[[]helpers.BidResponse](ctx, c, http.MethodGet, "/api/bids/auction/"+auctionID, nil)
}

func (c *Client) BidsByUser(ctx context.Context, userID string) ([]helpers.BidResponse, error) {
	return call[[]helpers.BidResponse](ctx, c, http.MethodGet, "/api/bids/user/"+userID, nil)
}

func (c *Client) ProxyBid(ctx context.Context, auctionID, userID string) (helpers.ProxyBidResponse, error) {
	return call[helpers.ProxyBidResponse](ctx, c, http.MethodGet,
		fmt.Sprintf("/api/bids/proxy/auction/%s/user/%s", auctionID, userID), nil)
}

func (c *Client) Auction(ctx context.Context, auctionID string) (helpers.AuctionResponse, error) {
	return call[helpers.AuctionResponse](ctx, c, http.MethodGet, "/api/auctions/"+auctionID, nil)
}

func (c *Client) LiveAuctions(ctx context.Context) ([]helpers.AuctionResponse, error) {
	return call[[]helpers.AuctionResponse](ctx, c, http.MethodGet, "/api/auctions/live", nil)
}

func (c *Client) CreateAuction(ctx context.Context, req helpers.CreateAuctionRequest) (helpers.AuctionResponse, error) {
	return call[helpers.AuctionResponse](ctx, c, http.MethodPost, "/api/admin/auctions", req)
}

func (c *Client) StartAuction(ctx context.Context, auctionID string) (helpers.AuctionResponse, error) {
	return call[helpers.AuctionResponse](ctx, c, http.MethodPut, "/api/admin/auctions/"+auctionID+"/start", nil)
}

func (c *Client) EndAuction(ctx context.Context, auctionID string) (helpers.AuctionResponse, error) {
	return call[helpers.AuctionResponse](ctx, c, http.MethodPut, "/api/admin/auctions/"+auctionID+"/end", nil)
}

// ExportBids downloads the auction's bid ledger as an xlsx workbook
func (c *Client) ExportBids(ctx context.Context, auctionID string) ([]byte, error) {
	path := "/api/bids/auction/" + auctionID + "/export"
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("bidding api: GET %s: %w", path, err)
	}
	if resp.IsError() {
		var out envelope[json.RawMessage]
		_ = json.Unmarshal(resp.Body(), &out)
		return nil, &APIError{Status: resp.StatusCode(), Message: out.Message, Detail: out.Error}
	}
	return resp.Body(), nil
}
