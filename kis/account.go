package kis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/dca/broker"
	"github.com/rustyeddy/dca/market"
	"github.com/shopspring/decimal"
)

const (
	pathBalance = "/uapi/domestic-stock/v1/trading/inquire-balance"
	pathOrder   = "/uapi/domestic-stock/v1/trading/order-cash"
)

type balanceResponse struct {
	Output2 []struct {
		// 가수도정산금액: cash available after pending settlements.
		PrvsRcdlExccAmt string `json:"prvs_rcdl_excc_amt"`
		DncaTotAmt      string `json:"dnca_tot_amt"`
		TotEvluAmt      string `json:"tot_evlu_amt"`
	} `json:"output2"`
}

// GetAvailableBalance returns the orderable cash in won.
func (c *Client) GetAvailableBalance(ctx context.Context) (int64, error) {
	trID := "TTTC8434R"
	if c.mode == Paper {
		trID = "VTTC8434R"
	}

	params := url.Values{}
	params.Set("CANO", c.cano())
	params.Set("ACNT_PRDT_CD", c.productCode())
	params.Set("AFHR_FLPR_YN", "N")
	params.Set("OFL_YN", "")
	params.Set("INQR_DVSN", "02")
	params.Set("UNPR_DVSN", "01")
	params.Set("FUND_STTL_ICLD_YN", "N")
	params.Set("FNCG_AMT_AUTO_RDPT_YN", "N")
	params.Set("PRCS_DVSN", "01")
	params.Set("CTX_AREA_FK100", "")
	params.Set("CTX_AREA_NK100", "")

	var resp balanceResponse
	if err := c.do(ctx, http.MethodGet, pathBalance, trID, params, nil, &resp); err != nil {
		return 0, fmt.Errorf("GetAvailableBalance: %w", err)
	}
	if len(resp.Output2) == 0 {
		c.log.Warn("balance reply has no summary row, treating available cash as 0")
		return 0, nil
	}

	amt, err := parseWon(resp.Output2[0].PrvsRcdlExccAmt)
	if err != nil {
		return 0, fmt.Errorf("GetAvailableBalance: %w: prvs_rcdl_excc_amt: %w", broker.ErrTransport, err)
	}
	c.log.WithField("available", amt).Debug("balance")
	return amt, nil
}

type orderBody struct {
	CANO         string `json:"CANO"`
	AcntPrdtCd   string `json:"ACNT_PRDT_CD"`
	PDNO         string `json:"PDNO"`
	OrdDvsn      string `json:"ORD_DVSN"`
	OrdQty       string `json:"ORD_QTY"`
	OrdUnpr      string `json:"ORD_UNPR"`
	ExcgIDDvsnCd string `json:"EXCG_ID_DVSN_CD"`
	SllType      string `json:"SLL_TYPE,omitempty"`
}

type orderResponse struct {
	Output struct {
		OrgNo string `json:"KRX_FWDG_ORD_ORGNO"`
		ODNO  string `json:"ODNO"`
		Time  string `json:"ORD_TMD"` // HHMMSS
	} `json:"output"`
}

// SubmitOrder places a cash order. Gateway rejections wrap
// broker.ErrOrderRejected unless the token had expired.
func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.Confirmation, error) {
	if err := req.Validate(); err != nil {
		return broker.Confirmation{}, fmt.Errorf("%w: %w", broker.ErrOrderRejected, err)
	}

	body := orderBody{
		CANO:         c.cano(),
		AcntPrdtCd:   c.productCode(),
		PDNO:         req.Instrument.Code,
		OrdQty:       strconv.FormatInt(req.Quantity, 10),
		ExcgIDDvsnCd: exchangeID(req.Instrument.Venue),
	}
	switch req.Type {
	case broker.LimitOrder:
		body.OrdDvsn = "00"
		body.OrdUnpr = strconv.FormatInt(*req.Price, 10)
	default:
		body.OrdDvsn = "01"
		body.OrdUnpr = "0"
	}
	if req.Side == broker.Sell {
		body.SllType = "01"
	}

	var resp orderResponse
	err := c.do(ctx, http.MethodPost, pathOrder, orderTrID(c.mode, req.Side), nil, body, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Expired() {
			return broker.Confirmation{}, fmt.Errorf("SubmitOrder %s: %w: %w", req.Instrument, broker.ErrOrderRejected, err)
		}
		return broker.Confirmation{}, fmt.Errorf("SubmitOrder %s: %w", req.Instrument, err)
	}

	conf := broker.Confirmation{
		OrderID:    resp.Output.ODNO,
		Instrument: req.Instrument,
		Quantity:   req.Quantity,
		Time:       c.orderTime(resp.Output.Time),
	}
	if req.Price != nil {
		conf.Price = *req.Price
	}
	c.log.WithField("instrument", req.Instrument.String()).
		WithField("quantity", req.Quantity).
		WithField("order_id", conf.OrderID).
		Info("order accepted")
	return conf, nil
}

func orderTrID(mode Mode, side broker.Side) string {
	switch {
	case mode == Paper && side == broker.Sell:
		return "VTTC0011U"
	case mode == Paper:
		return "VTTC0012U"
	case side == broker.Sell:
		return "TTTC0011U"
	default:
		return "TTTC0012U"
	}
}

func exchangeID(v market.Venue) string {
	switch v {
	case market.VenueNXT:
		return "NXT"
	case market.VenueUnified:
		return "SOR"
	default:
		return "KRX"
	}
}

// orderTime combines today's Seoul date with the gateway's HHMMSS stamp.
func (c *Client) orderTime(hhmmss string) time.Time {
	now := c.now()
	cal := market.KRXCalendar()
	local := cal.In(now)
	t, err := time.ParseInLocation("150405", hhmmss, cal.Location)
	if err != nil {
		return now
	}
	return time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), t.Second(), 0, cal.Location)
}

// parseWon reads a gateway numeric string as whole won.
func parseWon(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}
