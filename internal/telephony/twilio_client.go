package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Benrobo/nexusai-sub000/internal/config"
	"github.com/Benrobo/nexusai-sub000/internal/numbers"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioClient is a thin REST client for the provider operations this
// service needs: searching, renting and releasing phone numbers.
//
// No provider SDK; requests are plain authenticated HTTP in the same style
// as the other raw provider adapters in this codebase.
type TwilioClient struct {
	accountSID string
	authToken  string

	// voiceWebhookURL is set as the VoiceUrl on every purchased number so
	// inbound calls land on our webhook.
	voiceWebhookURL string

	// bundleSid is attached to purchases when set; regulated countries
	// refuse the purchase without an approved regulatory bundle.
	bundleSid string

	baseURL string
	httpc   *http.Client
}

func NewTwilioClient(cfg config.TwilioConfig, voiceWebhookURL string) *TwilioClient {
	return &TwilioClient{
		accountSID:      cfg.AccountSID,
		authToken:       cfg.AuthToken,
		voiceWebhookURL: voiceWebhookURL,
		bundleSid:       cfg.BundleSid,
		baseURL:         twilioAPIBase,
		httpc:           &http.Client{Timeout: 15 * time.Second},
	}
}

// AvailableNumber is one rentable number returned by a search.
type AvailableNumber struct {
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
	Region       string `json:"region"`
	ISOCountry   string `json:"iso_country"`
}

type availableNumbersResponse struct {
	AvailablePhoneNumbers []AvailableNumber `json:"available_phone_numbers"`
}

type incomingPhoneNumberResponse struct {
	Sid         string `json:"sid"`
	PhoneNumber string `json:"phone_number"`
	BundleSid   string `json:"bundle_sid"`
}

type twilioErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SearchAvailable lists local numbers rentable in the given country.
func (c *TwilioClient) SearchAvailable(ctx context.Context, country string, limit int) ([]AvailableNumber, error) {
	if country == "" {
		country = "US"
	}
	if limit <= 0 || limit > 20 {
		limit = 10
	}

	u := fmt.Sprintf("%s/Accounts/%s/AvailablePhoneNumbers/%s/Local.json?PageSize=%d&VoiceEnabled=true",
		c.baseURL, c.accountSID, strings.ToUpper(country), limit)

	var out availableNumbersResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out.AvailablePhoneNumbers, nil
}

// BuyNumber rents the first available local number in the country and points
// its voice webhook at this service. Implements numbers.Provider.
func (c *TwilioClient) BuyNumber(ctx context.Context, country string) (numbers.ProvisionedNumber, error) {
	avail, err := c.SearchAvailable(ctx, country, 1)
	if err != nil {
		return numbers.ProvisionedNumber{}, err
	}
	if len(avail) == 0 {
		return numbers.ProvisionedNumber{}, fmt.Errorf("twilio: no available numbers in %s", country)
	}

	form := url.Values{}
	form.Set("PhoneNumber", avail[0].PhoneNumber)
	form.Set("VoiceUrl", c.voiceWebhookURL)
	form.Set("VoiceMethod", "POST")
	if c.bundleSid != "" {
		form.Set("BundleSid", c.bundleSid)
	}

	u := fmt.Sprintf("%s/Accounts/%s/IncomingPhoneNumbers.json", c.baseURL, c.accountSID)
	var out incomingPhoneNumberResponse
	if err := c.do(ctx, http.MethodPost, u, strings.NewReader(form.Encode()), &out); err != nil {
		return numbers.ProvisionedNumber{}, err
	}
	return numbers.ProvisionedNumber{
		Phone:     out.PhoneNumber,
		Sid:       out.Sid,
		BundleSid: out.BundleSid,
	}, nil
}

// ReleaseNumber returns a rented number to the provider. Implements
// numbers.Provider. Releasing an already-released number is not an error.
func (c *TwilioClient) ReleaseNumber(ctx context.Context, sid string) error {
	if sid == "" {
		return errors.New("twilio: phone number sid required")
	}
	u := fmt.Sprintf("%s/Accounts/%s/IncomingPhoneNumbers/%s.json", c.baseURL, c.accountSID, sid)

	err := c.do(ctx, http.MethodDelete, u, nil, nil)
	var terr *TwilioError
	if errors.As(err, &terr) && terr.Status == http.StatusNotFound {
		return nil
	}
	return err
}

// TwilioError carries the provider's error payload for callers that need to
// branch on status (retry decisions, idempotent release).
type TwilioError struct {
	Status  int
	Code    int
	Message string
}

func (e *TwilioError) Error() string {
	return fmt.Sprintf("twilio: status=%d code=%d %s", e.Status, e.Code, e.Message)
}

func (c *TwilioClient) do(ctx context.Context, method, u string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e twilioErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = json.Unmarshal(raw, &e)
		return &TwilioError{Status: resp.StatusCode, Code: e.Code, Message: e.Message}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
