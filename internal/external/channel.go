package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ChannelClient talks to the channel manager that mirrors listings on outside
// platforms. Only properties carrying a channel listing id are checked there;
// everything else is assumed available.
type ChannelClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ChannelConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type AvailabilityRequest struct {
	ListingID string `json:"listing_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Guests    int    `json:"guests"`
}

type AvailabilityResponse struct {
	Available         bool     `json:"available"`
	UnavailableNights []string `json:"unavailable_nights,omitempty"`
}

type channelReservationBody struct {
	ListingID  string `json:"listing_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Guests     int    `json:"guests"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
}

type ChannelReservationResponse struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

func NewChannelClient(cfg ChannelConfig) *ChannelClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &ChannelClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Enabled reports whether a channel manager endpoint is configured
func (cc *ChannelClient) Enabled() bool {
	return cc.baseURL != ""
}

func (cc *ChannelClient) post(path string, body interface{}, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, cc.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cc.apiKey)

	resp, err := cc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("channel manager request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// CheckAvailability asks the channel manager whether the date range is open
func (cc *ChannelClient) CheckAvailability(req AvailabilityRequest) (*AvailabilityResponse, error) {
	var result AvailabilityResponse
	if err := cc.post("/api/v1/listings/availability", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PushReservation mirrors a confirmed booking onto the channel calendar so the
// dates are blocked on outside platforms as well
func (cc *ChannelClient) PushReservation(listingID, checkIn, checkOut string, guests int, guestName, guestEmail string) (*ChannelReservationResponse, error) {
	body := channelReservationBody{
		ListingID:  listingID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     guests,
		GuestName:  guestName,
		GuestEmail: guestEmail,
	}

	var result ChannelReservationResponse
	if err := cc.post("/api/v1/reservations", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
