package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"minutebook/calllog"
	"minutebook/timeline"
)

const statisticMethod = "voximplant.statistic.get"

// Bitrix24 call types
const (
	bitrixOutgoing         = "1"
	bitrixIncoming         = "2"
	bitrixIncomingRedirect = "3"
	bitrixCallback         = "4"
)

type (
	// flexString accepts a JSON string, number or null.
	flexString string

	BitrixCall struct {
		ID           flexString `json:"ID"`
		UserID       flexString `json:"PORTAL_USER_ID"`
		PortalNumber flexString `json:"PORTAL_NUMBER"`
		PhoneNumber  flexString `json:"PHONE_NUMBER"`
		CallType     flexString `json:"CALL_TYPE"`
		Duration     flexString `json:"CALL_DURATION"`
		StartDate    flexString `json:"CALL_START_DATE"`
		FailedCode   flexString `json:"CALL_FAILED_CODE"`
	}

	StatisticResponse struct {
		Result []BitrixCall `json:"result"`
		Next   *int         `json:"next,omitempty"`
		Total  int          `json:"total"`

		Error            string `json:"error,omitempty"`
		ErrorDescription string `json:"error_description,omitempty"`
	}
)

func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("unexpected value %s", data)
	}
	*s = flexString(num.String())
	return nil
}

type BitrixClient struct {
	webhookURL string
	users      map[string]string
	zone       *time.Location
	httpClient *http.Client
}

func NewBitrixClient(webhookURL string, users map[string]string, zone *time.Location) *BitrixClient {
	return &BitrixClient{
		webhookURL: strings.TrimRight(webhookURL, "/"),
		users:      users,
		zone:       zone,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// fetches every call started in [from, to), following the pagination cursor
func (c *BitrixClient) GetCalls(ctx context.Context, from, to time.Time) (calllog.Result, error) {
	var res calllog.Result

	start := 0
	for {
		page, err := c.getPage(ctx, from, to, start)
		if err != nil {
			return calllog.Result{}, err
		}

		for _, bc := range page.Result {
			call, ok, err := c.toCall(bc)
			if err != nil {
				log.Printf("skipping bitrix %v", err)
				res.Invalid++
				continue
			}
			if !ok {
				res.Skipped++
				continue
			}
			res.Calls = append(res.Calls, call)
		}

		if page.Next == nil || *page.Next <= start {
			break
		}
		start = *page.Next
	}

	return res, nil
}

func (c *BitrixClient) getPage(ctx context.Context, from, to time.Time, start int) (*StatisticResponse, error) {
	params := url.Values{}
	params.Set("FILTER[>=CALL_START_DATE]", from.Format(time.RFC3339))
	params.Set("FILTER[<CALL_START_DATE]", to.Format(time.RFC3339))
	params.Set("SORT", "CALL_START_DATE")
	params.Set("ORDER", "ASC")
	params.Set("start", strconv.Itoa(start))

	endpoint := fmt.Sprintf("%s/%s.json?%s", c.webhookURL, statisticMethod, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer res.Body.Close()

	var apiRes StatisticResponse
	if err := json.NewDecoder(res.Body).Decode(&apiRes); err != nil {
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("bitrix returned %s", res.Status)
		}
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	if apiRes.Error != "" {
		return nil, fmt.Errorf("bitrix error %s: %s", apiRes.Error, apiRes.ErrorDescription)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bitrix returned %s", res.Status)
	}

	return &apiRes, nil
}

// toCall reports ok=false for calls that never connected.
func (c *BitrixClient) toCall(bc BitrixCall) (timeline.Call, bool, error) {
	if code := string(bc.FailedCode); code != "" && code != "200" {
		return timeline.Call{}, false, nil
	}

	start, err := time.Parse(time.RFC3339, string(bc.StartDate))
	if err != nil {
		return timeline.Call{}, false, fmt.Errorf("call %s: bad start date %q: %w", bc.ID, bc.StartDate, err)
	}

	employee, ok := c.users[string(bc.UserID)]
	if !ok {
		employee = "user#" + string(bc.UserID)
	}

	return timeline.NewCall(
		callTypeName(string(bc.CallType)),
		string(bc.PhoneNumber),
		employee,
		string(bc.PortalNumber),
		start.In(c.zone),
		timeline.ParseDuration(string(bc.Duration)),
	), true, nil
}

func callTypeName(code string) string {
	switch code {
	case bitrixOutgoing:
		return "Outgoing"
	case bitrixIncoming, bitrixIncomingRedirect:
		return "Incoming"
	case bitrixCallback:
		return "Callback"
	default:
		return "Call"
	}
}
