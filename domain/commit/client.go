package commit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"rank-annotation-backend/domain/fault"
	"time"
)

/*
UpdateRequest 和 UpdateResponse 是写入端点 /sheet/update 的请求与响应。
整批失败时响应只包含 Error 和 Details。
*/
type UpdateRequest struct {
	Annotations []Submission `json:"annotations"`
}

type UpdateResponse struct {
	Success bool     `json:"success"`
	Updates []Result `json:"updates,omitempty"`
	Error   string   `json:"error,omitempty"`
	Details string   `json:"details,omitempty"`
}

/*
Client 把提交转发到远端的写入端点，网络错误和非 2xx 响应都视为 TransportFailed。
*/
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Commit(ctx context.Context, submissions []Submission) ([]Result, error) {
	body, err := json.Marshal(&UpdateRequest{Annotations: submissions})
	if err != nil {
		return nil, fault.Wrap(fault.PayloadShapeInvalid, err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fault.Wrap(fault.TransportFailed, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.TransportFailed, err, "post [%s]", c.endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(fault.TransportFailed, err, "read response")
	}

	var decoded UpdateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fault.Wrap(fault.TransportFailed, err, "decode response with status [%d]", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || decoded.Error != "" {
		msg := decoded.Error
		if decoded.Details != "" {
			msg = fmt.Sprintf("%s: %s", msg, decoded.Details)
		}
		return nil, fault.New(fault.TransportFailed, "endpoint returns status [%d]: %s", resp.StatusCode, msg)
	}

	if len(decoded.Updates) != len(submissions) {
		return nil, fault.New(fault.TransportFailed, "expect %d updates, got %d", len(submissions), len(decoded.Updates))
	}

	return decoded.Updates, nil
}
